// Package images downloads product photos into a group's image folder.
package images

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrDownloadFailed = errors.New("image download failed")

// FolderResolver maps a group name to its folder under the images directory.
// *catalog.Store re-reads the catalog file on every call.
type FolderResolver interface {
	ImageFolder(group string) (string, error)
}

// Mirror receives a copy of every image written to disk, keyed by
// "<KeyPrefix>/<folder>/<file>".
type Mirror interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

type Options struct {
	Dir         string
	KeyPrefix   string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	UserAgent   string
}

func DefaultOptions() Options {
	return Options{
		Dir:         "images",
		KeyPrefix:   "images",
		Timeout:     10 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  time.Second,
	}
}

type Downloader struct {
	folders FolderResolver
	mirror  Mirror
	client  *resty.Client
	opts    Options
	logger  *slog.Logger
}

func New(folders FolderResolver, opts Options, mirror Mirror, logger *slog.Logger) *Downloader {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "images")

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.MaxAttempts - 1).
		SetLogger(restyLogger{logger}).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() != http.StatusOK
		}).
		AddRetryHook(func(resp *resty.Response, err error) {
			if resp == nil || resp.Request == nil {
				return
			}
			if err == nil {
				err = fmt.Errorf("bad status: %s", resp.Status())
			}
			logger.Warn("Image download attempt failed", "url", resp.Request.URL, "attempt", resp.Request.Attempt, "error", err)
		})
	if opts.RetryDelay > 0 {
		// equal bounds make the backoff a fixed delay
		client.SetRetryWaitTime(opts.RetryDelay).SetRetryMaxWaitTime(opts.RetryDelay)
	}
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &Downloader{
		folders: folders,
		mirror:  mirror,
		client:  client,
		opts:    opts,
		logger:  logger,
	}
}

// Download fetches url into <Dir>/<folder>/<FileName(name)> where folder
// comes from the group's image path, and returns "<folder>/<file>".
func (d *Downloader) Download(ctx context.Context, url, group, name string) (string, error) {
	folder, err := d.folders.ImageFolder(group)
	if err != nil {
		d.logger.Error("Could not determine image folder", "group", group, "error", err)
		return "", err
	}

	url = NormalizeURL(url)
	file := FileName(name)
	rel := path.Join(folder, file)

	resp, err := d.client.R().SetContext(ctx).Get(url)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err == nil && resp.StatusCode() != http.StatusOK {
		err = fmt.Errorf("bad status: %s", resp.Status())
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s after %d attempts: %w", ErrDownloadFailed, url, d.opts.MaxAttempts, err)
	}

	body := resp.Body()
	if err := d.write(folder, file, body); err != nil {
		return "", err
	}
	d.logger.Info("Downloaded image", "url", url, "path", rel, "bytes", len(body))

	if d.mirror != nil {
		contentType := resp.Header().Get("Content-Type")
		if contentType == "" {
			contentType = "image/jpeg"
		}
		key := path.Join(d.opts.KeyPrefix, rel)
		if err := d.mirror.Put(ctx, key, body, contentType); err != nil {
			d.logger.Warn("Failed to mirror image", "key", key, "error", err)
		}
	}
	return rel, nil
}

func (d *Downloader) write(folder, file string, body []byte) error {
	dir := filepath.Join(d.opts.Dir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create image folder: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), body, 0o644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}

// NormalizeURL makes protocol-relative and scheme-less URLs absolute https.
func NormalizeURL(url string) string {
	switch {
	case strings.HasPrefix(url, "//"):
		return "https:" + url
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return url
	default:
		return "https://" + strings.TrimLeft(url, "/")
	}
}

var unsafeFileChars = regexp.MustCompile(`[^\p{L}\p{N}_\-.]`)

// restyLogger routes resty's own diagnostics through slog.
type restyLogger struct{ logger *slog.Logger }

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

// FileName lowercases name, replaces unsafe characters with "_" and adds ".jpg".
func FileName(name string) string {
	return unsafeFileChars.ReplaceAllString(strings.ToLower(name), "_") + ".jpg"
}
