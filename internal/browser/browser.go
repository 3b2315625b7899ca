package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Browser owns one Chromium process. Every Snapshot call runs in its own
// browser context so tasks share no cookies or storage.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    *Options
	logger  *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	ExtraHeaders   map[string]string

	// page load behaviour
	NavRetries   int
	SettleTime   time.Duration
	ScrollPasses int
	ScrollStep   time.Duration
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Locale:         "en-US",
		ExtraHeaders: map[string]string{
			"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"DNT":    "1",
		},
		NavRetries:   3,
		SettleTime:   10 * time.Second,
		ScrollPasses: 3,
		ScrollStep:   time.Second,
	}
}

// Snapshot is everything the heuristics need from a rendered page.
type Snapshot struct {
	URL           string
	HTML          string
	DocumentTitle string
	VisibleText   string
	Images        []Image
}

// Image is an <img> as rendered. Width and Height come from the element's
// attributes, falling back to its layout box when the attributes are absent.
type Image struct {
	Src     string  `json:"src"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Visible bool    `json:"visible"`
}

func New(opts *Options, logger *slog.Logger) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			fmt.Sprintf("--window-size=%d,%d", opts.ViewportWidth, opts.ViewportHeight),
		},
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: browser,
		opts:    opts,
		logger:  logger.With("component", "browser"),
	}, nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Snapshot loads url in a fresh context, lets the page settle, forces lazy
// images to load, scrolls through the page and captures the result. The
// context is closed on every return path.
func (b *Browser) Snapshot(ctx context.Context, url string) (*Snapshot, error) {
	bctx, err := b.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         playwright.String(b.opts.UserAgent),
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            playwright.String(b.opts.Locale),
		Viewport: &playwright.Size{
			Width:  b.opts.ViewportWidth,
			Height: b.opts.ViewportHeight,
		},
		ExtraHttpHeaders: b.opts.ExtraHeaders,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	defer func() {
		if err := bctx.Close(); err != nil {
			b.logger.Warn("failed to close browser context", "error", err, "url", url)
		}
	}()

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	page.SetDefaultTimeout(float64(b.opts.Timeout.Milliseconds()))

	if err := b.navigateWithRetry(ctx, page, url); err != nil {
		return nil, err
	}

	if err := sleep(ctx, b.opts.SettleTime); err != nil {
		return nil, err
	}

	if _, err := page.Evaluate(promoteLazyImagesJS); err != nil {
		return nil, fmt.Errorf("failed to promote lazy images: %w", err)
	}

	if err := b.scroll(ctx, page); err != nil {
		return nil, err
	}

	return capture(page, url)
}

func (b *Browser) navigateWithRetry(ctx context.Context, page playwright.Page, url string) error {
	retries := b.opts.NavRetries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for i := 0; i < retries; i++ {
		if i > 0 {
			b.logger.Info("retrying navigation", "attempt", i+1, "url", url)
			if err := sleep(ctx, time.Duration(i)*time.Second); err != nil {
				return err
			}
		}

		resp, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(b.opts.Timeout.Milliseconds())),
		})
		if err == nil {
			if resp != nil && resp.Status() >= 400 {
				b.logger.Warn("page returned error status", "status", resp.Status(), "url", url)
			}
			return nil
		}

		lastErr = err
		b.logger.Error("navigation failed", "error", err, "attempt", i+1, "url", url)
	}

	return fmt.Errorf("failed after %d navigation attempts: %w", retries, lastErr)
}

func (b *Browser) scroll(ctx context.Context, page playwright.Page) error {
	steps := []string{
		"window.scrollTo(0, document.body.scrollHeight/3)",
		"window.scrollTo(0, document.body.scrollHeight*2/3)",
		"window.scrollTo(0, document.body.scrollHeight)",
	}

	for pass := 0; pass < b.opts.ScrollPasses; pass++ {
		for _, step := range steps {
			if _, err := page.Evaluate(step); err != nil {
				return fmt.Errorf("failed to scroll: %w", err)
			}
			if err := sleep(ctx, b.opts.ScrollStep); err != nil {
				return err
			}
		}
		if _, err := page.Evaluate("window.scrollTo(0, 0)"); err != nil {
			return fmt.Errorf("failed to scroll: %w", err)
		}
	}
	return nil
}

func capture(page playwright.Page, url string) (*Snapshot, error) {
	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to get page content: %w", err)
	}

	title, err := page.Title()
	if err != nil {
		return nil, fmt.Errorf("failed to get page title: %w", err)
	}

	text, err := page.Locator("body").InnerText()
	if err != nil {
		return nil, fmt.Errorf("failed to get visible text: %w", err)
	}

	raw, err := page.Evaluate(collectImagesJS)
	if err != nil {
		return nil, fmt.Errorf("failed to collect images: %w", err)
	}
	images, err := decodeImages(raw)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		URL:           url,
		HTML:          html,
		DocumentTitle: title,
		VisibleText:   text,
		Images:        images,
	}, nil
}

func decodeImages(raw any) ([]Image, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected image payload %T", raw)
	}
	var images []Image
	if err := json.Unmarshal([]byte(s), &images); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}
	return images, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const promoteLazyImagesJS = `() => {
	for (const img of document.getElementsByTagName('img')) {
		const lazy = img.getAttribute('data-src');
		if (lazy) img.setAttribute('src', lazy);
		const lazier = img.getAttribute('data-lazy-src');
		if (lazier) img.setAttribute('src', lazier);
	}
}`

const collectImagesJS = `() => JSON.stringify(Array.from(document.images).map(img => {
	const rect = img.getBoundingClientRect();
	const style = window.getComputedStyle(img);
	const visible = rect.width > 0 && rect.height > 0 &&
		style.visibility !== 'hidden' && style.display !== 'none';
	return {
		src: img.src || img.getAttribute('src') || '',
		width: parseInt(img.getAttribute('width'), 10) || rect.width,
		height: parseInt(img.getAttribute('height'), 10) || rect.height,
		visible: visible,
	};
}))`
