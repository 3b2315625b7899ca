package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrGroupNotFound = errors.New("group not found")
	ErrGroupExists   = errors.New("group already exists")
	ErrNoImageFolder = errors.New("group has no image folder")
)

// GroupNotFoundError carries the names that were available when a lookup failed.
type GroupNotFoundError struct {
	Name  string
	Known []string
}

func (e *GroupNotFoundError) Error() string {
	return fmt.Sprintf("group %q not found (known: %s)", e.Name, strings.Join(e.Known, ", "))
}

func (e *GroupNotFoundError) Unwrap() error { return ErrGroupNotFound }

// Store reads and rewrites the catalog file as a whole. Mutations made through
// one Store are serialized; separate Stores (or processes) pointed at the same
// file are not coordinated and the last writer wins.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   path,
		logger: logger.With("component", "catalog"),
	}
}

func (s *Store) Path() string { return s.path }

// Init writes an empty catalog when the file does not exist yet. It reports
// whether a file was created.
func (s *Store) Init() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat catalog: %w", err)
	}

	base := &Catalog{Groups: []Group{}}
	base.rest = object{
		order: []string{"filters", "groups"},
		extra: map[string]json.RawMessage{"filters": json.RawMessage("[]")},
	}
	if err := s.save(base); err != nil {
		return false, err
	}
	s.logger.Info("Created empty catalog", "path", s.path)
	return true, nil
}

// Load reads the current file from disk.
func (s *Store) Load() (*Catalog, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", s.path, err)
	}
	return &c, nil
}

// Save replaces the file with c.
func (s *Store) Save(c *Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(c)
}

// Group reloads the catalog and returns a copy of the named group.
func (s *Store) Group(name string) (*Group, error) {
	c, err := s.Load()
	if err != nil {
		return nil, err
	}
	g, ok := c.Find(name)
	if !ok {
		return nil, &GroupNotFoundError{Name: name, Known: c.GroupNames()}
	}
	return g, nil
}

// ImageFolder reloads the catalog and derives the group's image folder.
func (s *Store) ImageFolder(name string) (string, error) {
	g, err := s.Group(name)
	if err != nil {
		return "", err
	}
	folder, ok := g.ImageFolder()
	if !ok {
		return "", fmt.Errorf("%w: %q has image %q", ErrNoImageFolder, name, g.Image)
	}
	return folder, nil
}

// AppendEntries reloads the file, appends entries to the first group named
// group and rewrites the file. An unknown group leaves the file untouched.
func (s *Store) AppendEntries(ctx context.Context, group string, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.Load()
	if err != nil {
		return err
	}

	g, ok := c.Find(group)
	if !ok {
		known := c.GroupNames()
		s.logger.Warn("Group not found in catalog", "group", group, "known", known)
		return &GroupNotFoundError{Name: group, Known: known}
	}

	if g.Fidgets == nil {
		g.Fidgets = make([]Entry, 0, len(entries))
	}
	g.Fidgets = append(g.Fidgets, entries...)

	if err := s.save(c); err != nil {
		return err
	}

	s.logger.Info("Appended entries", "group", group, "count", len(entries), "total", len(g.Fidgets))
	return nil
}

// CreateGroup adds an empty group whose image lives in images/<slug>/logo.jpg.
func (s *Store) CreateGroup(name, slug, link string) (*Group, error) {
	if name == "" || slug == "" {
		return nil, errors.New("group name and slug are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.Load()
	if err != nil {
		return nil, err
	}
	if _, ok := c.Find(name); ok {
		return nil, fmt.Errorf("%w: %q", ErrGroupExists, name)
	}

	g := Group{
		Name:    name,
		Image:   "images/" + slug + "/logo.jpg",
		Fidgets: []Entry{},
	}
	g.rest = object{
		order: []string{"name", "description", "link", "image", "fidgets"},
		extra: map[string]json.RawMessage{},
	}
	for key, value := range map[string]string{
		"description": "Fidgets from " + name,
		"link":        link,
	} {
		raw, err := marshal(value)
		if err != nil {
			return nil, err
		}
		g.rest.extra[key] = raw
	}

	c.Groups = append(c.Groups, g)
	if err := s.save(c); err != nil {
		return nil, err
	}

	s.logger.Info("Created group", "group", name, "image", g.Image)
	return &c.Groups[len(c.Groups)-1], nil
}

func (s *Store) save(c *Catalog) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod catalog: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace catalog: %w", err)
	}
	return nil
}
