package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/specfile/pkg/domain"
	"github.com/aretw0/specfile/pkg/ports"
)

var _ ports.Manager = (*Manager)(nil)

// Manager implements ports.Manager on the local filesystem.
// Every artifact is a file under BasePath opened in append mode.
type Manager struct {
	BasePath string

	mu        sync.Mutex
	streams   map[string]*stream
	artifacts map[string][]string
	closed    bool
}

// New creates a Manager rooted at basePath.
// If basePath is empty, files go to the current working directory.
func New(basePath string) *Manager {
	if basePath == "" {
		basePath = "."
	}
	return &Manager{
		BasePath:  basePath,
		streams:   make(map[string]*stream),
		artifacts: make(map[string][]string),
	}
}

// Open opens (creating if needed) <BasePath>/<name> for appending.
// Names must be local: no absolute paths and no ".." segments.
func (m *Manager) Open(ctx context.Context, label, name string) (ports.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, domain.ErrClosed
	}
	if !filepath.IsLocal(name) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidName, name)
	}

	path := filepath.Join(m.BasePath, name)
	if s, ok := m.streams[path]; ok {
		return s, nil
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure output directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open spec file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat spec file: %w", err)
	}

	s := &stream{file: f, w: bufio.NewWriter(f), offset: info.Size()}
	m.streams[path] = s
	m.artifacts[label] = append(m.artifacts[label], path)
	return s, nil
}

// Artifacts returns the paths created per label.
func (m *Manager) Artifacts() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string][]string, len(m.artifacts))
	for label, paths := range m.artifacts {
		out[label] = append([]string(nil), paths...)
	}
	return out
}

// Close flushes and closes every open file. It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for path, s := range m.streams {
		if err := s.close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

type stream struct {
	file   *os.File
	w      *bufio.Writer
	offset int64
}

func (s *stream) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.offset += int64(n)
	return n, err
}

func (s *stream) Offset() int64 {
	return s.offset
}

func (s *stream) Flush() error {
	return s.w.Flush()
}

func (s *stream) close() error {
	flushErr := s.w.Flush()
	closeErr := s.file.Close()
	return errors.Join(flushErr, closeErr)
}
