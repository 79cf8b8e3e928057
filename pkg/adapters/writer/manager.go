// Package writer provides a ports.Manager that sends every artifact to one io.Writer.
// It backs the CLI's --stdout mode.
package writer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/specfile/pkg/domain"
	"github.com/aretw0/specfile/pkg/ports"
)

var _ ports.Manager = (*Manager)(nil)

type flusher interface {
	Flush() error
}

// Manager writes all artifacts, in order, to a single io.Writer.
// Each name gets its own stream whose offset starts at zero, so every
// artifact is rendered as if it were a new file.
type Manager struct {
	mu        sync.Mutex
	w         io.Writer
	streams   map[string]*stream
	artifacts map[string][]string
	closed    bool
}

// New creates a Manager over w. The writer is never closed by the Manager.
func New(w io.Writer) *Manager {
	return &Manager{
		w:         w,
		streams:   make(map[string]*stream),
		artifacts: make(map[string][]string),
	}
}

// Open returns the stream for name.
func (m *Manager) Open(ctx context.Context, label, name string) (ports.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.closed {
		return nil, domain.ErrClosed
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", domain.ErrInvalidName)
	}
	if s, ok := m.streams[name]; ok {
		return s, nil
	}
	s := &stream{m: m}
	m.streams[name] = s
	m.artifacts[label] = append(m.artifacts[label], name)
	return s, nil
}

// Artifacts returns the names opened per label.
func (m *Manager) Artifacts() map[string][]string {
	out := make(map[string][]string, len(m.artifacts))
	for label, names := range m.artifacts {
		out[label] = append([]string(nil), names...)
	}
	return out
}

// Close flushes the writer if it supports it.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.flush()
}

func (m *Manager) flush() error {
	if f, ok := m.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

type stream struct {
	m      *Manager
	offset int64
}

func (s *stream) Write(p []byte) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	n, err := s.m.w.Write(p)
	s.offset += int64(n)
	return n, err
}

func (s *stream) Offset() int64 {
	return s.offset
}

func (s *stream) Flush() error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.m.flush()
}
