package memory

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/specfile/pkg/domain"
	"github.com/aretw0/specfile/pkg/ports"
)

var _ ports.Manager = (*Manager)(nil)

// Buffers is the in-memory backend shared by Managers.
// Safe for concurrent use.
type Buffers struct {
	mu   sync.RWMutex
	data map[string]*bytes.Buffer
}

// NewBuffers creates an empty backend.
func NewBuffers() *Buffers {
	return &Buffers{data: make(map[string]*bytes.Buffer)}
}

// Contents returns a copy of what was written to name.
func (b *Buffers) Contents(name string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if buf, ok := b.data[name]; ok {
		return buf.String()
	}
	return ""
}

// Names returns every buffer written so far.
func (b *Buffers) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.data))
	for name := range b.data {
		names = append(names, name)
	}
	return names
}

func (b *Buffers) buffer(name string) *bytes.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.data[name]
	if !ok {
		buf = &bytes.Buffer{}
		b.data[name] = buf
	}
	return buf
}

// Manager implements ports.Manager in memory.
type Manager struct {
	buffers   *Buffers
	streams   map[string]*stream
	artifacts map[string][]string
	closed    bool
}

// New creates a Manager with its own backend.
func New() *Manager {
	return NewWithBuffers(NewBuffers())
}

// NewWithBuffers creates a Manager that writes into an existing backend.
func NewWithBuffers(b *Buffers) *Manager {
	return &Manager{
		buffers:   b,
		streams:   make(map[string]*stream),
		artifacts: make(map[string][]string),
	}
}

// Buffers returns the backend the manager writes to.
func (m *Manager) Buffers() *Buffers {
	return m.buffers
}

// Contents is shorthand for m.Buffers().Contents(name).
func (m *Manager) Contents(name string) string {
	return m.buffers.Contents(name)
}

// Open returns the buffer for name, creating it if needed.
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

	s := &stream{buffers: m.buffers, buf: m.buffers.buffer(name)}
	m.streams[name] = s
	m.artifacts[label] = append(m.artifacts[label], name)
	return s, nil
}

// Artifacts returns the buffer names created per label.
func (m *Manager) Artifacts() map[string][]string {
	out := make(map[string][]string, len(m.artifacts))
	for label, names := range m.artifacts {
		out[label] = append([]string(nil), names...)
	}
	return out
}

// Close marks the manager closed. Buffers stay readable.
func (m *Manager) Close() error {
	m.closed = true
	return nil
}

type stream struct {
	buffers *Buffers
	buf     *bytes.Buffer
}

func (s *stream) Write(p []byte) (int, error) {
	s.buffers.mu.Lock()
	defer s.buffers.mu.Unlock()
	return s.buf.Write(p)
}

func (s *stream) Offset() int64 {
	s.buffers.mu.RLock()
	defer s.buffers.mu.RUnlock()
	return int64(s.buf.Len())
}

func (s *stream) Flush() error { return nil }
