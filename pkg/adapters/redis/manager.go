// Package redis stores spec files as Redis strings.
package redis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/specfile/pkg/domain"
	"github.com/aretw0/specfile/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the Manager.
const DefaultPrefix = "specfile:"

var _ ports.Manager = (*Manager)(nil)

// Manager implements ports.Manager using Redis strings.
// Each artifact lives under <prefix><name> and grows with APPEND.
type Manager struct {
	client    *backend.Client
	prefix    string
	ttl       time.Duration
	ownClient bool

	streams   map[string]*stream
	order     []*stream
	artifacts map[string][]string
	closed    bool
}

type Option func(*Manager)

// WithTTL sets the expiration refreshed on every flush.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithPrefix sets the key prefix for artifacts.
func WithPrefix(prefix string) Option {
	return func(m *Manager) {
		m.prefix = prefix
	}
}

// New creates a Manager with its own client. Close also closes the client.
func New(address, password string, db int, opts ...Option) *Manager {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	m := NewFromClient(rdb, opts...)
	m.ownClient = true
	return m
}

// NewFromClient creates a Manager from an existing client, which it never closes.
func NewFromClient(client *backend.Client, opts ...Option) *Manager {
	m := &Manager{
		client:    client,
		prefix:    DefaultPrefix,
		ttl:       0, // No expiration by default
		streams:   make(map[string]*stream),
		artifacts: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Key returns the Redis key an artifact name is stored under.
func (m *Manager) Key(name string) string {
	return m.prefix + name
}

// Open returns an append stream on the key for name. The offset starts at
// the current length of the key.
func (m *Manager) Open(ctx context.Context, label, name string) (ports.Stream, error) {
	if m.closed {
		return nil, domain.ErrClosed
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", domain.ErrInvalidName)
	}
	key := m.Key(name)
	if s, ok := m.streams[key]; ok {
		return s, nil
	}

	size, err := m.client.StrLen(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read length of %s: %w", key, err)
	}

	s := &stream{ctx: context.WithoutCancel(ctx), m: m, key: key, offset: size}
	m.streams[key] = s
	m.order = append(m.order, s)
	m.artifacts[label] = append(m.artifacts[label], key)
	return s, nil
}

// Artifacts returns the keys created per label.
func (m *Manager) Artifacts() map[string][]string {
	out := make(map[string][]string, len(m.artifacts))
	for label, keys := range m.artifacts {
		out[label] = append([]string(nil), keys...)
	}
	return out
}

// Close flushes every stream.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for _, s := range m.order {
		if err := s.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.ownClient {
		errs = append(errs, m.client.Close())
	}
	return errors.Join(errs...)
}

type stream struct {
	ctx     context.Context
	m       *Manager
	key     string
	pending bytes.Buffer
	offset  int64
}

func (s *stream) Write(p []byte) (int, error) {
	n, err := s.pending.Write(p)
	s.offset += int64(n)
	return n, err
}

func (s *stream) Offset() int64 {
	return s.offset
}

// Flush appends pending bytes to the key and refreshes its TTL.
func (s *stream) Flush() error {
	if s.pending.Len() == 0 {
		return nil
	}

	pipe := s.m.client.Pipeline()
	pipe.Append(s.ctx, s.key, s.pending.String())
	if s.m.ttl > 0 {
		pipe.Expire(s.ctx, s.key, s.m.ttl)
	}
	if _, err := pipe.Exec(s.ctx); err != nil {
		return fmt.Errorf("failed to append to %s: %w", s.key, err)
	}
	s.pending.Reset()
	return nil
}
