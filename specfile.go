package specfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/specfile/internal/runtime"
	"github.com/aretw0/specfile/pkg/domain"
	"github.com/aretw0/specfile/pkg/ports"
)

// Serializer is the high-level entry point of the library.
// It wraps the internal runtime and writes one spec file per run through a ports.Manager.
type Serializer struct {
	runtime *runtime.Serializer
	manager ports.Manager
}

// Option defines a functional option for configuring the Serializer.
type Option func(*runtime.Config)

// WithFilePrefix sets the text/template used to name files; ".spec" is appended.
// The start document is available as .start, and {{date layout epoch}} formats times.
// Plain actions print values with Go formatting, so a list renders as [th];
// {{repr .start.motors}} renders it as the spec file would, ['th'].
// Default: "{{.start.uid}}".
func WithFilePrefix(prefix string) Option {
	return func(c *runtime.Config) {
		c.FilePrefix = prefix
	}
}

// WithFlush flushes the stream after every data row.
func WithFlush(flush bool) Option {
	return func(c *runtime.Config) {
		c.Flush = flush
	}
}

// WithLenient ignores extra event streams and falls back to the sequence
// number for scans that move several motors, instead of failing.
func WithLenient(lenient bool) Option {
	return func(c *runtime.Config) {
		c.Lenient = lenient
	}
}

// WithLocation sets the time zone of readable timestamps (default: time.Local).
func WithLocation(loc *time.Location) Option {
	return func(c *runtime.Config) {
		c.Location = loc
	}
}

// WithLogger sets a custom structured logger for the serializer.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runtime.Config) {
		c.Logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *runtime.Config) {
		c.Hooks = hooks
	}
}

// NewSerializer creates a Serializer writing through manager.
func NewSerializer(manager ports.Manager, opts ...Option) (*Serializer, error) {
	cfg := runtime.Config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	// Ensure logger is initialized so the runtime never logs to a nil handler
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	rt, err := runtime.New(manager, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create serializer: %w", err)
	}
	return &Serializer{runtime: rt, manager: manager}, nil
}

// Handle consumes one document of the stream.
func (s *Serializer) Handle(ctx context.Context, doc domain.Document) error {
	return s.runtime.Handle(ctx, doc)
}

// Artifacts returns the resources written so far, keyed by label.
func (s *Serializer) Artifacts() map[string][]string {
	return s.runtime.Artifacts()
}

// Close releases the manager.
func (s *Serializer) Close() error {
	return s.runtime.Close()
}

// Export drains source into spec files and returns the artifacts created.
// The manager is closed whether or not an error occurs.
func Export(ctx context.Context, source ports.DocumentSource, manager ports.Manager, opts ...Option) (map[string][]string, error) {
	if manager == nil {
		return nil, fmt.Errorf("manager is required")
	}
	s, err := NewSerializer(manager, opts...)
	if err != nil {
		return nil, errors.Join(err, manager.Close())
	}

	var runErr error
	for {
		doc, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			runErr = fmt.Errorf("failed to read document: %w", err)
			break
		}
		if err := s.Handle(ctx, doc); err != nil {
			runErr = fmt.Errorf("failed to handle %s document: %w", doc.Name, err)
			break
		}
	}

	artifacts := s.Artifacts()
	if err := s.Close(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to close manager: %w", err))
	}
	return artifacts, runErr
}
