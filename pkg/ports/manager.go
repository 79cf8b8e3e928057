package ports

import (
	"context"
	"io"
)

// Stream is an append-mode handle on one artifact.
type Stream interface {
	io.Writer

	// Offset returns the size of the artifact: what it held when opened plus
	// everything written since. A zero offset means the artifact is new.
	Offset() int64

	// Flush pushes buffered bytes to the backing store.
	Flush() error
}

// Manager owns the artifacts produced by an export.
// Implementations need not be safe for concurrent use.
type Manager interface {
	// Open returns an append-mode stream for name, registered under label.
	// Opening a name that is already open returns the same stream.
	// Returns domain.ErrClosed after Close and domain.ErrInvalidName for
	// names the backend cannot hold.
	Open(ctx context.Context, label, name string) (Stream, error)

	// Artifacts maps each label to the resources created under it, in
	// the order they were first opened.
	Artifacts() map[string][]string

	// Close flushes and releases every stream.
	Close() error
}
