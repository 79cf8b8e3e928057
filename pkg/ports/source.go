package ports

import (
	"context"

	"github.com/aretw0/specfile/pkg/domain"
)

// DocumentSource yields documents in stream order.
type DocumentSource interface {
	// Next returns the next document, or io.EOF once the source is drained.
	Next(ctx context.Context) (domain.Document, error)
}
