package memory

import (
	"context"
	"io"

	"github.com/aretw0/specfile/pkg/domain"
	"github.com/aretw0/specfile/pkg/ports"
)

var _ ports.DocumentSource = (*Source)(nil)

// Source implements ports.DocumentSource over a fixed slice.
type Source struct {
	docs []domain.Document
	pos  int
}

// NewSource creates a source that yields docs in order.
func NewSource(docs ...domain.Document) *Source {
	return &Source{docs: docs}
}

// Next returns the next document, or io.EOF once all were returned.
func (s *Source) Next(ctx context.Context) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	if s.pos >= len(s.docs) {
		return domain.Document{}, io.EOF
	}
	doc := s.docs[s.pos]
	s.pos++
	return doc, nil
}
