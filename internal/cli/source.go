package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/specfile/pkg/adapters/jsonl"
	"github.com/aretw0/specfile/pkg/domain"
	"github.com/aretw0/specfile/pkg/ports"
)

// StdinName selects standard input among the export inputs.
const StdinName = "-"

var _ ports.DocumentSource = (*inputSource)(nil)

// inputSource reads JSON-Lines documents from several inputs, one after the other.
type inputSource struct {
	names []string
	stdin io.Reader
	next  int

	name   string
	cur    *jsonl.Source
	closer io.Closer
}

func newInputSource(ctx context.Context, names []string, stdin io.Reader) *inputSource {
	if len(names) == 0 {
		names = []string{StdinName}
	}
	return &inputSource{names: names, stdin: NewInterruptibleReader(ctx, stdin)}
}

func (s *inputSource) Next(ctx context.Context) (domain.Document, error) {
	for {
		if s.cur == nil {
			if s.next >= len(s.names) {
				return domain.Document{}, io.EOF
			}
			if err := s.open(s.names[s.next]); err != nil {
				return domain.Document{}, err
			}
			s.next++
		}

		doc, err := s.cur.Next(ctx)
		if errors.Is(err, io.EOF) {
			if err := s.Close(); err != nil {
				return domain.Document{}, err
			}
			continue
		}
		if err != nil {
			return domain.Document{}, fmt.Errorf("%s: %w", s.name, err)
		}
		return doc, nil
	}
}

func (s *inputSource) open(name string) error {
	s.name = name
	if name == StdinName {
		s.name = "stdin"
		s.cur = jsonl.NewSource(s.stdin)
		return nil
	}
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	s.cur = jsonl.NewSource(f)
	s.closer = f
	return nil
}

// Close releases the current input.
func (s *inputSource) Close() error {
	s.cur = nil
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
