// Package jsonl reads and writes document streams as newline-delimited JSON.
//
// Each line holds one document, either as a pair:
//
//	["start", {"uid": "...", "time": 1455890495.5}]
//
// or as an object:
//
//	{"name": "start", "doc": {"uid": "...", "time": 1455890495.5}}
//
// Numbers are kept as json.Number so values reach the spec file as written.
// The bare NaN, Infinity and -Infinity tokens written by Python encoders are
// accepted and decoded as float64 values.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/aretw0/specfile/pkg/domain"
	"github.com/aretw0/specfile/pkg/ports"
)

// ErrMalformed is returned for lines that are not a document.
var ErrMalformed = errors.New("malformed document line")

var _ ports.DocumentSource = (*Source)(nil)

// Source implements ports.DocumentSource over an io.Reader.
type Source struct {
	reader *bufio.Reader
	line   int
	done   bool
}

// NewSource creates a Source reading from r.
func NewSource(r io.Reader) *Source {
	return &Source{reader: bufio.NewReader(r)}
}

// Line returns the number of the last line read.
func (s *Source) Line() int {
	return s.line
}

// Next returns the next document. Blank lines are skipped.
func (s *Source) Next(ctx context.Context) (domain.Document, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Document{}, err
		}
		if s.done {
			return domain.Document{}, io.EOF
		}

		text, err := s.reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return domain.Document{}, fmt.Errorf("failed to read line %d: %w", s.line+1, err)
			}
			s.done = true
			if text == "" {
				return domain.Document{}, io.EOF
			}
		}
		s.line++

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		doc, err := parseLine(text)
		if err != nil {
			return domain.Document{}, fmt.Errorf("line %d: %w", s.line, err)
		}
		return doc, nil
	}
}

type namedDoc struct {
	Name string         `json:"name"`
	Doc  map[string]any `json:"doc"`
}

func parseLine(text string) (domain.Document, error) {
	text, special := quoteNonFinite(text)
	doc, err := parseDocument(text)
	if err != nil || !special {
		return doc, err
	}
	doc.Body = restoreNonFinite(doc.Body).(map[string]any)
	return doc, nil
}

func parseDocument(text string) (domain.Document, error) {
	switch text[0] {
	case '[':
		var pair []json.RawMessage
		if err := unmarshal(text, &pair); err != nil {
			return domain.Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if len(pair) != 2 {
			return domain.Document{}, fmt.Errorf("%w: expected [name, doc], got %d elements", ErrMalformed, len(pair))
		}
		var name string
		if err := unmarshal(string(pair[0]), &name); err != nil {
			return domain.Document{}, fmt.Errorf("%w: name: %v", ErrMalformed, err)
		}
		var body map[string]any
		if err := unmarshal(string(pair[1]), &body); err != nil {
			return domain.Document{}, fmt.Errorf("%w: doc: %v", ErrMalformed, err)
		}
		if body == nil {
			body = map[string]any{}
		}
		return domain.Document{Name: domain.DocumentName(name), Body: body}, nil

	case '{':
		var nd namedDoc
		if err := unmarshal(text, &nd); err != nil {
			return domain.Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if nd.Name == "" {
			return domain.Document{}, fmt.Errorf("%w: missing \"name\"", ErrMalformed)
		}
		if nd.Doc == nil {
			nd.Doc = map[string]any{}
		}
		return domain.Document{Name: domain.DocumentName(nd.Name), Body: nd.Doc}, nil
	}
	return domain.Document{}, fmt.Errorf("%w: expected a JSON array or object", ErrMalformed)
}

func unmarshal(text string, v any) error {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after document")
	}
	return nil
}

// Placeholders for non-finite numbers while the line goes through encoding/json.
const (
	nanMarker    = "\x00specfile:NaN"
	posInfMarker = "\x00specfile:+Inf"
	negInfMarker = "\x00specfile:-Inf"
)

var nonFiniteTokens = []struct {
	token  string
	marker string
}{
	{"NaN", nanMarker},
	{"-Infinity", negInfMarker},
	{"Infinity", posInfMarker},
}

// quoteNonFinite replaces NaN, Infinity and -Infinity outside of strings with
// quoted markers. It reports whether any token was replaced.
func quoteNonFinite(text string) (string, bool) {
	if !strings.ContainsAny(text, "NI") {
		return text, false
	}

	var sb strings.Builder
	replaced := false
	inString := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			sb.WriteByte(c)
			switch c {
			case '\\':
				if i+1 < len(text) {
					i++
					sb.WriteByte(text[i])
				}
			case '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			sb.WriteByte(c)
			continue
		}
		matched := false
		for _, nf := range nonFiniteTokens {
			if strings.HasPrefix(text[i:], nf.token) {
				b, _ := json.Marshal(nf.marker)
				sb.Write(b)
				i += len(nf.token) - 1
				matched, replaced = true, true
				break
			}
		}
		if !matched {
			sb.WriteByte(c)
		}
	}
	return sb.String(), replaced
}

// restoreNonFinite swaps the markers left by quoteNonFinite for float64 values.
func restoreNonFinite(v any) any {
	switch x := v.(type) {
	case string:
		switch x {
		case nanMarker:
			return math.NaN()
		case posInfMarker:
			return math.Inf(1)
		case negInfMarker:
			return math.Inf(-1)
		}
	case map[string]any:
		for k, e := range x {
			x[k] = restoreNonFinite(e)
		}
	case []any:
		for i, e := range x {
			x[i] = restoreNonFinite(e)
		}
	}
	return v
}

// Writer encodes documents as JSON-Lines pairs.
type Writer struct {
	w io.Writer
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write emits one ["name", {...}] line.
func (w *Writer) Write(doc domain.Document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode([]any{string(doc.Name), doc.Body}); err != nil {
		return fmt.Errorf("failed to encode %s document: %w", doc.Name, err)
	}
	_, err := w.w.Write(buf.Bytes())
	return err
}
