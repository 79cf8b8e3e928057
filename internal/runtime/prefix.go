package runtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/aretw0/specfile/pkg/domain"
	"github.com/aretw0/specfile/pkg/specfmt"
)

// fileNamer renders artifact names from the start document.
// The template sees the raw start document as .start.
type fileNamer struct {
	tmpl *template.Template
}

func newFileNamer(prefix string, loc *time.Location) (*fileNamer, error) {
	if prefix == "" {
		prefix = domain.DefaultFilePrefix
	}
	funcs := template.FuncMap{
		// date formats an epoch with a Go layout: {{ date "2006-01-02" .start.time }}
		"date": func(layout string, epoch any) (string, error) {
			f, err := toFloat(epoch)
			if err != nil {
				return "", err
			}
			return specfmt.UnixTime(f, loc).Format(layout), nil
		},
		// repr renders a value the way spec files show it: {{ repr .start.motors }} gives ['th']
		"repr": specfmt.FormatValue,
	}
	tmpl, err := template.New("file_prefix").Funcs(funcs).Option("missingkey=error").Parse(prefix)
	if err != nil {
		return nil, fmt.Errorf("invalid file prefix %q: %w", prefix, err)
	}
	return &fileNamer{tmpl: tmpl}, nil
}

// Name returns the rendered prefix with the spec extension.
func (n *fileNamer) Name(start *domain.RunStart) (string, error) {
	var sb strings.Builder
	if err := n.tmpl.Execute(&sb, map[string]any{"start": start.Raw}); err != nil {
		return "", fmt.Errorf("failed to render file prefix: %w", err)
	}
	name := strings.TrimSpace(sb.String())
	if name == "" {
		return "", fmt.Errorf("%w: file prefix rendered empty", domain.ErrInvalidName)
	}
	return name + domain.FileExtension, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}
