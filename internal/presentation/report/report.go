// Package report renders the summary printed after an export.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/specfile/pkg/domain"
	"github.com/aretw0/specfile/pkg/specfmt"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Run is one finished run as seen by the Tracker.
type Run struct {
	UID        string
	ScanID     any
	File       string
	ExitStatus string
	Rows       int
}

// Tracker records runs through lifecycle hooks.
type Tracker struct {
	mu   sync.Mutex
	runs []Run
}

// Hooks returns the hooks that feed the tracker.
func (t *Tracker) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStop: func(_ context.Context, e *domain.RunEvent) {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.runs = append(t.runs, Run{
				UID:        e.RunUID,
				ScanID:     e.ScanID,
				File:       e.FileName,
				ExitStatus: e.ExitStatus,
				Rows:       e.Rows,
			})
		},
	}
}

// Runs returns the runs stopped so far, in order.
func (t *Tracker) Runs() []Run {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Run(nil), t.runs...)
}

// Markdown builds the summary document.
func Markdown(runs []Run, artifacts map[string][]string) string {
	var sb strings.Builder
	sb.WriteString("# Export summary\n\n")

	if len(runs) > 0 {
		sb.WriteString("| Run | Scan | File | Status | Rows |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, r := range runs {
			scan := ""
			if r.ScanID != nil {
				scan = specfmt.FormatValue(r.ScanID)
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %d |\n", r.UID, scan, r.File, r.ExitStatus, r.Rows)
		}
		sb.WriteString("\n")
	}

	labels := make([]string, 0, len(artifacts))
	for label := range artifacts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(&sb, "## %s\n\n", label)
		for _, name := range artifacts[label] {
			fmt.Fprintf(&sb, "- `%s`\n", name)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Renderer prints summaries, styled when writing to a terminal.
type Renderer struct {
	w      io.Writer
	styled bool
	width  int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithStyled forces styling on or off.
func WithStyled(styled bool) Option {
	return func(r *Renderer) {
		r.styled = styled
	}
}

// WithWordWrap sets the wrap width of styled output (default 100).
func WithWordWrap(width int) Option {
	return func(r *Renderer) {
		r.width = width
	}
}

// NewRenderer creates a Renderer over w. Styling is on when w is a terminal.
func NewRenderer(w io.Writer, opts ...Option) *Renderer {
	r := &Renderer{w: w, styled: isTerminal(w), width: 100}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render prints the summary followed by a status line.
func (r *Renderer) Render(runs []Run, artifacts map[string][]string, exportErr error) error {
	md := Markdown(runs, artifacts)
	if r.styled {
		tr, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(), // Automatically detect light/dark background
			glamour.WithWordWrap(r.width),
		)
		if err != nil {
			return fmt.Errorf("failed to create markdown renderer: %w", err)
		}
		if md, err = tr.Render(md); err != nil {
			return fmt.Errorf("failed to render summary: %w", err)
		}
	}
	if _, err := io.WriteString(r.w, md); err != nil {
		return err
	}
	_, err := fmt.Fprintln(r.w, r.status(runs, exportErr))
	return err
}

func (r *Renderer) status(runs []Run, exportErr error) string {
	var out *termenv.Output
	if r.styled {
		out = termenv.NewOutput(r.w)
	} else {
		out = termenv.NewOutput(r.w, termenv.WithProfile(termenv.Ascii))
	}

	rows := 0
	for _, run := range runs {
		rows += run.Rows
	}

	if exportErr != nil {
		return out.String(fmt.Sprintf("✗ export failed after %d runs: %v", len(runs), exportErr)).
			Foreground(out.Color("#f87171")).Bold().String()
	}
	return out.String(fmt.Sprintf("✓ exported %d runs, %d rows", len(runs), rows)).
		Foreground(out.Color("#4ade80")).String()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
