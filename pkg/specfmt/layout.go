package specfmt

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/aretw0/specfile/pkg/domain"
)

var funcs = template.FuncMap{"join": strings.Join}

var fileHeaderTemplate = template.Must(template.New("file_header").Funcs(funcs).Parse(
	`#F {{ .FileName }}
#E {{ .UnixTime }}
#D {{ .ReadableTime }}
#C {{ .Owner }}  User = {{ .Owner }}
#O0 {{ join .Sources "  " }}
#o0 {{ join .Names " " }}`))

var scanHeaderTemplate = template.Must(template.New("scan_header").Funcs(funcs).Parse(
	"\n\n" + `#S {{ .ScanID }} {{ .Command }}
#D {{ .ReadableTime }}
#T {{ .AcqTime }}  (Seconds)
#P0 {{ join .Positions " " }}
#N {{ .NumColumns }}
#L {{ .MotorName }}  Epoch  Seconds  {{ join .Columns "  " }}`))

var dataRowTemplate = template.Must(template.New("data_row").Funcs(funcs).Parse(
	`{{ .MotorPosition }}  {{ .UnixTime }} {{ .AcqTime }} {{ join .Values " " }}`))

// Formatter renders the blocks of a spec file.
type Formatter struct {
	loc     *time.Location
	lenient bool
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithLocation sets the zone readable timestamps are rendered in (default time.Local).
func WithLocation(loc *time.Location) Option {
	return func(f *Formatter) {
		if loc != nil {
			f.loc = loc
		}
	}
}

// WithLenient makes multi-motor scans fall back to the sequence number instead of failing.
func WithLenient(lenient bool) Option {
	return func(f *Formatter) {
		f.lenient = lenient
	}
}

// New creates a Formatter.
func New(opts ...Option) *Formatter {
	f := &Formatter{loc: time.Local}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Location returns the zone readable timestamps are rendered in.
func (f *Formatter) Location() *time.Location {
	return f.loc
}

// FileHeader renders the block written once at the top of a new file.
// The positioner lines come from the baseline descriptor, which may be nil.
func (f *Formatter) FileHeader(start *domain.RunStart, filePath string, baseline *domain.Descriptor) (string, error) {
	var names, sources []string
	if baseline != nil {
		names = make([]string, 0, len(baseline.DataKeys))
		for name := range baseline.DataKeys {
			names = append(names, name)
		}
		sort.Strings(names)
		sources = make([]string, len(names))
		for i, name := range names {
			sources[i] = baseline.DataKeys[name].Source
		}
	}

	return render(fileHeaderTemplate, map[string]any{
		"FileName":     filepath.Base(filePath),
		"UnixTime":     Epoch(start.Time),
		"ReadableTime": ToSpecTime(UnixTime(start.Time, f.loc)),
		"Owner":        start.Owner,
		"Sources":      sources,
		"Names":        names,
	})
}

// ScanHeader renders the block that opens a scan. The baseline event, which
// may be nil, supplies the #P0 positions.
func (f *Formatter) ScanHeader(start *domain.RunStart, primary *domain.Descriptor, baseline *domain.Event) (string, error) {
	if start.ScanID == nil {
		return "", domain.MissingField(domain.DocStart, "scan_id")
	}
	cmd, err := f.command(start)
	if err != nil {
		return "", err
	}
	motor, err := f.MotorName(start)
	if err != nil {
		return "", err
	}
	cols, err := f.DataColumns(start, primary)
	if err != nil {
		return "", err
	}

	var positions []string
	if baseline != nil {
		keys := make([]string, 0, len(baseline.Data))
		for k := range baseline.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		positions = make([]string, len(keys))
		for i, k := range keys {
			positions[i] = FormatValue(baseline.Data[k])
		}
	}

	return render(scanHeaderTemplate, map[string]any{
		"ScanID":       FormatValue(start.ScanID),
		"Command":      cmd,
		"ReadableTime": ToSpecTime(UnixTime(start.Time, f.loc)),
		"AcqTime":      FormatValue(AcqTime(start)),
		"Positions":    positions,
		"NumColumns":   3 + len(cols),
		"MotorName":    motor,
		"Columns":      cols,
	})
}

// DataRow renders one event as a table row, without line terminators.
func (f *Formatter) DataRow(start *domain.RunStart, primary *domain.Descriptor, ev *domain.Event) (string, error) {
	pos, err := f.MotorPosition(start, ev)
	if err != nil {
		return "", err
	}
	cols, err := f.DataColumns(start, primary)
	if err != nil {
		return "", err
	}
	values := make([]string, len(cols))
	for i, c := range cols {
		v, ok := ev.Data[c]
		if !ok {
			return "", domain.MissingField(domain.DocEvent, "data."+c)
		}
		values[i] = FormatValue(v)
	}

	return render(dataRowTemplate, map[string]any{
		"MotorPosition": FormatValue(pos),
		"UnixTime":      Epoch(ev.Time),
		"AcqTime":       FormatValue(AcqTime(start)),
		"Values":        values,
	})
}

// DefaultStopReason fills in stop documents that carry no reason.
const DefaultStopReason = "No reason recorded."

// StopLine returns the comment recorded for runs that did not succeed, or "".
func StopLine(stop *domain.RunStop) string {
	if stop.Succeeded() {
		return ""
	}
	reason := stop.Reason
	if reason == "" {
		reason = DefaultStopReason
	}
	return fmt.Sprintf("#C Run exited with status: %s. Reason: %s", stop.ExitStatus, reason)
}

func render(t *template.Template, data map[string]any) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", t.Name(), err)
	}
	return sb.String(), nil
}
