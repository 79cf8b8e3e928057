package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/specfile/pkg/domain"
	"github.com/aretw0/specfile/pkg/ports"
	"github.com/aretw0/specfile/pkg/specfmt"
)

// Config carries the serializer settings.
type Config struct {
	FilePrefix string
	Flush      bool
	Lenient    bool
	Location   *time.Location
	Logger     *slog.Logger
	Hooks      domain.LifecycleHooks
}

// Serializer turns a document stream into spec files, one run at a time.
// It is not safe for concurrent use.
type Serializer struct {
	manager   ports.Manager
	formatter *specfmt.Formatter
	namer     *fileNamer
	flush     bool
	lenient   bool
	hooks     domain.LifecycleHooks
	logger    *slog.Logger

	run    *run
	closed bool
}

// run holds everything that is reset when a new start document arrives.
type run struct {
	start    *domain.RunStart
	fileName string
	stream   ports.Stream
	logger   *slog.Logger

	needsFileHeader bool
	baseline        *domain.Descriptor
	primary         *domain.Descriptor
	ignored         map[string]bool
	baselineEvent   *domain.Event
	scanHeader      bool
	rows            int
}

// New creates a Serializer writing through manager.
func New(manager ports.Manager, cfg Config) (*Serializer, error) {
	if manager == nil {
		return nil, fmt.Errorf("manager is required")
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	namer, err := newFileNamer(cfg.FilePrefix, loc)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Serializer{
		manager: manager,
		formatter: specfmt.New(
			specfmt.WithLocation(loc),
			specfmt.WithLenient(cfg.Lenient),
		),
		namer:   namer,
		flush:   cfg.Flush,
		lenient: cfg.Lenient,
		hooks:   cfg.Hooks,
		logger:  logger,
	}, nil
}

// Handle routes one document.
func (s *Serializer) Handle(ctx context.Context, doc domain.Document) error {
	if s.closed {
		return domain.ErrClosed
	}
	if !doc.Name.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownDocument, doc.Name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.hooks.OnDocument != nil {
		s.hooks.OnDocument(ctx, &domain.DocumentEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventDocument},
			Name:      doc.Name,
		})
	}

	switch doc.Name {
	case domain.DocStart:
		return s.handleStart(ctx, doc.Body)
	case domain.DocDescriptor:
		return s.handleDescriptor(doc.Body)
	case domain.DocEvent:
		ev, err := domain.DecodeEvent(doc.Body)
		if err != nil {
			return err
		}
		return s.handleEvent(ctx, ev)
	case domain.DocEventPage:
		return s.handleEventPage(ctx, doc.Body)
	case domain.DocStop:
		return s.handleStop(ctx, doc.Body)
	default:
		// resource, datum and datum_page carry nothing the format can show.
		s.logger.Debug("ignoring document", "name", doc.Name)
		return nil
	}
}

// Artifacts returns the resources created so far, by label.
func (s *Serializer) Artifacts() map[string][]string {
	return s.manager.Artifacts()
}

// Close closes the manager. A run without a stop document is left as written.
func (s *Serializer) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.run != nil {
		s.run.logger.Warn("closing before the run stopped", "rows", s.run.rows)
		s.run = nil
	}
	return s.manager.Close()
}

func (s *Serializer) handleStart(ctx context.Context, body map[string]any) error {
	start, err := domain.DecodeRunStart(body)
	if err != nil {
		return err
	}
	if s.run != nil {
		s.run.logger.Warn("new run started before the previous one stopped", "next_run_uid", start.UID)
	}
	s.run = nil

	name, err := s.namer.Name(start)
	if err != nil {
		return err
	}
	stream, err := s.manager.Open(ctx, domain.LabelStreamData, name)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}

	s.run = &run{
		start:           start,
		fileName:        name,
		stream:          stream,
		logger:          s.logger.With("run_uid", start.UID),
		needsFileHeader: stream.Offset() == 0,
		ignored:         make(map[string]bool),
	}
	s.run.logger.Debug("run started", "file", name, "new_file", s.run.needsFileHeader)

	if s.hooks.OnRunStart != nil {
		s.hooks.OnRunStart(ctx, &domain.RunEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRunStart},
			RunUID:    start.UID,
			ScanID:    start.ScanID,
			FileName:  name,
		})
	}
	return nil
}

func (s *Serializer) handleDescriptor(body map[string]any) error {
	if s.run == nil {
		return fmt.Errorf("%w: descriptor", domain.ErrNoRunStart)
	}
	desc, err := domain.DecodeDescriptor(body)
	if err != nil {
		return err
	}
	r := s.run

	switch {
	case desc.IsBaseline():
		r.baseline = desc
	case r.primary == nil || r.primary.UID == desc.UID:
		r.primary = desc
	case s.lenient:
		r.ignored[desc.UID] = true
		r.logger.Warn("ignoring extra event stream", "stream", desc.Name, "descriptor", desc.UID)
	default:
		return fmt.Errorf("%w: %q after %q", domain.ErrMultipleStreams, desc.Name, r.primary.Name)
	}
	return nil
}

func (s *Serializer) handleEventPage(ctx context.Context, body map[string]any) error {
	if s.run == nil {
		return fmt.Errorf("%w: event_page", domain.ErrNoRunStart)
	}
	page, err := domain.DecodeEventPage(body)
	if err != nil {
		return err
	}
	events, err := page.Events()
	if err != nil {
		return err
	}
	for i := range events {
		if err := s.handleEvent(ctx, &events[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serializer) handleEvent(ctx context.Context, ev *domain.Event) error {
	r := s.run
	if r == nil {
		return fmt.Errorf("%w: event", domain.ErrNoRunStart)
	}

	if r.baseline != nil && ev.Descriptor == r.baseline.UID {
		r.baselineEvent = ev
		return nil
	}
	if r.ignored[ev.Descriptor] {
		return nil
	}
	if r.primary == nil {
		return domain.ErrNoPrimaryDescriptor
	}
	if ev.Descriptor != r.primary.UID {
		return fmt.Errorf("%w: event from unknown descriptor %q", domain.ErrMultipleStreams, ev.Descriptor)
	}

	if err := s.writeHeaders(r); err != nil {
		return err
	}

	row, err := s.formatter.DataRow(r.start, r.primary, ev)
	if err != nil {
		return fmt.Errorf("failed to format event %d: %w", ev.SeqNum, err)
	}
	if err := s.write(r, "\n"+row); err != nil {
		return err
	}
	if s.flush {
		if err := r.stream.Flush(); err != nil {
			return fmt.Errorf("failed to flush %s: %w", r.fileName, err)
		}
	}
	r.rows++

	if s.hooks.OnRowWritten != nil {
		s.hooks.OnRowWritten(ctx, &domain.RowEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRowWritten},
			RunUID:    r.start.UID,
			FileName:  r.fileName,
			SeqNum:    ev.SeqNum,
		})
	}
	return nil
}

// writeHeaders emits the file header of a new file and the scan header,
// both only once per run, ahead of the first row or the exit status.
func (s *Serializer) writeHeaders(r *run) error {
	if r.scanHeader {
		return nil
	}
	if r.needsFileHeader {
		header, err := s.formatter.FileHeader(r.start, r.fileName, r.baseline)
		if err != nil {
			return err
		}
		if err := s.write(r, header); err != nil {
			return err
		}
		r.needsFileHeader = false
	}

	primary := r.primary
	if primary == nil {
		primary = &domain.Descriptor{}
	}
	header, err := s.formatter.ScanHeader(r.start, primary, r.baselineEvent)
	if err != nil {
		return err
	}
	if err := s.write(r, header); err != nil {
		return err
	}
	r.scanHeader = true
	return nil
}

func (s *Serializer) handleStop(ctx context.Context, body map[string]any) error {
	r := s.run
	if r == nil {
		return fmt.Errorf("%w: stop", domain.ErrNoRunStart)
	}
	stop, err := domain.DecodeRunStop(body)
	if err != nil {
		return err
	}

	// A failed run keeps its headers and exit status even without rows.
	line := specfmt.StopLine(stop)
	if line != "" {
		if err := s.writeHeaders(r); err != nil {
			return err
		}
		if err := s.write(r, "\n"+line); err != nil {
			return err
		}
	}
	if r.scanHeader {
		if err := s.write(r, "\n"); err != nil {
			return err
		}
	}
	if err := r.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", r.fileName, err)
	}

	r.logger.Info("run finished", "file", r.fileName, "exit_status", stop.ExitStatus, "rows", r.rows)
	if s.hooks.OnRunStop != nil {
		s.hooks.OnRunStop(ctx, &domain.RunEvent{
			EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventRunStop},
			RunUID:     r.start.UID,
			ScanID:     r.start.ScanID,
			FileName:   r.fileName,
			ExitStatus: stop.ExitStatus,
			Rows:       r.rows,
		})
	}
	s.run = nil
	return nil
}

func (s *Serializer) write(r *run, text string) error {
	if _, err := io.WriteString(r.stream, text); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.fileName, err)
	}
	return nil
}
