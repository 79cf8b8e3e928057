package domain

import (
	"context"
	"time"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventDocument   EventType = "document"
	EventRunStart   EventType = "run_start"
	EventRowWritten EventType = "row_written"
	EventRunStop    EventType = "run_stop"
)

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// DocumentEvent is emitted for every document handed to the serializer.
type DocumentEvent struct {
	EventBase
	Name DocumentName `json:"name"`
}

// RunEvent is emitted when a run opens and when it closes.
type RunEvent struct {
	EventBase
	RunUID     string `json:"run_uid"`
	ScanID     any    `json:"scan_id,omitempty"`
	FileName   string `json:"file_name"`
	ExitStatus string `json:"exit_status,omitempty"`
	Rows       int    `json:"rows"`
}

// RowEvent is emitted after a data row reached the stream.
type RowEvent struct {
	EventBase
	RunUID   string `json:"run_uid"`
	FileName string `json:"file_name"`
	SeqNum   int    `json:"seq_num"`
}

// LifecycleHooks defines callbacks for serializer observability.
// Any of them may be nil.
type LifecycleHooks struct {
	OnDocument   func(context.Context, *DocumentEvent)
	OnRunStart   func(context.Context, *RunEvent)
	OnRowWritten func(context.Context, *RowEvent)
	OnRunStop    func(context.Context, *RunEvent)
}

// ChainHooks returns hooks that call every given set in order.
func ChainHooks(sets ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnDocument: func(ctx context.Context, e *DocumentEvent) {
			for _, h := range sets {
				if h.OnDocument != nil {
					h.OnDocument(ctx, e)
				}
			}
		},
		OnRunStart: func(ctx context.Context, e *RunEvent) {
			for _, h := range sets {
				if h.OnRunStart != nil {
					h.OnRunStart(ctx, e)
				}
			}
		},
		OnRowWritten: func(ctx context.Context, e *RowEvent) {
			for _, h := range sets {
				if h.OnRowWritten != nil {
					h.OnRowWritten(ctx, e)
				}
			}
		},
		OnRunStop: func(ctx context.Context, e *RunEvent) {
			for _, h := range sets {
				if h.OnRunStop != nil {
					h.OnRunStop(ctx, e)
				}
			}
		},
	}
}
