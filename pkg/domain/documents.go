package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Document is a single (name, body) pair yielded by a data source.
type Document struct {
	Name DocumentName   `json:"name"`
	Body map[string]any `json:"doc"`
}

// PlanArgs holds the arguments the acquisition plan was invoked with.
// For scan plans the trailing two Args are the start and stop positions.
type PlanArgs struct {
	Args  []any          `mapstructure:"args"`
	Num   any            `mapstructure:"num"`
	Extra map[string]any `mapstructure:",remain"`
}

// RunStart opens a run.
type RunStart struct {
	UID       string         `mapstructure:"uid"`
	Time      float64        `mapstructure:"time"`
	ScanID    any            `mapstructure:"scan_id"`
	PlanName  string         `mapstructure:"plan_name"`
	Motors    []string       `mapstructure:"motors"`
	Owner     string         `mapstructure:"owner"`
	CountTime any            `mapstructure:"count_time"`
	PlanArgs  PlanArgs       `mapstructure:"plan_args"`
	Extra     map[string]any `mapstructure:",remain"`

	// Raw is the undecoded body, exposed to file name templates.
	Raw map[string]any `mapstructure:"-"`
}

// DataKey describes one column of an event stream.
type DataKey struct {
	Source     string         `mapstructure:"source"`
	Dtype      string         `mapstructure:"dtype"`
	Shape      []int          `mapstructure:"shape"`
	ObjectName string         `mapstructure:"object_name"`
	Extra      map[string]any `mapstructure:",remain"`
}

// Scalar reports whether the key holds a single value per event.
func (k DataKey) Scalar() bool {
	return len(k.Shape) == 0
}

// Descriptor describes an event stream of a run.
type Descriptor struct {
	UID      string             `mapstructure:"uid"`
	RunStart string             `mapstructure:"run_start"`
	Name     string             `mapstructure:"name"`
	Time     float64            `mapstructure:"time"`
	DataKeys map[string]DataKey `mapstructure:"data_keys"`
	Extra    map[string]any     `mapstructure:",remain"`
}

// IsBaseline reports whether the descriptor is the positioner snapshot stream.
func (d *Descriptor) IsBaseline() bool {
	return d != nil && d.Name == StreamBaseline
}

// Event is one row of readings.
type Event struct {
	UID        string         `mapstructure:"uid"`
	Descriptor string         `mapstructure:"descriptor"`
	SeqNum     int            `mapstructure:"seq_num"`
	Time       float64        `mapstructure:"time"`
	Data       map[string]any `mapstructure:"data"`
	Timestamps map[string]any `mapstructure:"timestamps"`
	Extra      map[string]any `mapstructure:",remain"`
}

// EventPage is the columnar form of a batch of events sharing one descriptor.
type EventPage struct {
	Descriptor string           `mapstructure:"descriptor"`
	UID        []string         `mapstructure:"uid"`
	SeqNum     []int            `mapstructure:"seq_num"`
	Time       []float64        `mapstructure:"time"`
	Data       map[string][]any `mapstructure:"data"`
	Timestamps map[string][]any `mapstructure:"timestamps"`
}

// Events unpacks the page into individual events, preserving order.
func (p *EventPage) Events() ([]Event, error) {
	n := len(p.SeqNum)
	if len(p.Time) != n || (p.UID != nil && len(p.UID) != n) {
		return nil, fmt.Errorf("event_page: column lengths differ (seq_num=%d, time=%d, uid=%d)",
			n, len(p.Time), len(p.UID))
	}
	for k, col := range p.Data {
		if len(col) != n {
			return nil, fmt.Errorf("event_page: data column %q has %d rows, want %d", k, len(col), n)
		}
	}
	for k, col := range p.Timestamps {
		if len(col) != n {
			return nil, fmt.Errorf("event_page: timestamps column %q has %d rows, want %d", k, len(col), n)
		}
	}

	events := make([]Event, n)
	for i := 0; i < n; i++ {
		ev := Event{
			Descriptor: p.Descriptor,
			SeqNum:     p.SeqNum[i],
			Time:       p.Time[i],
			Data:       make(map[string]any, len(p.Data)),
			Timestamps: make(map[string]any, len(p.Timestamps)),
		}
		if p.UID != nil {
			ev.UID = p.UID[i]
		}
		for k, col := range p.Data {
			ev.Data[k] = col[i]
		}
		for k, col := range p.Timestamps {
			ev.Timestamps[k] = col[i]
		}
		events[i] = ev
	}
	return events, nil
}

// RunStop closes a run.
type RunStop struct {
	UID        string         `mapstructure:"uid"`
	RunStart   string         `mapstructure:"run_start"`
	Time       float64        `mapstructure:"time"`
	ExitStatus string         `mapstructure:"exit_status"`
	Reason     string         `mapstructure:"reason"`
	NumEvents  map[string]int `mapstructure:"num_events"`
	Extra      map[string]any `mapstructure:",remain"`
}

// Succeeded reports whether the run completed normally.
func (s *RunStop) Succeeded() bool {
	return s.ExitStatus == ExitSuccess
}

// DecodeRunStart decodes a start document body.
func DecodeRunStart(body map[string]any) (*RunStart, error) {
	if err := requireFields(DocStart, body, "uid", "time"); err != nil {
		return nil, err
	}
	var start RunStart
	if err := decode(DocStart, body, &start); err != nil {
		return nil, err
	}
	start.Raw = body
	return &start, nil
}

// DecodeDescriptor decodes a descriptor document body.
func DecodeDescriptor(body map[string]any) (*Descriptor, error) {
	if err := requireFields(DocDescriptor, body, "uid", "data_keys"); err != nil {
		return nil, err
	}
	var desc Descriptor
	if err := decode(DocDescriptor, body, &desc); err != nil {
		return nil, err
	}
	return &desc, nil
}

// DecodeEvent decodes an event document body.
func DecodeEvent(body map[string]any) (*Event, error) {
	if err := requireFields(DocEvent, body, "descriptor", "time", "data"); err != nil {
		return nil, err
	}
	var ev Event
	if err := decode(DocEvent, body, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// DecodeEventPage decodes an event_page document body.
func DecodeEventPage(body map[string]any) (*EventPage, error) {
	if err := requireFields(DocEventPage, body, "descriptor", "seq_num", "time", "data"); err != nil {
		return nil, err
	}
	var page EventPage
	if err := decode(DocEventPage, body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DecodeRunStop decodes a stop document body.
func DecodeRunStop(body map[string]any) (*RunStop, error) {
	if err := requireFields(DocStop, body, "exit_status"); err != nil {
		return nil, err
	}
	var stop RunStop
	if err := decode(DocStop, body, &stop); err != nil {
		return nil, err
	}
	return &stop, nil
}

func requireFields(doc DocumentName, body map[string]any, keys ...string) error {
	for _, k := range keys {
		if v, ok := body[k]; !ok || v == nil {
			return MissingField(doc, k)
		}
	}
	return nil
}

func decode(doc DocumentName, body map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "mapstructure",
		Result:  out,
	})
	if err != nil {
		return fmt.Errorf("failed to build %s decoder: %w", doc, err)
	}
	if err := dec.Decode(body); err != nil {
		return fmt.Errorf("failed to decode %s document: %w", doc, err)
	}
	return nil
}
