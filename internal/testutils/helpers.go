package testutils

import (
	"encoding/json"
	"maps"

	"github.com/aretw0/specfile/pkg/domain"
	"github.com/google/uuid"
)

// StartTime is the epoch every fixture run starts at (Fri Feb 19 14:01:35 2016 UTC).
const StartTime = 1455890495.0

// Run builds the documents of one run. Every uid is a fresh UUID.
type Run struct {
	StartUID    string
	PrimaryUID  string
	BaselineUID string
}

// NewRun creates a Run with new uids.
func NewRun() *Run {
	return &Run{
		StartUID:    uuid.NewString(),
		PrimaryUID:  uuid.NewString(),
		BaselineUID: uuid.NewString(),
	}
}

// Start returns a count-plan start document; fields override the defaults.
func (r *Run) Start(fields map[string]any) domain.Document {
	body := map[string]any{
		"uid":        r.StartUID,
		"time":       StartTime,
		"scan_id":    json.Number("1"),
		"plan_name":  "count",
		"owner":      "xf23",
		"count_time": json.Number("0.1"),
		"plan_args":  map[string]any{},
	}
	maps.Copy(body, fields)
	return domain.Document{Name: domain.DocStart, Body: body}
}

// ScanStart returns the start document of a one-motor absolute scan.
func (r *Run) ScanStart(motor string, from, to, num int) domain.Document {
	return r.Start(map[string]any{
		"plan_name": "scan",
		"motors":    []any{motor},
		"plan_args": map[string]any{
			"args": []any{"EpicsMotor(" + motor + ")", from, to},
			"num":  num,
		},
	})
}

// Primary returns the descriptor of the primary stream.
// Each key maps to its source; object_name equals the key.
func (r *Run) Primary(sources map[string]string) domain.Document {
	return r.descriptor(r.PrimaryUID, "primary", sources)
}

// Baseline returns the descriptor of the baseline stream.
func (r *Run) Baseline(sources map[string]string) domain.Document {
	return r.descriptor(r.BaselineUID, domain.StreamBaseline, sources)
}

// Extra returns a descriptor of a further stream with its own uid.
func (r *Run) Extra(name string, sources map[string]string) (domain.Document, string) {
	uid := uuid.NewString()
	return r.descriptor(uid, name, sources), uid
}

func (r *Run) descriptor(uid, name string, sources map[string]string) domain.Document {
	keys := make(map[string]any, len(sources))
	for key, source := range sources {
		keys[key] = map[string]any{
			"source":      source,
			"dtype":       "number",
			"shape":       []any{},
			"object_name": key,
		}
	}
	return domain.Document{Name: domain.DocDescriptor, Body: map[string]any{
		"uid":       uid,
		"run_start": r.StartUID,
		"name":      name,
		"time":      StartTime,
		"data_keys": keys,
	}}
}

// Event returns a primary event taken seq seconds after the start.
func (r *Run) Event(seq int, data map[string]any) domain.Document {
	return r.EventFor(r.PrimaryUID, seq, data)
}

// BaselineReading returns a baseline event.
func (r *Run) BaselineReading(data map[string]any) domain.Document {
	return r.EventFor(r.BaselineUID, 1, data)
}

// EventFor returns an event of any descriptor.
func (r *Run) EventFor(descriptor string, seq int, data map[string]any) domain.Document {
	return domain.Document{Name: domain.DocEvent, Body: map[string]any{
		"uid":        uuid.NewString(),
		"descriptor": descriptor,
		"seq_num":    seq,
		"time":       StartTime + float64(seq),
		"data":       data,
		"timestamps": map[string]any{},
	}}
}

// Stop returns the stop document.
func (r *Run) Stop(exitStatus, reason string) domain.Document {
	body := map[string]any{
		"uid":         uuid.NewString(),
		"run_start":   r.StartUID,
		"time":        StartTime + 60,
		"exit_status": exitStatus,
	}
	if reason != "" {
		body["reason"] = reason
	}
	return domain.Document{Name: domain.DocStop, Body: body}
}
