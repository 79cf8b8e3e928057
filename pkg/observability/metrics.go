package observability

import (
	"context"
	"fmt"

	"github.com/aretw0/specfile/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts documents, runs and rows seen by a serializer.
type Metrics struct {
	registry     *prometheus.Registry
	documents    *prometheus.CounterVec
	runsStarted  prometheus.Counter
	runsFinished *prometheus.CounterVec
	rows         prometheus.Counter
}

// NewMetrics creates the counters in a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "specfile_documents_total",
				Help: "Total number of documents handled, by document name",
			},
			[]string{"name"},
		),
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "specfile_runs_started_total",
			Help: "Total number of runs opened",
		}),
		runsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "specfile_runs_finished_total",
				Help: "Total number of runs closed, by exit status",
			},
			[]string{"exit_status"},
		),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "specfile_rows_written_total",
			Help: "Total number of data rows written",
		}),
	}
	m.registry.MustRegister(m.documents, m.runsStarted, m.runsFinished, m.rows)
	return m
}

// Registry returns the registry holding the counters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Hooks returns lifecycle hooks that feed the counters.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDocument: func(_ context.Context, e *domain.DocumentEvent) {
			m.documents.WithLabelValues(string(e.Name)).Inc()
		},
		OnRunStart: func(context.Context, *domain.RunEvent) {
			m.runsStarted.Inc()
		},
		OnRowWritten: func(context.Context, *domain.RowEvent) {
			m.rows.Inc()
		},
		OnRunStop: func(_ context.Context, e *domain.RunEvent) {
			m.runsFinished.WithLabelValues(e.ExitStatus).Inc()
		},
	}
}

// WriteTextfile writes the registry in the text exposition format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
