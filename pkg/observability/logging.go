package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/specfile/pkg/domain"
)

// LogHooks returns lifecycle hooks that log runs and rows.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_start",
				"run_uid", e.RunUID,
				"scan_id", e.ScanID,
				"file", e.FileName,
			)
		},
		OnRowWritten: func(ctx context.Context, e *domain.RowEvent) {
			logger.DebugContext(ctx, "row_written", "run_uid", e.RunUID, "seq_num", e.SeqNum)
		},
		OnRunStop: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_stop",
				"run_uid", e.RunUID,
				"exit_status", e.ExitStatus,
				"rows", e.Rows,
			)
		},
	}
}
