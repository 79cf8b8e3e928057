package cli

import (
	"bufio"
	"context"
	"io"
	"log/slog"

	"github.com/aretw0/specfile"
	"github.com/aretw0/specfile/internal/config"
	"github.com/aretw0/specfile/internal/logging"
	"github.com/aretw0/specfile/internal/presentation/report"
	"github.com/aretw0/specfile/pkg/adapters/file"
	"github.com/aretw0/specfile/pkg/adapters/redis"
	"github.com/aretw0/specfile/pkg/adapters/writer"
	"github.com/aretw0/specfile/pkg/domain"
	"github.com/aretw0/specfile/pkg/observability"
	"github.com/aretw0/specfile/pkg/ports"
)

// ExportOptions carries everything the export command needs.
type ExportOptions struct {
	Config config.Config
	Inputs []string
	Debug  bool
	Quiet  bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// RunExport converts the inputs into spec files and prints a summary.
func RunExport(ctx context.Context, opts ExportOptions) error {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.Level()
	if opts.Debug {
		level = slog.LevelDebug
	}
	logger := logging.New(opts.Stderr, level)
	loc, _ := cfg.Location()

	manager := newManager(cfg, opts.Stdout)

	var tracker report.Tracker
	hooks := []domain.LifecycleHooks{tracker.Hooks(), observability.LogHooks(logger)}

	var metrics *observability.Metrics
	if cfg.Metrics.Textfile != "" {
		metrics = observability.NewMetrics()
		hooks = append(hooks, metrics.Hooks())
	}

	source := newInputSource(ctx, opts.Inputs, opts.Stdin)
	defer source.Close()

	artifacts, exportErr := specfile.Export(ctx, source, manager,
		specfile.WithFilePrefix(cfg.Output.FilePrefix),
		specfile.WithFlush(cfg.Output.Flush),
		specfile.WithLenient(cfg.Lenient),
		specfile.WithLocation(loc),
		specfile.WithLogger(logger),
		specfile.WithLifecycleHooks(domain.ChainHooks(hooks...)),
	)
	if exportErr != nil && IsInterrupted(exportErr) {
		logger.Warn("export interrupted")
	}

	if metrics != nil {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Error("failed to persist metrics", "error", err)
		}
	}

	if !opts.Quiet {
		// Spec output owns Stdout in stdout mode.
		out := opts.Stdout
		if cfg.Output.Stdout {
			out = opts.Stderr
		}
		if err := report.NewRenderer(out).Render(tracker.Runs(), artifacts, exportErr); err != nil {
			logger.Error("failed to print summary", "error", err)
		}
	}
	return exportErr
}

// newManager picks the output backend: stdout, then redis, then a directory.
func newManager(cfg config.Config, stdout io.Writer) ports.Manager {
	switch {
	case cfg.Output.Stdout:
		return writer.New(bufio.NewWriter(stdout))
	case cfg.Redis.Addr != "":
		ttl, _ := cfg.RedisTTL()
		return redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(ttl),
		)
	}
	return file.New(cfg.Output.Dir)
}
