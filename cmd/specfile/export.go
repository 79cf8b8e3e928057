package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/aretw0/specfile/internal/cli"
	"github.com/aretw0/specfile/internal/config"
	"github.com/spf13/cobra"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [files...]",
	Short: "Convert JSON-Lines document streams into spec files",
	Long: `Reads documents from the given files, or from stdin when no file or "-"
is given. Each line is either ["name", {...}] or {"name": ..., "doc": {...}}.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		applyFlags(cmd, &cfg)

		debug, _ := cmd.Flags().GetBool("debug")
		quiet, _ := cmd.Flags().GetBool("quiet")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		err = cli.RunExport(ctx, cli.ExportOptions{
			Config: cfg,
			Inputs: args,
			Debug:  debug,
			Quiet:  quiet,
			Stdin:  os.Stdin,
			Stdout: os.Stdout,
			Stderr: os.Stderr,
		})
		if ctx.Signal() != nil && cli.IsInterrupted(err) {
			return nil // Exit 0 for interruptions
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	addExportFlags(exportCmd)
}

func addExportFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("dir", ".", "Directory spec files are written to")
	f.String("prefix", "", "File name template; the start document is .start (default \"{{.start.uid}}\")")
	f.Bool("flush", false, "Flush after every data row")
	f.Bool("lenient", false, "Skip extra streams and multi-motor scans instead of failing")
	f.Bool("stdout", false, "Write spec output to stdout instead of files")
	f.String("tz", "", "Time zone of readable timestamps (default: local)")
	f.String("redis-addr", "", "Store spec files in Redis at this address")
	f.String("redis-prefix", "", "Key prefix for Redis output (default \"specfile:\")")
	f.String("metrics-file", "", "Write Prometheus metrics to this textfile after the export")
	f.BoolP("quiet", "q", false, "Do not print the export summary")
}

// loadConfig reads --config, or specfile.yaml when it exists.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		cfg, err := config.Load(config.DefaultPath)
		if errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
		return cfg, err
	}
	return config.Load(path)
}

// applyFlags overrides config values with the flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("dir") {
		cfg.Output.Dir, _ = f.GetString("dir")
	}
	if f.Changed("prefix") {
		cfg.Output.FilePrefix, _ = f.GetString("prefix")
	}
	if f.Changed("flush") {
		cfg.Output.Flush, _ = f.GetBool("flush")
	}
	if f.Changed("lenient") {
		cfg.Lenient, _ = f.GetBool("lenient")
	}
	if f.Changed("stdout") {
		cfg.Output.Stdout, _ = f.GetBool("stdout")
	}
	if f.Changed("tz") {
		cfg.Output.Timezone, _ = f.GetString("tz")
	}
	if f.Changed("redis-addr") {
		cfg.Redis.Addr, _ = f.GetString("redis-addr")
	}
	if f.Changed("redis-prefix") {
		cfg.Redis.Prefix, _ = f.GetString("redis-prefix")
	}
	if f.Changed("metrics-file") {
		cfg.Metrics.Textfile, _ = f.GetString("metrics-file")
	}
}
