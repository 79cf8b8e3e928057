package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "specfile",
	Short: "specfile converts event-model document streams into spec files",
	Long: `specfile reads start, descriptor, event and stop documents as JSON-Lines
and writes one spec file per run, the text format read by classic scan
analysis tools.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	addRootFlags(rootCmd)
}

func addRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Path to a YAML or JSON config file (default: ./specfile.yaml if present)")
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")
}
