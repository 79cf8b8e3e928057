package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/specfile"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of specfile",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "specfile version %s\n", strings.TrimSpace(specfile.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
