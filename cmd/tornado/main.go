// Command tornado is the engine's entry point: start runs the process,
// check-config and upgrade-rules operate on a MatcherConfig file without
// starting anything (§4.15).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "tornado",
	Short:   "Tornado event-processing engine",
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(checkConfigCmd)
	rootCmd.AddCommand(upgradeRulesCmd)
}
