package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tornadohq/tornado/internal/validator"
)

var upgradeRulesCmd = &cobra.Command{
	Use:   "upgrade-rules <path>",
	Short: "Re-emit a MatcherConfig file in the current canonical schema",
	Long: `Validates a MatcherConfig file and prints its canonical JSON
re-encoding to stdout. Actual cross-version rule migrations are out of
scope; this only normalizes a file already on the current schema.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpgradeRules,
}

func runUpgradeRules(cmd *cobra.Command, args []string) error {
	root, err := loadMatcherConfig(args[0])
	if err != nil {
		return err
	}

	if errs := validator.Validate(root); errs.HasErrors() {
		fmt.Fprintf(os.Stderr, "configuration is invalid: %d error(s)\n", len(errs))
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  - %s\n", e.Error())
		}
		return fmt.Errorf("validation failed")
	}

	out, err := root.MarshalJSON()
	if err != nil {
		return fmt.Errorf("re-encode configuration: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
