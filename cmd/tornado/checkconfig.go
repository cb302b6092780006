package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tornadohq/tornado/internal/matcher"
	"github.com/tornadohq/tornado/internal/matcherconfig"
	"github.com/tornadohq/tornado/internal/validator"
)

var checkConfigCmd = &cobra.Command{
	Use:   "check-config <path>",
	Short: "Validate and compile a MatcherConfig file",
	Long: `Loads a MatcherConfig JSON or YAML file, runs structural validation
and the matcher compile step, and prints every error found. Exits
non-zero if the file is invalid or fails to compile.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckConfig,
}

func runCheckConfig(cmd *cobra.Command, args []string) error {
	root, err := loadMatcherConfig(args[0])
	if err != nil {
		return err
	}

	if errs := validator.Validate(root); errs.HasErrors() {
		fmt.Fprintf(cmd.OutOrStdout(), "configuration is invalid: %d error(s)\n", len(errs))
		for _, e := range errs {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", e.Error())
		}
		return fmt.Errorf("validation failed")
	}

	if _, compileErrs := matcher.Compile(root); len(compileErrs) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "configuration does not compile: %d error(s)\n", len(compileErrs))
		for _, e := range compileErrs {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", e.Error())
		}
		return fmt.Errorf("compile failed")
	}

	fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
	return nil
}

// loadMatcherConfig reads path and parses it as YAML or JSON by
// extension, defaulting to JSON for an unrecognized or absent one.
func loadMatcherConfig(path string) (*matcherconfig.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(strings.TrimPrefix(fileExt(path), ".")) {
	case "yaml", "yml":
		return matcherconfig.ParseYAML(data)
	default:
		return matcherconfig.ParseJSON(data)
	}
}

func fileExt(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return ""
	}
	return path[idx:]
}
