package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "formsctl",
	Short: "Declarative form engine compiler and evaluator",
	Long: `formsctl compiles a declarative journey tree (a JSON document of
journeys, steps, blocks, expressions, predicates, transitions and
references) into a wired dependency graph, and evaluates it against a
simulated request.

This is a development and inspection tool for the form engine, not the
production request path: real deployments embed the engine library
directly and drive compile/evaluate from their own HTTP handlers.`,
	Version: Version,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
}

func exitWithError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
