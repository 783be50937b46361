package cmd

import (
	"fmt"
	"os"

	"github.com/cwbudde/go-formengine/internal/compiler"
	"github.com/cwbudde/go-formengine/internal/engineerr"
	"github.com/spf13/cobra"
)

var compileVerbose bool

var compileCmd = &cobra.Command{
	Use:   "compile [file]",
	Short: "Compile a declarative journey tree and report wiring statistics",
	Long: `Compile reads a declarative JSON journey document, runs it through the
transformer, the normalization passes, and the dependency-graph wiring
modules, then reports the resulting node and edge counts.

This does not evaluate the form against any request; it only validates that
the document compiles (no duplicate IDs, no duplicate routes) and builds
the handler registry.

Examples:
  # Compile a journey document and print wiring stats
  formsctl compile journey.json

  # Compile with verbose per-stage output
  formsctl compile journey.json --verbose`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().BoolVarP(&compileVerbose, "verbose", "v", false, "verbose output")
}

func runCompile(_ *cobra.Command, args []string) error {
	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	if compileVerbose {
		fmt.Fprintf(os.Stderr, "Compiling %s...\n", filename)
	}

	program, err := compiler.Compile(string(content))
	if err != nil {
		if ee, ok := engineerr.As(err); ok {
			fmt.Fprint(os.Stderr, engineerr.FormatError(ee))
			fmt.Fprintln(os.Stderr)
		}
		return fmt.Errorf("compilation failed: %w", err)
	}

	stats := program.Graph.Stat()
	fmt.Printf("Compiled %s\n", filename)
	fmt.Printf("  Root:       %s\n", program.Root)
	fmt.Printf("  Nodes:      %d\n", program.Nodes.Len())
	fmt.Printf("  Handlers:   %d\n", program.Handlers.Len())
	fmt.Printf("  Graph nodes: %d\n", stats.Nodes)
	fmt.Printf("  Structural edges: %d\n", stats.Structural)
	fmt.Printf("  Data-flow edges:  %d\n", stats.DataFlow)
	return nil
}
