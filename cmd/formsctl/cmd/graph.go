package cmd

import (
	"fmt"
	"os"

	"github.com/cwbudde/go-formengine/internal/compiler"
	"github.com/cwbudde/go-formengine/internal/engineerr"
	"github.com/spf13/cobra"
)

var graphOutputFile string

var graphCmd = &cobra.Command{
	Use:   "graph [file]",
	Short: "Render a compiled journey's dependency graph as Graphviz dot",
	Long: `graph compiles a declarative journey document and writes its wired
dependency graph (STRUCTURAL and DATA_FLOW edges, including the synthetic
pseudo-node wiring) as Graphviz dot source, for visual inspection of how
the wiring modules connected the tree.

Examples:
  # Print dot source to stdout
  formsctl graph journey.json

  # Write it to a file for dot/xdot to render
  formsctl graph journey.json -o journey.dot`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringVarP(&graphOutputFile, "output", "o", "", "write dot source to this file instead of stdout")
}

func runGraph(_ *cobra.Command, args []string) error {
	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	program, err := compiler.Compile(string(content))
	if err != nil {
		if ee, ok := engineerr.As(err); ok {
			fmt.Fprint(os.Stderr, engineerr.FormatError(ee))
			fmt.Fprintln(os.Stderr)
		}
		return fmt.Errorf("compilation failed: %w", err)
	}

	dot := program.Graph.DOT()
	if graphOutputFile == "" {
		fmt.Print(dot)
		return nil
	}
	if err := os.WriteFile(graphOutputFile, []byte(dot), 0644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", graphOutputFile, err)
	}
	fmt.Printf("Graph written to %s\n", graphOutputFile)
	return nil
}
