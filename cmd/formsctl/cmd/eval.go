package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/cwbudde/go-formengine/internal/ast"
	"github.com/cwbudde/go-formengine/internal/compiler"
	"github.com/cwbudde/go-formengine/internal/engineerr"
	"github.com/cwbudde/go-formengine/internal/evalctx"
	"github.com/cwbudde/go-formengine/internal/evaluator"
	"github.com/cwbudde/go-formengine/internal/ids"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

var (
	evalPostJSON  string
	evalQueryJSON string
	evalParams    []string
	evalVerbose   bool
)

var evalCmd = &cobra.Command{
	Use:   "eval [file]",
	Short: "Compile a journey and evaluate it against a simulated request",
	Long: `eval compiles a declarative journey document, builds a per-request
overlay and evaluator over it, and invokes the journey root, the way a
real HTTP handler would for a GET or POST of a single step.

Post and query bodies are given as flat JSON objects (string or
string-array values, matching the engine's mapping<string, string |
string[]> shape); route params are given as repeated key=value pairs.

Examples:
  # Evaluate a journey with no request data
  formsctl eval journey.json

  # Evaluate a POST submission
  formsctl eval journey.json --post '{"email":"a@example.com"}'

  # Evaluate with route params
  formsctl eval journey.json --params step=confirm --params id=42`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().StringVar(&evalPostJSON, "post", "", "post body as a flat JSON object")
	evalCmd.Flags().StringVar(&evalQueryJSON, "query", "", "query string as a flat JSON object")
	evalCmd.Flags().StringArrayVar(&evalParams, "params", nil, "route param as key=value (repeatable)")
	evalCmd.Flags().BoolVarP(&evalVerbose, "verbose", "v", false, "log retries and cache invalidations as they happen")
}

func runEval(_ *cobra.Command, args []string) error {
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

	req := evalctx.EvaluationRequest{
		Post:   parseFlatJSON(evalPostJSON),
		Query:  parseFlatJSON(evalQueryJSON),
		Params: parseParams(evalParams),
	}

	eval := evaluator.New(program)
	if evalVerbose {
		eval.OnRetry = func(nodeID ids.ID, attempt int) {
			fmt.Fprintf(os.Stderr, "retry: node %s attempt %d\n", nodeID, attempt)
		}
		eval.OnInvalidate = func(nodeID ids.ID) {
			fmt.Fprintf(os.Stderr, "invalidated: node %s\n", nodeID)
		}
	}

	ec := eval.CreateContext(req, noFunctions{})
	_, result := eval.Evaluate(context.Background(), ec)

	if result.Error != nil {
		fmt.Fprint(os.Stderr, engineerr.FormatError(result.Error))
		fmt.Fprintln(os.Stderr)
		return fmt.Errorf("evaluation failed")
	}

	fmt.Printf("Result: %#v\n", result.Value)
	return nil
}

// parseFlatJSON reads a flat JSON object into evalctx.Values, accepting
// either a scalar or an array for each key (spec.md §6.2). An empty input
// string yields an empty map rather than an error, since post/query data
// is optional on most requests.
func parseFlatJSON(raw string) evalctx.Values {
	values := evalctx.Values{}
	if raw == "" {
		return values
	}
	gjson.Parse(raw).ForEach(func(key, value gjson.Result) bool {
		if value.IsArray() {
			for _, item := range value.Array() {
				values[key.String()] = append(values[key.String()], item.String())
			}
		} else {
			values[key.String()] = []string{value.String()}
		}
		return true
	})
	return values
}

func parseParams(pairs []string) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		for i := 0; i < len(p); i++ {
			if p[i] == '=' {
				out[p[:i]] = p[i+1:]
				break
			}
		}
	}
	return out
}

// noFunctions is a FunctionRegistry with nothing registered, for evaluating
// a journey that calls no Function nodes. Embedders that need functions
// build a real registry themselves; this CLI only exercises the core
// evaluation path.
type noFunctions struct{}

func (noFunctions) Lookup(ast.FunctionType, string) (evalctx.FunctionEntry, bool) {
	return evalctx.FunctionEntry{}, false
}
