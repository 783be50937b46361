// Command formsctl is a development CLI over the declarative form engine:
// compile a journey tree, inspect its wired dependency graph, and evaluate
// it against a simulated request without standing up an HTTP server.
package main

import (
	"os"

	"github.com/cwbudde/go-formengine/cmd/formsctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
