// ./main.go
package main

import (
	"context"

	"github.com/epictrips/backoffice/cmd"
)

// main is the entry point for the epictrips CLI application.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute(context.Background())
}
