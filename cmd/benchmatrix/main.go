// Command benchmatrix expands declarative benchmark configurations into
// runnable job specifications.
package main

import (
	"fmt"
	"os"

	"github.com/perflab/benchmatrix/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Structured output already happened inside the command; this is
		// the fallback line for errors that never reached a formatter.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
