// Command cellsim runs rule-table cellular automata headlessly.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/cellsim/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
