// Command recstore manages schema-declared record tables in SQLite.
package main

import (
	"os"

	"github.com/roach88/recstore/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
