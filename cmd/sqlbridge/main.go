// Command sqlbridge runs SQL and forward-only migrations against SQLite.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/sqlbridge/internal/cli"
	"github.com/roach88/sqlbridge/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}

	if err := cli.NewRootCommand(cfg).Execute(); err != nil {
		// Commands report their own failures; anything else came from
		// argument parsing.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
