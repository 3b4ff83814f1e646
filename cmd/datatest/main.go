package main

import (
	"errors"
	"os"

	"github.com/obestwalter/datatest/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err != nil {
		// Validation failures already wrote their report; everything
		// else (flag errors, bad inputs) still needs a message.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Code == cli.ExitCommandError {
			os.Stderr.WriteString(err.Error() + "\n")
		}
		os.Exit(cli.GetExitCode(err))
	}
}
