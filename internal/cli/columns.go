package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/obestwalter/datatest/internal/source"
)

// NewColumnsCommand creates the columns command: prints the column
// names of a CSV data file in table order. Useful for writing the
// columns and order checks of a suite.
func NewColumnsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "columns <file>",
		Short:        "List the columns of a CSV data file",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}

			src, err := source.FromCSV(args[0])
			if err != nil {
				formatter.Error(loadErrCode(err, ErrCodeBadSource), err.Error(), nil)
				return WrapExitError(ExitCommandError, "load data", err)
			}
			defer src.Close()

			columns, err := src.Columns(cmd.Context())
			if err != nil {
				formatter.Error(ErrCodeQueryFailed, err.Error(), nil)
				return WrapExitError(ExitCommandError, "query columns", err)
			}

			if formatter.Format == "json" {
				return formatter.Success(columns)
			}
			return formatter.Success(strings.Join(columns, "\n"))
		},
	}
	return cmd
}
