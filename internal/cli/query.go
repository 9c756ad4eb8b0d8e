package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlbridge/internal/store"
	"github.com/roach88/sqlbridge/internal/value"
)

// QueryOptions holds flags for the select and update commands.
type QueryOptions struct {
	*RootOptions
	Params string // JSON object of named parameters
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "select <sql>",
		Short: "Run a query and print the rows",
		Long: `Run one parameterized query and print every row as a JSON object with
keys in column order. Integers, reals, text and NULL map to JSON numbers,
strings and null; blobs map to arrays of byte values.

Examples:
  sqlbridge select --db ./app.db 'SELECT * FROM users WHERE id = :id' --params '{":id": 1}'
  sqlbridge select --db ./app.db 'SELECT name FROM users' --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Params, "params", "{}", "named parameters as a JSON object")

	return cmd
}

func runSelect(opts *QueryOptions, sqlText string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	params, err := decodeParams(formatter, opts.Params)
	if err != nil {
		return err
	}

	var rows value.ResultSet
	err = withStore(opts.RootOptions, formatter, func(st *store.Store) error {
		var selErr error
		rows, selErr = st.Select(context.Background(), sqlText, params)
		return selErr
	})
	if err != nil {
		return reportError(formatter, "select failed", err)
	}
	formatter.VerboseLog("%d row(s)", len(rows))

	var renderErr error
	err = formatter.Render(rows, func(w io.Writer) {
		for _, row := range rows {
			line, err := json.Marshal(row)
			if err != nil {
				renderErr = err
				return
			}
			fmt.Fprintln(w, string(line))
		}
	})
	if err == nil {
		err = renderErr
	}
	if err != nil {
		return formatter.Fail("failed to encode rows", err)
	}
	return nil
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <sql>",
		Short: "Execute one statement and print its effect",
		Long: `Execute one parameterized statement and print the number of rows affected
and the last inserted row id.

Example:
  sqlbridge update --db ./app.db 'INSERT INTO users (name) VALUES (:name)' --params '{":name": "ada"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Params, "params", "{}", "named parameters as a JSON object")

	return cmd
}

func runUpdate(opts *QueryOptions, sqlText string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	params, err := decodeParams(formatter, opts.Params)
	if err != nil {
		return err
	}

	var result store.Result
	err = withStore(opts.RootOptions, formatter, func(st *store.Store) error {
		var updErr error
		result, updErr = st.Update(context.Background(), sqlText, params)
		return updErr
	})
	if err != nil {
		return reportError(formatter, "update failed", err)
	}

	return formatter.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "%d row(s) affected, last insert id %d\n", result.RowsAffected, result.LastInsertID)
	})
}

// BatchOptions holds flags for the batch command.
type BatchOptions struct {
	*RootOptions
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch <sql>",
		Short: "Execute semicolon-separated statements",
		Long: `Execute one or more semicolon-separated statements without parameters.
The first failing statement stops the batch; statements that already ran
are not undone.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, args[0], cmd)
		},
	}

	return cmd
}

func runBatch(opts *BatchOptions, sqlText string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	err := withStore(opts.RootOptions, formatter, func(st *store.Store) error {
		return st.Batch(context.Background(), sqlText)
	})
	if err != nil {
		return reportError(formatter, "batch failed", err)
	}

	return formatter.Render(nil, func(w io.Writer) {
		fmt.Fprintln(w, "✓ Batch executed")
	})
}

// decodeParams parses the --params flag. Failures are reported through
// formatter.
func decodeParams(formatter *OutputFormatter, raw string) (map[string]any, error) {
	params, err := value.DecodeObject([]byte(raw))
	if err != nil {
		_ = formatter.Error(ErrCodeParams, fmt.Sprintf("invalid --params: %v", err), nil)
		return nil, WrapExitError(ExitCommandError, "invalid --params", err)
	}
	return params, nil
}
