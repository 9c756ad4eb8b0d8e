package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlbridge/internal/registry"
	"github.com/roach88/sqlbridge/internal/store"
)

// newFormatter builds the formatter for one command invocation.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// storeConfig returns the store configuration selected by the global flags.
func (o *RootOptions) storeConfig() store.Config {
	path := o.Database
	if path == "" {
		path = store.MemoryPath
	}
	return store.Config{
		Driver:      o.Driver,
		Path:        path,
		BusyTimeout: o.BusyTimeout,
	}
}

// withStore opens the selected database, registers it for the duration of
// fn, and closes it afterwards. Open and close failures are reported through
// formatter.
func withStore(opts *RootOptions, formatter *OutputFormatter, fn func(*store.Store) error) error {
	reg := registry.New()

	cfg := opts.storeConfig()
	name, err := reg.Open(cfg.Path, cfg)
	if err != nil {
		return formatter.Fail("failed to open database", err)
	}
	opts.Logger().Debug("database opened", "path", cfg.Path, "driver", cfg.Driver)

	runErr := reg.With(name, fn)
	if err := reg.CloseAll(); err != nil && runErr == nil {
		return formatter.Fail("failed to close database", err)
	}
	return runErr
}

// reportError outputs err unless withStore already reported it.
func reportError(formatter *OutputFormatter, message string, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return formatter.Fail(message, err)
}
