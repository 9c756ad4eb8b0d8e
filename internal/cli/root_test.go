package cli

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlbridge/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		Driver:      "sqlite3",
		BusyTimeout: 5 * time.Second,
		Format:      "text",
		LogLevel:    slog.LevelInfo,
	}
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand(testConfig())
	require.NotNil(t, cmd)
	assert.Equal(t, "sqlbridge", cmd.Use)
	assert.Contains(t, cmd.Long, "migrations_history")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(testConfig())
	commands := []string{"migrate", "plan", "history", "select", "update", "batch"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand(testConfig())

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	// Empty selects an in-memory database
	assert.Equal(t, "", dbFlag.DefValue)

	driverFlag := cmd.PersistentFlags().Lookup("driver")
	require.NotNil(t, driverFlag)
	assert.Equal(t, "sqlite3", driverFlag.DefValue)

	timeoutFlag := cmd.PersistentFlags().Lookup("busy-timeout")
	require.NotNil(t, timeoutFlag)
	assert.Equal(t, "5s", timeoutFlag.DefValue)
}

func TestFlagDefaultsFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.DB = "/tmp/app.db"
	cfg.Driver = "sqlite"
	cfg.Format = "json"
	cfg.TxPerMigration = true

	cmd := NewRootCommand(cfg)
	assert.Equal(t, "/tmp/app.db", cmd.PersistentFlags().Lookup("db").DefValue)
	assert.Equal(t, "sqlite", cmd.PersistentFlags().Lookup("driver").DefValue)
	assert.Equal(t, "json", cmd.PersistentFlags().Lookup("format").DefValue)

	migrateCmd, _, err := cmd.Find([]string{"migrate"})
	require.NoError(t, err)
	assert.Equal(t, "true", migrateCmd.Flags().Lookup("tx").DefValue)
}

func TestMigrateCommandFlags(t *testing.T) {
	cmd := NewRootCommand(testConfig())
	migrateCmd, _, err := cmd.Find([]string{"migrate"})
	require.NoError(t, err)

	txFlag := migrateCmd.Flags().Lookup("tx")
	require.NotNil(t, txFlag)
	assert.Equal(t, "false", txFlag.DefValue)

	require.NotNil(t, migrateCmd.Flags().Lookup("metrics-textfile"))
}

func TestQueryCommandFlags(t *testing.T) {
	cmd := NewRootCommand(testConfig())

	for _, name := range []string{"select", "update"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			paramsFlag := sub.Flags().Lookup("params")
			require.NotNil(t, paramsFlag)
			assert.Equal(t, "{}", paramsFlag.DefValue)
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand(testConfig())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"batch", "SELECT 1", "--format", "xml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVerboseEnablesDebugLogs(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand(testConfig())
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{"batch", "CREATE TABLE t (id INTEGER)", "--verbose"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, errOut.String(), "database opened")
	assert.NotContains(t, out.String(), "database opened")
}
