package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = "testdata/migrations.yaml"

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand(testConfig())
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func testDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "migrations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMigrate_GoldenJSON(t *testing.T) {
	db := testDB(t)

	out, _, err := execute(t, "migrate", testManifest, "--db", db, "--format", "json")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "migrate_json", []byte(out))

	out, _, err = execute(t, "history", "--db", db, "--format", "json")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "history_json", []byte(out))

	out, _, err = execute(t, "select", "SELECT id, name FROM users ORDER BY id", "--db", db, "--format", "json")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "select_json", []byte(out))
}

func TestMigrate_SecondRunOnlyVerifies(t *testing.T) {
	db := testDB(t)

	_, _, err := execute(t, "migrate", testManifest, "--db", db)
	require.NoError(t, err)

	out, _, err := execute(t, "migrate", testManifest, "--db", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   MigrateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"create_users", "seed_users"}, resp.Data.Verified)
	assert.Empty(t, resp.Data.Applied)
}

func TestMigrate_TextOutput(t *testing.T) {
	out, _, err := execute(t, "migrate", testManifest, "--db", testDB(t))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 0 verified, 2 applied")
	assert.Contains(t, out, "applied  create_users")
	assert.Contains(t, out, "applied  seed_users")
}

func TestMigrate_Transactional(t *testing.T) {
	db := testDB(t)

	_, _, err := execute(t, "migrate", testManifest, "--db", db, "--tx")
	require.NoError(t, err)

	out, _, err := execute(t, "history", "--db", db, "--format", "json")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "history_json", []byte(out))
}

func TestMigrate_ModifiedMigrationExitsWithFailure(t *testing.T) {
	db := testDB(t)

	_, _, err := execute(t, "migrate", testManifest, "--db", db)
	require.NoError(t, err)

	modified := writeManifest(t, `migrations:
  - name: create_users
    sql: "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, email TEXT)"
  - name: seed_users
    sql: "INSERT INTO users (name) VALUES ('ada'); INSERT INTO users (name) VALUES ('grace');"
`)

	out, _, err := execute(t, "migrate", modified, "--db", db, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMigration, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "migration create_users has been modified")
}

func TestMigrate_ShortenedListExitsWithFailure(t *testing.T) {
	db := testDB(t)

	_, _, err := execute(t, "migrate", testManifest, "--db", db)
	require.NoError(t, err)

	shortened := writeManifest(t, `migrations:
  - name: create_users
    sql: "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)"
`)

	out, _, err := execute(t, "migrate", shortened, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E102]")
	assert.Contains(t, out, "the migration list has been modified")
}

func TestMigrate_FailingMigrationExitsWithFailure(t *testing.T) {
	manifest := writeManifest(t, `migrations:
  - name: ok
    sql: "CREATE TABLE ok (id INTEGER)"
  - name: broken
    sql: "CREATE TABLE"
`)

	_, _, err := execute(t, "migrate", manifest, "--db", testDB(t))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestMigrate_BadManifestIsCommandError(t *testing.T) {
	manifest := writeManifest(t, "migrations: [\n")

	out, _, err := execute(t, "migrate", manifest, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeManifest, resp.Error.Code)
}

func TestMigrate_MissingManifestArgument(t *testing.T) {
	_, _, err := execute(t, "migrate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMigrate_MetricsTextfile(t *testing.T) {
	db := testDB(t)
	metricsPath := filepath.Join(t.TempDir(), "sqlbridge.prom")

	_, _, err := execute(t, "migrate", testManifest, "--db", db)
	require.NoError(t, err)

	_, _, err = execute(t, "migrate", testManifest, "--db", db, "--metrics-textfile", metricsPath)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sqlbridge_migrations_verified_total 2")
	assert.Contains(t, string(data), "sqlbridge_migrations_applied_total 0")
}

func TestMigrate_UnopenableDatabase(t *testing.T) {
	out, _, err := execute(t, "migrate", testManifest, "--db", "/nonexistent/dir/app.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestPlan_GoldenJSON(t *testing.T) {
	db := testDB(t)

	_, _, err := execute(t, "migrate", testManifest, "--db", db)
	require.NoError(t, err)

	extended := writeManifest(t, `migrations:
  - name: create_users
    sql: "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)"
  - name: seed_users
    sql: "INSERT INTO users (name) VALUES ('ada'); INSERT INTO users (name) VALUES ('grace');"
  - name: add_email
    sql: "ALTER TABLE users ADD COLUMN email TEXT"
`)

	out, _, err := execute(t, "plan", extended, "--db", db, "--format", "json")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "plan_json", []byte(out))

	// Nothing was applied
	out, _, err = execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.NotContains(t, out, "add_email")
}

func TestPlan_RejectedStillListsSteps(t *testing.T) {
	db := testDB(t)

	_, _, err := execute(t, "migrate", testManifest, "--db", db)
	require.NoError(t, err)

	renamed := writeManifest(t, `migrations:
  - name: create_users
    sql: "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)"
  - name: seed_people
    sql: "INSERT INTO users (name) VALUES ('ada'); INSERT INTO users (name) VALUES ('grace');"
`)

	out, _, err := execute(t, "plan", renamed, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "verified  create_users")
	assert.Contains(t, out, "rejected  seed_people")
	assert.Contains(t, out, "Error [E102]")
}

func TestHistory_Empty(t *testing.T) {
	out, _, err := execute(t, "history", "--db", testDB(t))
	require.NoError(t, err)
	assert.Contains(t, out, "No migrations applied.")

	out, _, err = execute(t, "history", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":[]}`, out)
}

func TestUpdate_InsertAndSelect(t *testing.T) {
	db := testDB(t)

	_, _, err := execute(t, "batch", "CREATE TABLE kv (k TEXT PRIMARY KEY, v)", "--db", db)
	require.NoError(t, err)

	out, _, err := execute(t, "update", "INSERT INTO kv (k, v) VALUES (:k, :v)",
		"--db", db, "--params", `{":k": "bytes", ":v": [0, 127, 255]}`, "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"rows_affected":1,"last_insert_id":1}}`, out)

	out, _, err = execute(t, "update", "INSERT INTO kv (k, v) VALUES (:k, :v)",
		"--db", db, "--params", `{":k": "pi", ":v": 3.25}`)
	require.NoError(t, err)
	assert.Contains(t, out, "1 row(s) affected, last insert id 2")

	out, _, err = execute(t, "select", "SELECT k, v FROM kv ORDER BY rowid", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "{\"k\":\"bytes\",\"v\":[0,127,255]}\n{\"k\":\"pi\",\"v\":3.25}\n", out)
}

func TestSelect_InvalidParams(t *testing.T) {
	for _, params := range []string{`[1, 2]`, `{":x": 1} junk`} {
		t.Run(params, func(t *testing.T) {
			out, _, err := execute(t, "select", "SELECT :x AS x", "--params", params, "--format", "json")
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrCodeParams, resp.Error.Code)
		})
	}
}

func TestUpdate_MisspelledParam(t *testing.T) {
	db := testDB(t)
	_, _, err := execute(t, "batch", "CREATE TABLE kv (k TEXT, v)", "--db", db)
	require.NoError(t, err)

	out, _, err := execute(t, "update", "INSERT INTO kv (k, v) VALUES (:k, :v)",
		"--db", db, "--params", `{":k": "a", ":vv": 1}`, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDatabase, resp.Error.Code)
	assert.Contains(t, err.Error(), `missing named argument "v"`)
}

func TestSelect_UnsupportedParamValue(t *testing.T) {
	out, _, err := execute(t, "select", "SELECT :x AS x", "--params", `{":x": true}`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E103]")
}

func TestSelect_UnknownTable(t *testing.T) {
	out, _, err := execute(t, "select", "SELECT * FROM missing", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDatabase, resp.Error.Code)
}

func TestSelect_PureGoDriver(t *testing.T) {
	out, _, err := execute(t, "select", "SELECT 1 AS one, 'x' AS two, NULL AS three",
		"--driver", "sqlite", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":[{"one":1,"two":"x","three":null}]}`, out)
}

func TestBatch(t *testing.T) {
	out, _, err := execute(t, "batch", "CREATE TABLE a (id INTEGER); CREATE TABLE b (id INTEGER);", "--db", testDB(t))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Batch executed")

	out, _, err = execute(t, "batch", "CREATE TABLE", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
}
