// Package harness runs conformance scenarios against a real database.
//
// A scenario is a YAML file describing a sequence of steps (migrations,
// batches, updates, selects, reopening the database) with expected outcomes,
// followed by assertions over the final database and the recorded trace.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	driver: sqlite3            # optional: sqlite3 | sqlite
//	flow:
//	  - migrate:
//	      - {name: create_users, sql: "CREATE TABLE users (...)"}
//	    expect:
//	      applied: [create_users]
//	  - update: "INSERT INTO users (name) VALUES (:name)"
//	    params: {":name": ada}
//	    expect:
//	      rows_affected: 1
//	  - reopen: true
//	  - migrate:
//	      - {name: create_users, sql: "CREATE TABLE users (changed)"}
//	    expect:
//	      error: migration
//	assertions:
//	  - type: ledger
//	    names: [create_users]
//	  - type: final_state
//	    table: users
//	    where: {name: ada}
//	    expect: {id: 1}
//
// # Assertion Types
//
//   - ledger: the ledger holds exactly the listed migration names, in order
//   - final_state: exactly one row matches where, and its columns match expect
//   - row_count: a table holds exactly count rows
//   - trace_count: an operation appears exactly count times in the trace
//
// # Determinism
//
// Each run uses a fresh database file in a private temporary directory, and
// trace events are numbered from 1, so identical scenarios produce identical
// traces for golden file comparison.
package harness
