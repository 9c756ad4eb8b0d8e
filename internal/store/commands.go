package store

import (
	"context"

	"github.com/roach88/sqlbridge/internal/bind"
	"github.com/roach88/sqlbridge/internal/dberr"
	"github.com/roach88/sqlbridge/internal/migrate"
	"github.com/roach88/sqlbridge/internal/value"
)

// Result reports the effect of an Update.
type Result struct {
	RowsAffected int64 `json:"rows_affected"`
	LastInsertID int64 `json:"last_insert_id"`
}

// Batch executes one or more semicolon-separated statements without
// parameters. The first failing statement aborts the rest; statements that
// already ran are not undone.
func (s *Store) Batch(ctx context.Context, sqlText string) error {
	if _, err := s.db.ExecContext(ctx, sqlText); err != nil {
		return dberr.Database("execute batch", err)
	}
	return nil
}

// Update executes one parameterized statement.
// params maps placeholder names (":id") to dynamic values and must name
// every placeholder in sqlText, and nothing else.
func (s *Store) Update(ctx context.Context, sqlText string, params map[string]any) (Result, error) {
	bound, err := bindParams(sqlText, params)
	if err != nil {
		return Result{}, err
	}

	res, err := s.db.ExecContext(ctx, sqlText, bind.Args(bound)...)
	if err != nil {
		return Result{}, dberr.Database("execute update", err)
	}

	var out Result
	if out.RowsAffected, err = res.RowsAffected(); err != nil {
		return Result{}, dberr.Database("rows affected", err)
	}
	if out.LastInsertID, err = res.LastInsertId(); err != nil {
		return Result{}, dberr.Database("last insert id", err)
	}
	return out, nil
}

// Select runs one parameterized query and returns every row.
// Values come back in their storage class whatever the declared column
// type (see rawQuery). A column that cannot be represented as a dynamic
// value fails the whole call.
func (s *Store) Select(ctx context.Context, sqlText string, params map[string]any) (value.ResultSet, error) {
	bound, err := bindParams(sqlText, params)
	if err != nil {
		return nil, err
	}
	args := bind.Args(bound)

	query, err := s.rawQuery(ctx, sqlText, args)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberr.Database("execute select", err)
	}
	defer rows.Close()

	return bind.ScanRows(rows)
}

// bindParams converts params and checks them against the placeholders in
// sqlText before anything runs.
func bindParams(sqlText string, params map[string]any) ([]bind.NamedParameter, error) {
	bound, err := bind.ToBindParameters(params)
	if err != nil {
		return nil, err
	}
	if err := bind.CheckPlaceholders(sqlText, bound); err != nil {
		return nil, err
	}
	return bound, nil
}

// Migrations returns a migration engine bound to this store.
func (s *Store) Migrations(opts ...migrate.Option) *migrate.Engine {
	return migrate.New(s.db, opts...)
}

// Migrate reconciles migrations against this store's ledger.
func (s *Store) Migrate(ctx context.Context, migrations []migrate.Migration, opts ...migrate.Option) (migrate.Report, error) {
	return s.Migrations(opts...).Apply(ctx, migrations)
}
