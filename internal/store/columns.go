package store

import (
	"context"
	"strings"

	"github.com/roach88/sqlbridge/internal/dberr"
)

// Both drivers rewrite a column value by its declared type before the
// caller sees it: DATE/DATETIME/TIMESTAMP text becomes time.Time (or the
// zero time when it does not parse) and BOOLEAN integers become bool. A
// compound select takes column names and declared types from its leftmost
// arm, so an empty leftmost arm of bare NULLs leaves every value in its
// storage class.

// rawQuery returns sqlText rewritten so that its columns carry no declared
// type. Statements that cannot be a subquery (PRAGMA, RETURNING, several
// statements, syntax errors) are returned unchanged; they run as written.
//
// The original query is run once, unstepped, to read its column names:
// names from the subquery form would be made unique ("x:1").
func (s *Store) rawQuery(ctx context.Context, sqlText string, args []any) (string, error) {
	inner := strings.TrimRight(strings.TrimSpace(sqlText), "; \t\r\n")

	check, err := s.db.QueryContext(ctx, "SELECT * FROM (\n"+inner+"\n) LIMIT 0", args...)
	if err != nil {
		return sqlText, nil
	}
	check.Close()

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return "", dberr.Database("execute select", err)
	}
	columns, err := rows.Columns()
	rows.Close()
	if err != nil {
		return "", dberr.Database("read columns", err)
	}

	nulls := make([]string, len(columns))
	for i, name := range columns {
		nulls[i] = "NULL AS " + quoteIdent(name)
	}
	return "SELECT " + strings.Join(nulls, ", ") + " WHERE 0\nUNION ALL\nSELECT * FROM (\n" + inner + "\n)", nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
