package bind

import (
	"bytes"
	"database/sql"
	"fmt"
	"math"

	"github.com/roach88/sqlbridge/internal/dberr"
	"github.com/roach88/sqlbridge/internal/value"
)

// FromColumn converts a scanned column value into a value.Value.
//
// Each SQLite storage class arrives as nil, int64, float64, string or
// []byte and maps to the matching variant. The drivers turn columns declared
// DATE/DATETIME/TIMESTAMP or BOOLEAN into time.Time and bool, which no longer
// tell which storage class was read; store.Select queries around that
// conversion, and if such a value still reaches here it is rejected.
//
// A NaN or infinite real is rejected: the dynamic value model only carries
// finite numbers.
func FromColumn(v any) (value.Value, error) {
	switch val := v.(type) {
	case nil:
		return value.Null{}, nil
	case int64:
		return value.Integer(val), nil
	case int:
		return value.Integer(val), nil
	case int32:
		return value.Integer(val), nil
	case float64:
		return fromFloat(val)
	case float32:
		return fromFloat(float64(val))
	case string:
		return value.Text(val), nil
	case []byte:
		return value.Blob(bytes.Clone(val)), nil
	default:
		return nil, fmt.Errorf("%w: column type %T", value.ErrUnsupported, v)
	}
}

func fromFloat(f float64) (value.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v", value.ErrNonFinite, f)
	}
	return value.Real(f), nil
}

// ScanRows reads every remaining row of rows into a result set.
// Column names come from the cursor; duplicates collapse with the last
// column winning. The first conversion failure aborts the whole call.
// rows is not closed.
func ScanRows(rows *sql.Rows) (value.ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, dberr.Database("read columns", err)
	}

	result := value.ResultSet{}
	raw := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, dberr.Database("scan row", err)
		}

		row := value.NewRow(len(columns))
		for i, name := range columns {
			v, err := FromColumn(raw[i])
			if err != nil {
				return nil, dberr.Marshalling(name, fmt.Sprintf("%v", raw[i]), err)
			}
			row.Set(name, v)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, dberr.Database("iterate rows", err)
	}
	return result, nil
}
