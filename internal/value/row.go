package value

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Row is an ordered mapping from column name to Value.
// Columns keep first-seen order; a repeated column name overwrites the
// earlier value (last wins), matching how a result map is built from a query
// that selects two columns with the same name.
type Row struct {
	columns []string
	values  map[string]Value
}

// NewRow creates an empty row with room for n columns.
func NewRow(n int) Row {
	return Row{
		columns: make([]string, 0, n),
		values:  make(map[string]Value, n),
	}
}

// Set stores v under column.
func (r *Row) Set(column string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, exists := r.values[column]; !exists {
		r.columns = append(r.columns, column)
	}
	if v == nil {
		v = Null{}
	}
	r.values[column] = v
}

// Get returns the value stored under column.
func (r Row) Get(column string) (Value, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Columns returns column names in order. The slice must not be modified.
func (r Row) Columns() []string {
	return r.columns
}

// Len returns the number of distinct columns.
func (r Row) Len() int {
	return len(r.columns)
}

// MarshalJSON encodes the row as a JSON object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(col)
		if err != nil {
			return nil, fmt.Errorf("marshal column %q: %w", col, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := Marshal(r.values[col])
		if err != nil {
			return nil, fmt.Errorf("marshal column %q: %w", col, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ResultSet is a sequence of rows in cursor order.
type ResultSet []Row

// MarshalJSON encodes an empty or nil result set as [] rather than null.
func (rs ResultSet) MarshalJSON() ([]byte, error) {
	if len(rs) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal([]Row(rs))
}
