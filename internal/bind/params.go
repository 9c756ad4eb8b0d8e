// Package bind converts between dynamic values and the native values a
// database/sql driver binds and returns.
//
// Outbound, ToBindParameters turns caller-supplied named values into driver
// arguments. Inbound, FromColumn turns a scanned column back into a
// value.Value. Fingerprint is the content digest the migration ledger uses.
package bind

import (
	"database/sql"
	"sort"
	"strings"

	"github.com/roach88/sqlbridge/internal/dberr"
	"github.com/roach88/sqlbridge/internal/value"
)

// NamedParameter is a placeholder name paired with its native value.
// Value is one of nil, int64, float64, string or []byte.
type NamedParameter struct {
	Name  string
	Value any
}

// Arg returns the parameter as a database/sql named argument.
// The placeholder prefix (":", "@" or "$") is stripped; drivers match the
// remaining name against every prefix form in the SQL text.
func (p NamedParameter) Arg() sql.NamedArg {
	return sql.Named(strings.TrimLeft(p.Name, ":@$"), p.Value)
}

// ToBindParameters converts named dynamic values into native parameters,
// sorted by name. The first value without a native counterpart aborts the
// call with a marshalling error naming the parameter.
//
// Names are not checked against the SQL text here; CheckPlaceholders does
// that, since the default driver binds a missing name as NULL and ignores
// extra ones.
func ToBindParameters(params map[string]any) ([]NamedParameter, error) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]NamedParameter, 0, len(names))
	for _, name := range names {
		raw := params[name]
		v, err := value.Parse(raw)
		if err != nil {
			return nil, dberr.Marshalling(name, value.Format(raw), err)
		}
		out = append(out, NamedParameter{Name: name, Value: Native(v)})
	}
	return out, nil
}

// Native returns the driver value for v.
func Native(v value.Value) any {
	switch val := v.(type) {
	case value.Integer:
		return int64(val)
	case value.Real:
		return float64(val)
	case value.Text:
		return string(val)
	case value.Blob:
		return []byte(val)
	default:
		// value.Null and nil
		return nil
	}
}

// Args converts parameters into a variadic argument list for
// ExecContext/QueryContext.
func Args(params []NamedParameter) []any {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p.Arg()
	}
	return args
}
