package bind

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sqlbridge/internal/dberr"
)

// Placeholders lists the parameter markers in sqlText in order of first
// appearance: ":name", "@name", "$name", "?" and "?NNN". Markers inside
// string literals, quoted identifiers and comments are skipped.
func Placeholders(sqlText string) []string {
	var out []string
	add := func(p string) {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}

	for i := 0; i < len(sqlText); {
		c := sqlText[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(sqlText, i, c)
		case c == '[':
			i = skipTo(sqlText, i+1, "]")
		case c == '-' && strings.HasPrefix(sqlText[i:], "--"):
			i = skipTo(sqlText, i+2, "\n")
		case c == '/' && strings.HasPrefix(sqlText[i:], "/*"):
			i = skipTo(sqlText, i+2, "*/")
		case c == '?':
			j := i + 1
			for j < len(sqlText) && isDigit(sqlText[j]) {
				j++
			}
			add(sqlText[i:j])
			i = j
		case c == ':' || c == '@' || c == '$':
			j := i + 1
			for j < len(sqlText) && isIdentByte(sqlText[j]) {
				j++
			}
			if j > i+1 {
				add(sqlText[i:j])
			}
			i = j
		case isIdentByte(c):
			// Identifiers and numbers; keeps "a$b" from reading as a marker
			for i < len(sqlText) && (isIdentByte(sqlText[i]) || sqlText[i] == '$') {
				i++
			}
		default:
			i++
		}
	}
	return out
}

// CheckPlaceholders reports a database error unless params names exactly
// the markers in sqlText. Markers are matched without their prefix, the way
// Arg binds them. Positional markers can never be satisfied by named
// parameters.
func CheckPlaceholders(sqlText string, params []NamedParameter) error {
	supplied := make(map[string]bool, len(params))
	for _, p := range params {
		supplied[p.Arg().Name] = false
	}

	for _, marker := range Placeholders(sqlText) {
		if marker[0] == '?' {
			return dberr.Database("bind parameters", fmt.Errorf("positional parameter %q has no named counterpart", marker))
		}
		name := marker[1:]
		if _, ok := supplied[name]; !ok {
			return dberr.Database("bind parameters", fmt.Errorf("missing named argument %q", name))
		}
		supplied[name] = true
	}

	for _, p := range params {
		if !supplied[p.Arg().Name] {
			return dberr.Database("bind parameters", fmt.Errorf("unknown named argument %q", p.Name))
		}
	}
	return nil
}

func skipQuoted(s string, i int, quote byte) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != quote {
			continue
		}
		// A doubled quote is an escaped quote
		if j+1 < len(s) && s[j+1] == quote {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

func skipTo(s string, i int, end string) int {
	if k := strings.Index(s[i:], end); k >= 0 {
		return i + k + len(end)
	}
	return len(s)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isIdentByte accepts ASCII word characters and any byte of a multi-byte
// UTF-8 sequence, as SQLite's tokenizer does.
func isIdentByte(c byte) bool {
	return c == '_' || isDigit(c) || (c|0x20 >= 'a' && c|0x20 <= 'z') || c >= 0x80
}
