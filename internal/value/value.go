package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrUnsupported is returned when a dynamic value has no native counterpart
// (booleans, objects, arrays holding non-byte elements, unknown Go types).
var ErrUnsupported = errors.New("unsupported value")

// ErrNonFinite is returned when a Real is NaN or infinite.
var ErrNonFinite = errors.New("non-finite real")

// Value is a sealed interface over the five boundary variants.
// Only Null, Integer, Real, Text and Blob implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents SQL NULL / JSON null.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Integer represents a 64-bit signed integer.
type Integer int64

func (Integer) value() {}

// MarshalJSON implements json.Marshaler for Integer.
func (i Integer) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(i), 10), nil
}

// Real represents a 64-bit float.
type Real float64

func (Real) value() {}

// MarshalJSON implements json.Marshaler for Real.
// Integral reals keep a fractional part ("2.0") so they decode back as Real.
func (r Real) MarshalJSON() ([]byte, error) {
	f := float64(r)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v", ErrNonFinite, f)
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	if !bytes.ContainsAny(data, ".eE") {
		data = append(data, '.', '0')
	}
	return data, nil
}

// Text represents a UTF-8 string.
type Text string

func (Text) value() {}

// MarshalJSON implements json.Marshaler for Text.
// HTML escaping is disabled so stored text reads back byte for byte.
func (t Text) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(string(t)); err != nil {
		return nil, err
	}
	// Encoder adds a trailing newline, remove it
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Blob represents a byte sequence.
type Blob []byte

func (Blob) value() {}

// MarshalJSON encodes the blob as an array of byte integers, never base64.
func (b Blob) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(b)*4 + 2)
	buf.WriteByte('[')
	for i, c := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Itoa(int(c)))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Marshal encodes a Value to JSON.
// Uses type-switch dispatch so a nil Value encodes as null.
func Marshal(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case Null:
		return val.MarshalJSON()
	case Integer:
		return val.MarshalJSON()
	case Real:
		return val.MarshalJSON()
	case Text:
		return val.MarshalJSON()
	case Blob:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// Equal reports whether two values hold the same variant and payload.
// A nil Value is treated as Null.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Integer:
		y, ok := b.(Integer)
		return ok && x == y
	case Real:
		y, ok := b.(Real)
		return ok && x == y
	case Text:
		y, ok := b.(Text)
		return ok && x == y
	case Blob:
		y, ok := b.(Blob)
		return ok && bytes.Equal(x, y)
	default:
		return false
	}
}

// Format renders an arbitrary dynamic value the way it appeared in JSON input.
// Used in error messages; falls back to %v for values JSON cannot encode.
func Format(v any) string {
	if val, ok := v.(Value); ok {
		if data, err := Marshal(val); err == nil {
			return string(data)
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
