package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// Parse converts a decoded JSON value into a Value.
//
// Numbers should be decoded with json.Decoder.UseNumber so integers keep full
// 64-bit precision; a plain float64 is always treated as Real. Arrays become
// Blob only when every element is an integer in [0,255]. Booleans and objects
// are rejected rather than coerced.
func Parse(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case json.Number:
		return parseNumber(val)
	case float64:
		return Real(val), nil
	case float32:
		return Real(val), nil
	case int:
		return Integer(val), nil
	case int8:
		return Integer(val), nil
	case int16:
		return Integer(val), nil
	case int32:
		return Integer(val), nil
	case int64:
		return Integer(val), nil
	case uint8:
		return Integer(val), nil
	case uint16:
		return Integer(val), nil
	case uint32:
		return Integer(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return nil, unsupported(v)
		}
		return Integer(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, unsupported(v)
		}
		return Integer(val), nil
	case string:
		return Text(val), nil
	case []byte:
		return Blob(bytes.Clone(val)), nil
	case []any:
		return parseBlob(val)
	default:
		// bool, map[string]any and anything else
		return nil, unsupported(v)
	}
}

// Decode parses JSON text into a Value, preserving 64-bit integer precision.
func Decode(data []byte) (Value, error) {
	raw, err := decodeAny(data)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// DecodeObject parses a JSON object into a map of dynamic values without
// converting them, so callers can report unsupported entries by key.
// Numbers are json.Number.
func DecodeObject(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	raw, err := decodeAny(data)
	if err != nil {
		return nil, err
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %s", Format(raw))
	}
	return obj, nil
}

func decodeAny(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode JSON: unexpected data after the first value")
	}
	return raw, nil
}

// parseNumber splits integer-shaped numbers from everything else.
func parseNumber(n json.Number) (Value, error) {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: integer out of range: %s", ErrUnsupported, s)
		}
		return Integer(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, s)
	}
	return Real(f), nil
}

// parseBlob decodes the integer-array blob encoding.
func parseBlob(elems []any) (Value, error) {
	out := make(Blob, len(elems))
	for i, elem := range elems {
		b, ok := byteOf(elem)
		if !ok {
			return nil, fmt.Errorf("%w: blob element %d is not a byte: %s", ErrUnsupported, i, Format(elems))
		}
		out[i] = b
	}
	return out, nil
}

// byteOf accepts integer-shaped numbers in [0,255].
func byteOf(v any) (byte, bool) {
	var n int64
	switch val := v.(type) {
	case json.Number:
		if strings.ContainsAny(string(val), ".eE") {
			return 0, false
		}
		i, err := val.Int64()
		if err != nil {
			return 0, false
		}
		n = i
	case float64:
		if val != math.Trunc(val) || val < 0 || val > math.MaxUint8 {
			return 0, false
		}
		n = int64(val)
	case int:
		n = int64(val)
	case int64:
		n = val
	case uint8:
		n = int64(val)
	case Integer:
		n = int64(val)
	default:
		return 0, false
	}
	if n < 0 || n > math.MaxUint8 {
		return 0, false
	}
	return byte(n), true
}

func unsupported(v any) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, Format(v))
}
