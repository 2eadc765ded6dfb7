package cdef

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

var errNotFinite = errors.New("NaN and infinities have no C literal")

// Literal renders v as a C floating literal for precision p.
//
// Whole values get exactly one decimal ("4.0", "4.0f"). Other values keep
// 10 significant digits for single precision and 19 for double.
func Literal(v float64, p Precision) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", errNotFinite
	}
	var s string
	if v == math.Trunc(v) {
		s = strconv.FormatFloat(v, 'f', 1, 64)
	} else if p == Double {
		s = strconv.FormatFloat(v, 'g', 19, 64)
	} else {
		s = strconv.FormatFloat(v, 'g', 10, 64)
	}
	if p == Double {
		return s, nil
	}
	return s + "f", nil
}

// Floats converts a loosely typed sequence (decoded JSON, msgpack, ...) into
// float64 values. Booleans, strings, nil and other non-numeric elements fail
// with *NonNumericValueError.
func Floats(values []any) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		f, err := toFloat(v)
		if err != nil {
			return nil, &NonNumericValueError{Index: i, Value: v, Err: err}
		}
		out[i] = f
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, errors.New("unsupported element type")
	}
}
