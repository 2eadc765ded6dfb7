package cdef

import (
	"fmt"
	"io"
	"strings"

	"fortio.org/safecast"
)

// Format renders values as a C constant array declaration. When
// opt.ExportLength is set the output starts with the length constant.
//
// The result always ends with "};\n\n" so that several declarations can be
// concatenated with a blank line between them.
func Format(values []float64, opt Options) (string, error) {
	if err := opt.Validate(); err != nil {
		return "", err
	}
	opt = opt.withDefaults()
	if len(values) == 0 {
		return "", &EmptySequenceError{Name: opt.Name}
	}
	// unsigned is the type of the length constant; keep the count within it.
	count, err := safecast.Conv[uint32](len(values))
	if err != nil {
		return "", fmt.Errorf("cdef: %s: %d elements overflow unsigned: %w", opt.Name, len(values), err)
	}

	body := newBodyWriter(opt, len(values))
	last := len(values) - 1
	for i, v := range values {
		lit, err := Literal(v, opt.Precision)
		if err != nil {
			return "", &NonNumericValueError{Index: i, Value: v, Err: err}
		}
		body.WriteValue(lit, i == last)
	}

	var sb strings.Builder
	prefix := opt.prefix()
	typeName := opt.Precision.TypeName()
	if opt.ExportLength {
		fmt.Fprintf(&sb, "%s unsigned %s = %d;\n\n", prefix, opt.LengthName, count)
		fmt.Fprintf(&sb, "%s %s %s[%s] =\n{\n", prefix, typeName, opt.Name, opt.LengthName)
	} else {
		fmt.Fprintf(&sb, "%s %s %s[%d] = {\n", prefix, typeName, opt.Name, count)
	}
	sb.Write(body.Bytes())
	sb.WriteString("};\n\n")
	return sb.String(), nil
}

// FormatAny converts values with Floats and renders them with Format.
func FormatAny(values []any, opt Options) (string, error) {
	if err := opt.Validate(); err != nil {
		return "", err
	}
	floats, err := Floats(values)
	if err != nil {
		return "", err
	}
	return Format(floats, opt)
}

// FormatTo writes the declaration to w. Nothing is written when rendering fails.
func FormatTo(w io.Writer, values []float64, opt Options) error {
	out, err := Format(values, opt)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
