package cdef

import "strings"

// Precision selects the C element type and the literal format.
type Precision string

const (
	// Single renders float literals with an f suffix.
	Single Precision = "single"
	// Double renders double literals without suffix.
	Double Precision = "double"
)

// DefaultLineLength is the packing width used when Options.LineLength is zero.
const DefaultLineLength = 80

// margin prefixes every value line.
const margin = "    "

// ParsePrecision converts user input (case-insensitive) to a Precision.
// An empty string selects Single.
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "single", "float":
		return Single, nil
	case "double":
		return Double, nil
	default:
		return "", &InvalidPrecisionError{Value: s}
	}
}

// TypeName returns the C type keyword for p.
func (p Precision) TypeName() string {
	if p == Double {
		return "double"
	}
	return "float"
}

func (p Precision) valid() bool {
	return p == Single || p == Double
}

// Options controls how a declaration is rendered.
type Options struct {
	// Name is the array identifier. Required.
	Name string
	// Precision defaults to Single when empty.
	Precision Precision
	// ExportLength emits `unsigned <LengthName> = N;` and uses it as the array size.
	ExportLength bool
	// LengthName defaults to Name + "Length".
	LengthName string
	// Static prefixes declarations with the static storage qualifier.
	Static bool
	// Pack fills lines up to LineLength; otherwise one value per line.
	Pack bool
	// LineLength is the soft line width used when packing.
	LineLength int
}

// DefaultOptions returns options with the documented defaults: single
// precision, packed lines of at most DefaultLineLength columns.
func DefaultOptions(name string) Options {
	return Options{
		Name:       name,
		Precision:  Single,
		Pack:       true,
		LineLength: DefaultLineLength,
	}
}

func (o Options) withDefaults() Options {
	if o.Precision == "" {
		o.Precision = Single
	}
	if o.LineLength == 0 {
		o.LineLength = DefaultLineLength
	}
	if o.ExportLength && o.LengthName == "" {
		o.LengthName = o.Name + "Length"
	}
	return o
}

// Validate reports the first problem with o after defaults are applied.
func (o Options) Validate() error {
	o = o.withDefaults()
	if !o.Precision.valid() {
		return &InvalidPrecisionError{Value: string(o.Precision)}
	}
	if !IsIdentifier(o.Name) {
		return &InvalidNameError{Field: "name", Value: o.Name}
	}
	if o.ExportLength {
		if !IsIdentifier(o.LengthName) {
			return &InvalidNameError{Field: "length name", Value: o.LengthName}
		}
		if o.LengthName == o.Name {
			return &InvalidNameError{Field: "length name", Value: o.LengthName, Reason: "collides with the array name"}
		}
	}
	if o.Pack && o.LineLength <= 0 {
		return &InvalidLineLengthError{Value: o.LineLength}
	}
	return nil
}

func (o Options) prefix() string {
	if o.Static {
		return "static const"
	}
	return "const"
}
