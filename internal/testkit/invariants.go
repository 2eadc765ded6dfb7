package testkit

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"cdef/internal/cdef"
)

// CheckDeclaration runs the declaration invariants on rendered output:
// 1) the array size (or the exported length constant) equals len(values)
// 2) the body holds exactly one literal per value, in order
// 3) packed lines stay within the line length unless a line holds one literal
// 4) unpacked output has one line per value
func CheckDeclaration(out string, values []float64, opt cdef.Options) error {
	count, err := safecast.Conv[uint32](len(values))
	if err != nil {
		return fmt.Errorf("len values overflow: %w", err)
	}
	lineLength := opt.LineLength
	if lineLength == 0 {
		lineLength = cdef.DefaultLineLength
	}

	// 1) size
	if opt.ExportLength {
		lengthName := opt.LengthName
		if lengthName == "" {
			lengthName = opt.Name + "Length"
		}
		wantLen := fmt.Sprintf(" unsigned %s = %d;\n", lengthName, count)
		if !strings.Contains(out, wantLen) {
			return fmt.Errorf("length constant %q not found", strings.TrimSpace(wantLen))
		}
		if !strings.Contains(out, fmt.Sprintf(" %s[%s] =\n{\n", opt.Name, lengthName)) {
			return fmt.Errorf("array %s is not sized by %s", opt.Name, lengthName)
		}
	} else if !strings.Contains(out, fmt.Sprintf(" %s[%d] = {\n", opt.Name, count)) {
		return fmt.Errorf("array %s[%d] header not found", opt.Name, count)
	}

	open := strings.Index(out, "{\n")
	closing := strings.LastIndex(out, "};\n")
	if open < 0 || closing < open {
		return fmt.Errorf("braces not found")
	}
	body := out[open+2 : closing]
	lines := strings.Split(strings.TrimSuffix(body, "\n"), "\n")

	// 2) literals in order
	var tokens []string
	for _, line := range lines {
		if !strings.HasPrefix(line, "    ") {
			return fmt.Errorf("line %q lacks the 4-space margin", line)
		}
		for _, tok := range strings.Split(line, ",") {
			tok = strings.TrimSpace(tok)
			if tok != "" {
				tokens = append(tokens, tok)
			}
		}
	}
	if len(tokens) != len(values) {
		return fmt.Errorf("body has %d literals, want %d", len(tokens), len(values))
	}
	precision := opt.Precision
	if precision == "" {
		precision = cdef.Single
	}
	for i, v := range values {
		want, err := cdef.Literal(v, precision)
		if err != nil {
			return fmt.Errorf("value %d: %w", i, err)
		}
		if tokens[i] != want {
			return fmt.Errorf("literal %d = %q, want %q", i, tokens[i], want)
		}
	}

	// 3) and 4) layout
	if !opt.Pack {
		if len(lines) != len(values) {
			return fmt.Errorf("unpacked body has %d lines, want %d", len(lines), len(values))
		}
		return nil
	}
	for _, line := range lines {
		if len(line) > lineLength && literalsOn(line) > 1 {
			return fmt.Errorf("line %q exceeds %d columns", line, lineLength)
		}
	}
	return nil
}

func literalsOn(line string) int {
	n := 0
	for _, tok := range strings.Split(line, ",") {
		if strings.TrimSpace(tok) != "" {
			n++
		}
	}
	return n
}
