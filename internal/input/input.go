// Package input reads numeric sequences from text, JSON, YAML and msgpack
// sources.
package input

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"cdef/internal/cdef"
)

// Format names an input encoding.
type Format string

const (
	FormatAuto    Format = ""
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat converts a flag or manifest value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("input: unsupported format %q (expected text|json|yaml|msgpack)", s)
	}
}

// FormatFromPath picks a format from the file extension; anything unknown is text.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".msgpack", ".mp":
		return FormatMsgpack
	default:
		return FormatText
	}
}

// ReadFile reads the numbers stored at path. FormatAuto resolves by extension.
func ReadFile(path string, format Format) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if format == FormatAuto {
		format = FormatFromPath(path)
	}
	values, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}

// Read consumes r and parses it. FormatAuto is treated as text.
func Read(r io.Reader, format Format) ([]float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data, format)
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format) ([]float64, error) {
	switch format {
	case FormatAuto, FormatText:
		return parseText(data)
	case FormatJSON:
		return parseJSON(data)
	case FormatYAML:
		return parseYAML(data)
	case FormatMsgpack:
		return parseMsgpack(data)
	default:
		return nil, fmt.Errorf("input: unsupported format %q", format)
	}
}

// parseText splits on whitespace, ',' and ';'. '#' and "//" start a comment
// that runs to the end of the line.
func parseText(data []byte) ([]float64, error) {
	var values []float64
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		col := 0
		for col < len(line) {
			if isSeparator(line[col]) {
				col++
				continue
			}
			start := col
			for col < len(line) && !isSeparator(line[col]) {
				col++
			}
			field := line[start:col]
			v, err := strconv.ParseFloat(field, 64)
			// ParseFloat accepts inf and nan; they have no C literal
			if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
				return nil, &cdef.NonNumericValueError{
					Index:  len(values),
					Value:  field,
					Line:   lineNo,
					Column: start + 1,
				}
			}
			values = append(values, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

func isSeparator(c byte) bool {
	switch c {
	case ' ', '\t', '\r', ',', ';':
		return true
	}
	return false
}

func parseJSON(data []byte) ([]float64, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("input: json array expected: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("input: unexpected data after json array")
	}
	return cdef.Floats(raw)
}

// parseYAML accepts a top-level sequence; .nan and .inf decode but are
// rejected later as non-numeric.
func parseYAML(data []byte) ([]float64, error) {
	var raw []any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("input: yaml sequence expected: %w", err)
	}
	return cdef.Floats(raw)
}

func parseMsgpack(data []byte) ([]float64, error) {
	var raw []any
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("input: msgpack array expected: %w", err)
	}
	return cdef.Floats(raw)
}
