package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"cdef/internal/cdef"
	"cdef/internal/input"
)

var (
	// ErrPackageNameMissing indicates that [package].name is missing.
	ErrPackageNameMissing = errors.New("missing [package].name")
	// ErrOutputPathMissing indicates that [output].path is missing.
	ErrOutputPathMissing = errors.New("missing [output].path")
	// ErrNoArrays indicates that the manifest declares no [[array]] tables.
	ErrNoArrays = errors.New("no [[array]] entries")
)

// PackageConfig is the [package] table.
type PackageConfig struct {
	Name string `toml:"name"`
}

// OutputConfig is the [output] table.
type OutputConfig struct {
	Path   string `toml:"path"`
	Guard  string `toml:"guard"`
	Header string `toml:"header"`
}

// ArrayConfig is an [[array]] entry. The same shape is used for [defaults],
// where name and source are ignored. Pointer fields distinguish "unset" from false.
type ArrayConfig struct {
	Name         string `toml:"name"`
	Source       string `toml:"source"`
	Format       string `toml:"format"`
	Precision    string `toml:"precision"`
	ExportLength *bool  `toml:"export_length"`
	LengthName   string `toml:"length_name"`
	Static       *bool  `toml:"static"`
	Pack         *bool  `toml:"pack"`
	LineLength   int    `toml:"line_length"`
}

type manifestFile struct {
	Package  PackageConfig `toml:"package"`
	Output   OutputConfig  `toml:"output"`
	Defaults ArrayConfig   `toml:"defaults"`
	Arrays   []ArrayConfig `toml:"array"`
}

// Target is a fully resolved array: where to read it and how to render it.
type Target struct {
	Options cdef.Options
	Source  string
	Format  input.Format
}

// Manifest is a validated cdef.toml.
type Manifest struct {
	Path     string
	Root     string
	Package  PackageConfig
	Output   OutputConfig
	Defaults ArrayConfig
	Targets  []Target
}

// OutputPath returns the absolute path of the generated header.
func (m *Manifest) OutputPath() string {
	if filepath.IsAbs(m.Output.Path) {
		return m.Output.Path
	}
	return filepath.Join(m.Root, filepath.FromSlash(m.Output.Path))
}

// Inputs lists every file the generated header depends on: the manifest
// itself followed by the array sources in manifest order.
func (m *Manifest) Inputs() []string {
	paths := make([]string, 0, len(m.Targets)+1)
	paths = append(paths, m.Path)
	for _, t := range m.Targets {
		paths = append(paths, t.Source)
	}
	return paths
}

// LoadManifest parses and validates the manifest at path. Every [[array]] is
// resolved against [defaults] and the built-in defaults.
func LoadManifest(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	var cfg manifestFile
	meta, err := toml.DecodeFile(abs, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", abs, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%s: unknown keys: %s", abs, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return nil, fmt.Errorf("%s: %w", abs, ErrPackageNameMissing)
	}
	if !meta.IsDefined("output", "path") || strings.TrimSpace(cfg.Output.Path) == "" {
		return nil, fmt.Errorf("%s: %w", abs, ErrOutputPathMissing)
	}
	if len(cfg.Arrays) == 0 {
		return nil, fmt.Errorf("%s: %w", abs, ErrNoArrays)
	}
	if cfg.Output.Guard != "" && !cdef.IsIdentifier(cfg.Output.Guard) {
		return nil, fmt.Errorf("%s: invalid [output].guard %q", abs, cfg.Output.Guard)
	}

	m := &Manifest{
		Path:     abs,
		Root:     filepath.Dir(abs),
		Package:  cfg.Package,
		Output:   cfg.Output,
		Defaults: cfg.Defaults,
		Targets:  make([]Target, 0, len(cfg.Arrays)),
	}
	seen := make(map[string]int, len(cfg.Arrays)*2)
	for i, arr := range cfg.Arrays {
		target, err := m.resolve(arr)
		if err != nil {
			return nil, fmt.Errorf("%s: array #%d: %w", abs, i+1, err)
		}
		names := []string{target.Options.Name}
		if target.Options.ExportLength {
			names = append(names, target.Options.LengthName)
		}
		for _, name := range names {
			if prev, dup := seen[name]; dup {
				return nil, fmt.Errorf("%s: array #%d: identifier %q already declared by array #%d", abs, i+1, name, prev)
			}
			seen[name] = i + 1
		}
		m.Targets = append(m.Targets, target)
	}
	return m, nil
}

func (m *Manifest) resolve(arr ArrayConfig) (Target, error) {
	name := strings.TrimSpace(arr.Name)
	if name == "" {
		return Target{}, errors.New("missing name")
	}
	src := strings.TrimSpace(arr.Source)
	if src == "" {
		return Target{}, fmt.Errorf("%s: missing source", name)
	}
	if !filepath.IsAbs(src) {
		src = filepath.Join(m.Root, filepath.FromSlash(src))
	}

	def := m.Defaults
	opt := cdef.DefaultOptions(name)

	precision, err := cdef.ParsePrecision(firstNonEmpty(arr.Precision, def.Precision))
	if err != nil {
		return Target{}, fmt.Errorf("%s: %w", name, err)
	}
	opt.Precision = precision
	opt.ExportLength = boolOr(arr.ExportLength, def.ExportLength, opt.ExportLength)
	opt.Static = boolOr(arr.Static, def.Static, opt.Static)
	opt.Pack = boolOr(arr.Pack, def.Pack, opt.Pack)
	if ll := firstNonZero(arr.LineLength, def.LineLength); ll != 0 {
		opt.LineLength = ll
	}
	opt.LengthName = strings.TrimSpace(arr.LengthName)
	if opt.ExportLength && opt.LengthName == "" {
		opt.LengthName = name + "Length"
	}
	if err := opt.Validate(); err != nil {
		return Target{}, err
	}

	format, err := input.ParseFormat(firstNonEmpty(arr.Format, def.Format))
	if err != nil {
		return Target{}, fmt.Errorf("%s: %w", name, err)
	}
	if format == input.FormatAuto {
		format = input.FormatFromPath(src)
	}
	return Target{Options: opt, Source: src, Format: format}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func boolOr(value, fallback *bool, def bool) bool {
	if value != nil {
		return *value
	}
	if fallback != nil {
		return *fallback
	}
	return def
}

// DefaultManifest returns the starter manifest written by `cdef init`.
func DefaultManifest(name string) string {
	return fmt.Sprintf(`# cdef project manifest
[package]
name = "%s"

[output]
path = "%s.h"
header = "generated by cdef; do not edit"

[defaults]
precision = "single"
pack = true
line_length = 80

[[array]]
name = "example"
source = "data/example.txt"
export_length = true
`, name, name)
}
