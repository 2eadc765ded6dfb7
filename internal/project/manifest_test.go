package project

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"cdef/internal/cdef"
	"cdef/internal/input"
)

func writeManifest(t *testing.T, dir, data string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", ManifestName, err)
	}
	return path
}

func TestLoadManifestResolvesDefaults(t *testing.T) {
	root := t.TempDir()
	path := writeManifest(t, root, `# test manifest
[package]
name = "filters"

[output]
path = "include/coeffs.h"

[defaults]
precision = "double"
static = true
line_length = 60

[[array]]
name = "lowpass"
source = "data/lowpass.txt"

[[array]]
name = "highpass"
source = "data/highpass.json"
precision = "single"
pack = false
export_length = true
length_name = "HIGHPASS_TAPS"
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Package.Name != "filters" {
		t.Fatalf("Package.Name = %q", m.Package.Name)
	}
	if got, want := m.OutputPath(), filepath.Join(root, "include", "coeffs.h"); got != want {
		t.Fatalf("OutputPath = %q, want %q", got, want)
	}
	if len(m.Targets) != 2 {
		t.Fatalf("len(Targets) = %d, want 2", len(m.Targets))
	}

	low := m.Targets[0]
	wantLow := cdef.Options{Name: "lowpass", Precision: cdef.Double, Static: true, Pack: true, LineLength: 60}
	if low.Options != wantLow {
		t.Fatalf("lowpass options = %+v, want %+v", low.Options, wantLow)
	}
	if low.Format != input.FormatText || low.Source != filepath.Join(root, "data", "lowpass.txt") {
		t.Fatalf("lowpass source = %q (%s)", low.Source, low.Format)
	}

	high := m.Targets[1]
	wantHigh := cdef.Options{
		Name:         "highpass",
		Precision:    cdef.Single,
		ExportLength: true,
		LengthName:   "HIGHPASS_TAPS",
		Static:       true,
		Pack:         false,
		LineLength:   60,
	}
	if high.Options != wantHigh {
		t.Fatalf("highpass options = %+v, want %+v", high.Options, wantHigh)
	}
	if high.Format != input.FormatJSON {
		t.Fatalf("highpass format = %q, want json", high.Format)
	}

	inputs := m.Inputs()
	wantInputs := []string{path, low.Source, high.Source}
	if !slices.Equal(inputs, wantInputs) {
		t.Fatalf("Inputs = %v, want %v", inputs, wantInputs)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	cases := []struct {
		name    string
		data    string
		want    error
		wantMsg string
	}{
		{
			name: "missing package name",
			data: "[output]\npath = \"a.h\"\n[[array]]\nname = \"a\"\nsource = \"a.txt\"\n",
			want: ErrPackageNameMissing,
		},
		{
			name: "missing output",
			data: "[package]\nname = \"p\"\n[[array]]\nname = \"a\"\nsource = \"a.txt\"\n",
			want: ErrOutputPathMissing,
		},
		{
			name: "no arrays",
			data: "[package]\nname = \"p\"\n[output]\npath = \"a.h\"\n",
			want: ErrNoArrays,
		},
		{
			name: "bad precision",
			data: "[package]\nname = \"p\"\n[output]\npath = \"a.h\"\n[[array]]\nname = \"a\"\nsource = \"a.txt\"\nprecision = \"half\"\n",
			want: cdef.ErrInvalidPrecision,
		},
		{
			name: "bad identifier",
			data: "[package]\nname = \"p\"\n[output]\npath = \"a.h\"\n[[array]]\nname = \"9a\"\nsource = \"a.txt\"\n",
			want: cdef.ErrInvalidName,
		},
		{
			name:    "duplicate identifier",
			data:    "[package]\nname = \"p\"\n[output]\npath = \"a.h\"\n[[array]]\nname = \"a\"\nsource = \"a.txt\"\nexport_length = true\n[[array]]\nname = \"aLength\"\nsource = \"b.txt\"\n",
			wantMsg: "already declared",
		},
		{
			name:    "unknown key",
			data:    "[package]\nname = \"p\"\n[output]\npath = \"a.h\"\n[[array]]\nname = \"a\"\nsource = \"a.txt\"\ncolour = \"red\"\n",
			wantMsg: "unknown keys: array.colour",
		},
		{
			name:    "missing source",
			data:    "[package]\nname = \"p\"\n[output]\npath = \"a.h\"\n[[array]]\nname = \"a\"\n",
			wantMsg: "missing source",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tc.data)
			_, err := LoadManifest(path)
			if err == nil {
				t.Fatalf("LoadManifest succeeded")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
			if tc.wantMsg != "" && !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("error = %v, want it to mention %q", err, tc.wantMsg)
			}
		})
	}
}

func TestDefaultManifestLoads(t *testing.T) {
	root := t.TempDir()
	path := writeManifest(t, root, DefaultManifest("demo"))
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest(DefaultManifest): %v", err)
	}
	if len(m.Targets) != 1 || m.Targets[0].Options.LengthName != "exampleLength" {
		t.Fatalf("unexpected targets: %+v", m.Targets)
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	path := writeManifest(t, root, DefaultManifest("demo"))
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// a directory with the manifest's name is not a manifest
	if err := os.Mkdir(filepath.Join(root, "a", ManifestName), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, ok, err := FindManifest(nested)
	if err != nil || !ok {
		t.Fatalf("FindManifest: ok=%v err=%v", ok, err)
	}
	if got != path {
		t.Fatalf("FindManifest = %q, want %q", got, path)
	}
}

func TestHashOptionsNormalizesDefaults(t *testing.T) {
	a := HashOptions(cdef.Options{Name: "x", Pack: true})
	b := HashOptions(cdef.DefaultOptions("x"))
	if a != b {
		t.Fatalf("equivalent options hash differently")
	}
	c := HashOptions(cdef.Options{Name: "x", Pack: true, Static: true})
	if a == c {
		t.Fatalf("static flag does not change the hash")
	}
	if len(a.Hex()) != 64 {
		t.Fatalf("Hex length = %d", len(a.Hex()))
	}
}
