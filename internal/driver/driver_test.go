package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cdef/internal/buildpipeline"
	"cdef/internal/cdef"
	"cdef/internal/observ"
	"cdef/internal/project"
	"cdef/internal/testkit"
	"cdef/internal/version"
)

const testManifest = `[package]
name = "filters"

[output]
path = "include/filters.h"
header = "generated by cdef; do not edit"

[defaults]
precision = "single"

[[array]]
name = "lowpass"
source = "data/lowpass.txt"

[[array]]
name = "gains"
source = "data/gains.json"
precision = "double"
pack = false
export_length = true
`

func setupProject(t *testing.T, manifest string, files map[string]string) *project.Manifest {
	t.Helper()
	root := t.TempDir()
	for rel, data := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	path := filepath.Join(root, project.ManifestName)
	if err := os.WriteFile(path, []byte(manifest), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	m, err := project.LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	return m
}

func defaultFiles() map[string]string {
	return map[string]string{
		"data/lowpass.txt": "0.25 0.5 0.25\n",
		"data/gains.json":  "[1, 2.5, 3]",
	}
}

func TestGenerateRendersInManifestOrder(t *testing.T) {
	m := setupProject(t, testManifest, defaultFiles())
	sink := &buildpipeline.RecordingSink{}
	res, err := Generate(context.Background(), m, GenerateOptions{Jobs: 4, Sink: sink, Timer: observ.NewTimer()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := res.Err(); err != nil {
		t.Fatalf("array errors: %v", err)
	}
	if len(res.Arrays) != 2 || res.Arrays[0].Target.Options.Name != "lowpass" || res.Arrays[1].Target.Options.Name != "gains" {
		t.Fatalf("unexpected order: %+v", res.Arrays)
	}
	if err := testkit.CheckDeclaration(res.Arrays[0].Text, []float64{0.25, 0.5, 0.25}, res.Arrays[0].Target.Options); err != nil {
		t.Fatalf("lowpass: %v", err)
	}
	wantGains := "const unsigned gainsLength = 3;\n\n" +
		"const double gains[gainsLength] =\n{\n    1.0,\n    2.5,\n    3.0\n};\n\n"
	if res.Arrays[1].Text != wantGains {
		t.Fatalf("gains mismatch:\nwant %q\ngot  %q", wantGains, res.Arrays[1].Text)
	}

	finished := 0
	for _, ev := range sink.Events() {
		if ev.Finished() {
			finished++
		}
	}
	if finished != 2 {
		t.Fatalf("finished events = %d, want 2", finished)
	}
}

func TestGenerateUsesCache(t *testing.T) {
	m := setupProject(t, testManifest, defaultFiles())
	cache, err := NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	first, err := Generate(context.Background(), m, GenerateOptions{Cache: cache})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, a := range first.Arrays {
		if a.Cached {
			t.Fatalf("%s cached on first run", a.Target.Options.Name)
		}
	}
	second, err := Generate(context.Background(), m, GenerateOptions{Cache: cache})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i, a := range second.Arrays {
		if !a.Cached {
			t.Fatalf("%s not cached on second run", a.Target.Options.Name)
		}
		if a.Text != first.Arrays[i].Text || a.Count != first.Arrays[i].Count {
			t.Fatalf("%s: cached result differs", a.Target.Options.Name)
		}
	}

	if err := cache.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	third, err := Generate(context.Background(), m, GenerateOptions{Cache: cache})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if third.Arrays[0].Cached {
		t.Fatalf("cache survived DropAll")
	}
}

func TestGenerateCacheKeyedByVersion(t *testing.T) {
	m := setupProject(t, testManifest, defaultFiles())
	cache, err := NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	if _, err := Generate(context.Background(), m, GenerateOptions{Cache: cache}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	saved := version.Version
	version.Version = saved + "+next"
	t.Cleanup(func() { version.Version = saved })

	res, err := Generate(context.Background(), m, GenerateOptions{Cache: cache})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, a := range res.Arrays {
		if a.Cached {
			t.Fatalf("%s served from a cache entry written by another version", a.Target.Options.Name)
		}
	}
}

func TestGenerateReportsArrayErrors(t *testing.T) {
	files := defaultFiles()
	files["data/lowpass.txt"] = "0.25 oops\n"
	m := setupProject(t, testManifest, files)
	res, err := Generate(context.Background(), m, GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Failed() != 1 {
		t.Fatalf("Failed = %d, want 1", res.Failed())
	}
	if !errors.Is(res.Err(), cdef.ErrNonNumeric) {
		t.Fatalf("expected non-numeric error, got %v", res.Err())
	}
	if res.Arrays[1].Err != nil || res.Arrays[1].Text == "" {
		t.Fatalf("healthy array affected: %+v", res.Arrays[1])
	}
	if _, err := Assemble(res); err == nil {
		t.Fatalf("Assemble accepted a failed build")
	}
}

func TestGenerateEmptySource(t *testing.T) {
	files := defaultFiles()
	files["data/lowpass.txt"] = "# nothing yet\n"
	m := setupProject(t, testManifest, files)
	res, err := Generate(context.Background(), m, GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !errors.Is(res.Arrays[0].Err, cdef.ErrEmptySequence) {
		t.Fatalf("expected empty sequence error, got %v", res.Arrays[0].Err)
	}
}

func TestGenerateCancelled(t *testing.T) {
	m := setupProject(t, testManifest, defaultFiles())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Generate(ctx, m, GenerateOptions{Jobs: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Generate error = %v, want context.Canceled", err)
	}
}

func TestBuildWritesAndChecks(t *testing.T) {
	m := setupProject(t, testManifest, defaultFiles())
	ctx := context.Background()

	_, stale, err := Build(ctx, m, GenerateOptions{}, true)
	if err != nil || !stale {
		t.Fatalf("check before build: stale=%v err=%v", stale, err)
	}
	if _, _, err := Build(ctx, m, GenerateOptions{}, false); err != nil {
		t.Fatalf("Build: %v", err)
	}
	data, err := os.ReadFile(m.OutputPath())
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		"// generated by cdef; do not edit\n\n#ifndef FILTERS_H\n#define FILTERS_H\n\n",
		"const float lowpass[3] = {\n    0.25f, 0.5f, 0.25f\n};\n\n",
		"const unsigned gainsLength = 3;\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output lacks %q:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, "};\n\n#endif /* FILTERS_H */\n") {
		t.Fatalf("unexpected tail:\n%s", out)
	}
	if strings.Index(out, "lowpass[") > strings.Index(out, "gains[") {
		t.Fatalf("declarations out of manifest order")
	}

	_, stale, err = Build(ctx, m, GenerateOptions{}, true)
	if err != nil || stale {
		t.Fatalf("check after build: stale=%v err=%v", stale, err)
	}
}

func TestDeriveGuard(t *testing.T) {
	cases := map[string]string{
		"coeffs.h":           "COEFFS_H",
		"include/fir-taps.h": "FIR_TAPS_H",
		"2d  table.hpp":      "_2D_TABLE_HPP",
		"...":                "CDEF_GENERATED_H",
	}
	for in, want := range cases {
		if got := DeriveGuard(in); got != want {
			t.Errorf("DeriveGuard(%q) = %q, want %q", in, got, want)
		}
	}
}
