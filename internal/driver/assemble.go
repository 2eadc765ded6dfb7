package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cdef/internal/buildpipeline"
	"cdef/internal/project"
	"cdef/internal/trace"
)

var upper = cases.Upper(language.Und)

// DeriveGuard turns an output path into an include guard: "include/fir-taps.h"
// becomes "FIR_TAPS_H". Runs of other characters collapse into one underscore.
func DeriveGuard(path string) string {
	base := filepath.Base(path)
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range upper.String(base) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && sb.Len() > 0 {
				sb.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	guard := strings.TrimSuffix(sb.String(), "_")
	if guard == "" {
		return "CDEF_GENERATED_H"
	}
	if guard[0] >= '0' && guard[0] <= '9' {
		guard = "_" + guard
	}
	return guard
}

// Assemble joins the rendered arrays into the header text. It refuses to
// produce anything while any array failed.
func Assemble(res *Result) ([]byte, error) {
	if res == nil || res.Manifest == nil {
		return nil, errors.New("driver: nothing to assemble")
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("%d of %d arrays failed: %w", res.Failed(), len(res.Arrays), err)
	}
	m := res.Manifest
	guard := m.Output.Guard
	if guard == "" {
		guard = DeriveGuard(m.Output.Path)
	}

	var buf bytes.Buffer
	if header := strings.TrimSpace(m.Output.Header); header != "" {
		for _, line := range strings.Split(header, "\n") {
			buf.WriteString("// ")
			buf.WriteString(strings.TrimRight(line, " \t"))
			buf.WriteByte('\n')
		}
		buf.WriteByte('\n')
	}
	fmt.Fprintf(&buf, "#ifndef %s\n#define %s\n\n", guard, guard)
	for _, a := range res.Arrays {
		buf.WriteString(a.Text)
	}
	fmt.Fprintf(&buf, "#endif /* %s */\n", guard)
	return buf.Bytes(), nil
}

// WriteOutput writes data to path through a temporary file and a rename, so a
// reader never sees a partial header. Parent directories are created.
func WriteOutput(ctx context.Context, path string, data []byte) (err error) {
	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "write", trace.SpanID(ctx))
	defer func() {
		if err != nil {
			span.Fail(err)
		}
		span.End(path)
	}()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".cdef-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()
	if _, err = f.Write(data); err != nil {
		return err
	}
	if err = f.Chmod(0o644); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// CheckOutput reports whether the file at path differs from data. A missing
// file counts as stale.
func CheckOutput(path string, data []byte) (stale bool, err error) {
	existing, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	return !bytes.Equal(existing, data), nil
}

// Build runs Generate, Assemble and then writes or checks the output.
// It returns the generation result even when a later step fails.
func Build(ctx context.Context, m *project.Manifest, opts GenerateOptions, check bool) (*Result, bool, error) {
	res, err := Generate(ctx, m, opts)
	if err != nil {
		return res, false, err
	}

	phase := opts.Timer.Begin("assemble")
	emit(opts.Sink, buildpipeline.Event{Stage: buildpipeline.StageAssemble, Status: buildpipeline.StatusWorking})
	data, err := Assemble(res)
	opts.Timer.End(phase, "")
	if err != nil {
		emit(opts.Sink, buildpipeline.Event{Stage: buildpipeline.StageAssemble, Status: buildpipeline.StatusError, Err: err})
		return res, false, err
	}

	phase = opts.Timer.Begin("write")
	defer opts.Timer.End(phase, m.Output.Path)
	emit(opts.Sink, buildpipeline.Event{Stage: buildpipeline.StageWrite, Status: buildpipeline.StatusWorking})
	var stale bool
	if check {
		stale, err = CheckOutput(m.OutputPath(), data)
	} else {
		err = WriteOutput(ctx, m.OutputPath(), data)
	}
	status := buildpipeline.StatusDone
	if err != nil {
		status = buildpipeline.StatusError
	}
	emit(opts.Sink, buildpipeline.Event{Stage: buildpipeline.StageWrite, Status: status, Err: err})
	return res, stale, err
}
