package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"off": LevelOff, "ERROR": LevelError, "phase": LevelPhase, "detail": LevelDetail, " debug ": LevelDebug} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("ParseLevel(loud) succeeded")
	}
}

func TestStreamTracerFiltersByScope(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)

	root := Begin(tr, ScopeDriver, "build", 0)
	arr := Begin(tr, ScopeArray, "array:taps", root.ID())
	arr.End("")
	root.End("ok")

	out := buf.String()
	if strings.Contains(out, "array:taps") {
		t.Fatalf("array scope emitted at phase level:\n%s", out)
	}
	if strings.Count(out, "build") != 2 {
		t.Fatalf("expected begin and end for build:\n%s", out)
	}
	if !strings.Contains(out, "(ok)") {
		t.Fatalf("detail missing:\n%s", out)
	}
}

func TestMutedSpanStillReportsFailure(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelError, FormatText)
	span := Begin(tr, ScopeArray, "array:bad", 0)
	span.Fail(errors.New("boom"))
	if span.End("") != 0 {
		t.Fatalf("muted span reported a duration")
	}
	out := buf.String()
	if !strings.Contains(out, "! array:bad (boom)") {
		t.Fatalf("failure not emitted:\n%s", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected exactly one line:\n%s", out)
	}
}

func TestNDJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	Begin(tr, ScopeCache, "cache:get", 0).WithExtra("hit", "true").End("")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 events, got %d", len(lines))
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if ev["kind"] != "end" || ev["scope"] != "cache" {
		t.Fatalf("unexpected event: %v", ev)
	}
	extra, _ := ev["extra"].(map[string]any)
	if extra["hit"] != "true" {
		t.Fatalf("extra lost: %v", ev)
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("empty context should yield Nop")
	}
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatText)
	ctx := WithTracer(context.Background(), tr)
	if FromContext(ctx) != tr {
		t.Fatalf("tracer not found in context")
	}
	span := Begin(tr, ScopeDriver, "root", 0)
	ctx = WithSpan(ctx, span)
	if SpanID(ctx) != span.ID() || span.ID() == 0 {
		t.Fatalf("SpanID = %d, want %d", SpanID(ctx), span.ID())
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr.Enabled() {
		t.Fatalf("off tracer is enabled")
	}
}
