package ui

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"cdef/internal/buildpipeline"
)

func TestApplyTracksArrays(t *testing.T) {
	m := NewProgressModel("filters", []string{"lowpass", "gains", "broken"}, nil).(*progressModel)

	m.apply(buildpipeline.Event{Array: "lowpass", Stage: buildpipeline.StageRender, Status: buildpipeline.StatusWorking})
	if got := statusLabel(m.rows[0].stage, m.rows[0].status); got != "rendering" {
		t.Fatalf("lowpass label = %q, want rendering", got)
	}
	m.apply(buildpipeline.Event{Array: "gains", Stage: buildpipeline.StageRender, Status: buildpipeline.StatusCached, Elapsed: 1500 * time.Microsecond})
	m.apply(buildpipeline.Event{Array: "broken", Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusError, Err: errors.New("broken: no such file\ndetails")})
	m.apply(buildpipeline.Event{Array: "unknown", Status: buildpipeline.StatusDone})

	if got, want := m.percent(), 2.6/3; math.Abs(got-want) > 1e-9 {
		t.Fatalf("percent = %v, want %v", got, want)
	}

	m.apply(buildpipeline.Event{Stage: buildpipeline.StageWrite, Status: buildpipeline.StatusWorking})
	if m.phase != "writing" {
		t.Fatalf("phase = %q, want writing", m.phase)
	}

	view := m.View()
	for _, want := range []string{"filters (writing)", "rendering", "cached", "gains  1.5ms", "broken: no such file"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view lacks %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "details") {
		t.Fatalf("view must show only the first error line:\n%s", view)
	}
}

func TestFinishedPhaseKeepsLabel(t *testing.T) {
	m := NewProgressModel("p", []string{"a"}, nil).(*progressModel)
	m.apply(buildpipeline.Event{Stage: buildpipeline.StageAssemble, Status: buildpipeline.StatusWorking})
	m.apply(buildpipeline.Event{Stage: buildpipeline.StageAssemble, Status: buildpipeline.StatusDone})
	if m.phase != "assembling" {
		t.Fatalf("phase = %q, want assembling", m.phase)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"abcdefgh", 6, "abc..."},
		{"abc", 6, "abc"},
		{"abcdef", 2, "ab"},
		{"abc", 0, "abc"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.width); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}
