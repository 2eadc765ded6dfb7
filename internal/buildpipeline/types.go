// Package buildpipeline describes the stages of a manifest build and the
// progress events emitted while arrays move through them.
package buildpipeline

import "time"

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageLoad reads and parses an array source.
	StageLoad Stage = "load"
	// StageRender turns values into a declaration.
	StageRender Stage = "render"
	// StageAssemble joins declarations into the header.
	StageAssemble Stage = "assemble"
	// StageWrite writes (or checks) the output file.
	StageWrite Stage = "write"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusCached indicates the result came from the disk cache.
	StatusCached Status = "cached"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
)

// Event reports progress for an array (or for the whole build when Array is empty).
type Event struct {
	Array   string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// Finished reports whether the event ends the array's work.
func (e Event) Finished() bool {
	return e.Status == StatusDone || e.Status == StatusCached || e.Status == StatusError
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}
