// Package trace records what the cdef driver is doing.
//
// Events are emitted as spans (begin/end pairs) and points, filtered by level
// and written as text or NDJSON. The tracer travels through the driver in the
// context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeArray, "array:taps", parentID)
//	defer span.End("")
//
// Enable it from the command line:
//
//	cdef build --trace=- --trace-level=detail
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: failures only
//   - LevelPhase: driver and phase boundaries
//   - LevelDetail: per-array events
//   - LevelDebug: everything, including cache lookups
package trace
