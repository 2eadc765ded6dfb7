package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"cdef/internal/buildpipeline"
	"cdef/internal/cdef"
	"cdef/internal/input"
	"cdef/internal/observ"
	"cdef/internal/project"
	"cdef/internal/trace"
	"cdef/internal/version"
)

// GenerateOptions tunes a manifest build.
type GenerateOptions struct {
	// Jobs bounds parallel rendering; <= 0 means GOMAXPROCS.
	Jobs int
	// Cache may be nil to disable caching.
	Cache *DiskCache
	// Sink receives progress events; may be nil.
	Sink buildpipeline.ProgressSink
	// Timer records phase durations; may be nil.
	Timer *observ.Timer
}

// ArrayResult is the outcome for one [[array]] entry.
type ArrayResult struct {
	Target project.Target
	Count  int
	Text   string
	Cached bool
	Err    error
}

// Result holds the per-array outcomes in manifest order.
type Result struct {
	Manifest *project.Manifest
	Arrays   []ArrayResult
}

// Err joins the errors of every failed array, or returns nil.
func (r *Result) Err() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, a := range r.Arrays {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errors.Join(errs...)
}

// Failed returns the number of arrays that could not be rendered.
func (r *Result) Failed() int {
	n := 0
	for _, a := range r.Arrays {
		if a.Err != nil {
			n++
		}
	}
	return n
}

// Generate renders every array of m in parallel. A failing array does not stop
// the others; its error is stored in the ArrayResult. The returned error is
// non-nil only when ctx is cancelled.
func Generate(ctx context.Context, m *project.Manifest, opts GenerateOptions) (*Result, error) {
	if m == nil {
		return nil, errors.New("driver: nil manifest")
	}
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePhase, "render", trace.SpanID(ctx))
	defer span.End(strconv.Itoa(len(m.Targets)) + " arrays")
	ctx = trace.WithSpan(ctx, span)

	phase := opts.Timer.Begin("render")
	defer func() { opts.Timer.End(phase, fmt.Sprintf("%d arrays", len(m.Targets))) }()

	res := &Result{Manifest: m, Arrays: make([]ArrayResult, len(m.Targets))}
	for i, target := range m.Targets {
		res.Arrays[i].Target = target
		emit(opts.Sink, buildpipeline.Event{Array: target.Options.Name, Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusQueued})
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(m.Targets), 1)))
	for i := range m.Targets {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			// индекс i уникален для каждой горутины, мьютекс не нужен
			renderArray(gctx, &res.Arrays[i], opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.Fail(err)
		return res, err
	}
	return res, nil
}

func renderArray(ctx context.Context, out *ArrayResult, opts GenerateOptions) {
	target := out.Target
	name := target.Options.Name
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeArray, "array:"+name, trace.SpanID(ctx))
	phase := opts.Timer.Begin("array:" + name)
	start := time.Now()

	fail := func(stage buildpipeline.Stage, err error) {
		out.Err = fmt.Errorf("%s: %w", name, err)
		span.Fail(out.Err)
		span.End("failed")
		opts.Timer.End(phase, "failed")
		emit(opts.Sink, buildpipeline.Event{Array: name, Stage: stage, Status: buildpipeline.StatusError, Err: out.Err, Elapsed: time.Since(start)})
	}

	emit(opts.Sink, buildpipeline.Event{Array: name, Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusWorking})
	data, err := os.ReadFile(target.Source)
	if err != nil {
		fail(buildpipeline.StageLoad, err)
		return
	}

	key := cacheKey(data, target)
	var cached DiskPayload
	hit, err := opts.Cache.Get(key, &cached)
	if err != nil {
		// битая запись кэша не должна ломать сборку
		trace.Point(tracer, trace.ScopeCache, "cache:get", err.Error(), span.ID())
		hit = false
	}
	if hit {
		out.Count = cached.Count
		out.Text = cached.Text
		out.Cached = true
		span.WithExtra("cache", "hit").End(strconv.Itoa(out.Count) + " values")
		opts.Timer.End(phase, "cached")
		emit(opts.Sink, buildpipeline.Event{Array: name, Stage: buildpipeline.StageRender, Status: buildpipeline.StatusCached, Elapsed: time.Since(start)})
		return
	}

	values, err := input.Parse(data, target.Format)
	if err != nil {
		fail(buildpipeline.StageLoad, fmt.Errorf("%s: %w", target.Source, err))
		return
	}

	emit(opts.Sink, buildpipeline.Event{Array: name, Stage: buildpipeline.StageRender, Status: buildpipeline.StatusWorking})
	text, err := cdef.Format(values, target.Options)
	if err != nil {
		fail(buildpipeline.StageRender, err)
		return
	}
	out.Count = len(values)
	out.Text = text

	if err := opts.Cache.Put(key, &DiskPayload{Name: name, Count: out.Count, Text: text}); err != nil {
		trace.Point(tracer, trace.ScopeCache, "cache:put", err.Error(), span.ID())
	}
	span.WithExtra("cache", "miss").End(strconv.Itoa(out.Count) + " values")
	opts.Timer.End(phase, strconv.Itoa(out.Count)+" values")
	emit(opts.Sink, buildpipeline.Event{Array: name, Stage: buildpipeline.StageRender, Status: buildpipeline.StatusDone, Elapsed: time.Since(start)})
}

// cacheKey covers everything that shapes the rendered text: the source bytes,
// the options, the input format and the cdef version that rendered it.
func cacheKey(data []byte, target project.Target) project.Digest {
	return project.Combine(
		project.HashBytes(data),
		project.HashOptions(target.Options),
		project.HashBytes([]byte(target.Format)),
		project.HashBytes([]byte(version.Version)),
	)
}

func emit(sink buildpipeline.ProgressSink, ev buildpipeline.Event) {
	if sink != nil {
		sink.OnEvent(ev)
	}
}
