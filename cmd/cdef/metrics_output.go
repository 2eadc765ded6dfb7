package main

import (
	"time"

	"cdef/internal/driver"
	"cdef/internal/metrics"
	"cdef/internal/observ"
	"cdef/internal/project"
)

// writeBuildMetrics exports the outcome of one build as a Prometheus textfile.
func writeBuildMetrics(path string, m *project.Manifest, res *driver.Result, timer *observ.Timer, ok bool) error {
	bm := metrics.New(m.Package.Name)
	for _, a := range res.Arrays {
		status := metrics.StatusRendered
		switch {
		case a.Err != nil:
			status = metrics.StatusFailed
		case a.Cached:
			status = metrics.StatusCached
		}
		bm.ObserveArray(a.Target.Options.Name, a.Count, status)
	}
	bm.ObservePhases(timer.Report())
	if ok {
		bm.MarkSuccess(time.Now())
	}
	return bm.WriteTextfile(path)
}
