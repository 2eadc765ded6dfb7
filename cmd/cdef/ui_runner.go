package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"cdef/internal/buildpipeline"
	"cdef/internal/driver"
	"cdef/internal/project"
	"cdef/internal/ui"
)

type buildOutcome struct {
	result *driver.Result
	stale  bool
	err    error
}

func runBuildWithUI(ctx context.Context, m *project.Manifest, opts driver.GenerateOptions, check bool) (*driver.Result, bool, error) {
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Sink = buildpipeline.ChannelSink{Ch: events}
		res, stale, err := driver.Build(ctx, m, optsCopy, check)
		outcomeCh <- buildOutcome{result: res, stale: stale, err: err}
		close(events)
	}()

	names := make([]string, 0, len(m.Targets))
	for _, t := range m.Targets {
		names = append(names, t.Options.Name)
	}
	model := ui.NewProgressModel(m.Package.Name, names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// UI мог завершиться раньше билда: дочитываем события, иначе sink заблокируется
	for range events {
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, outcome.stale, uiErr
	}
	return outcome.result, outcome.stale, outcome.err
}
