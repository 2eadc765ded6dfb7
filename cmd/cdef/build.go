package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cdef/internal/driver"
	"cdef/internal/observ"
	"cdef/internal/project"
	"cdef/internal/trace"
)

const noManifestMessage = "no " + project.ManifestName + " found in this directory or its parents (run `cdef init` or pass --manifest)"

var (
	okColor     = color.New(color.FgGreen)
	cachedColor = color.New(color.FgCyan)
)

type buildSettings struct {
	manifestPath string
	metricsFile  string
	check        bool
	noCache      bool
	clearCache   bool
	watch        bool
	quiet        bool
	jobs         int
	ui           uiMode
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate the header described by " + project.ManifestName,
		Long: `Generate the header described by the project manifest. Every [[array]]
is rendered in parallel and the declarations are written to [output].path in
manifest order. With --check nothing is written; the command fails when the
file on disk differs from what would be generated. With --watch the header is
rebuilt whenever the manifest or an array source changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func() error {
				return buildExecution(cmd)
			})
		},
	}
	cmd.Flags().String("manifest", "", "path to "+project.ManifestName+" (default: search from the working directory)")
	cmd.Flags().Bool("check", false, "verify the output is up to date instead of writing it")
	cmd.Flags().Bool("no-cache", false, "do not read or write the render cache")
	cmd.Flags().Bool("clear-cache", false, "drop the render cache before building")
	cmd.Flags().Bool("watch", false, "rebuild when the manifest or a source file changes")
	cmd.Flags().String("metrics-file", "", "write build metrics in the Prometheus text format to this file")
	cmd.Flags().Int("jobs", 0, "max parallel arrays (0=auto)")
	cmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	return cmd
}

func readBuildSettings(cmd *cobra.Command) (buildSettings, error) {
	var s buildSettings
	var err error
	if s.manifestPath, err = cmd.Flags().GetString("manifest"); err != nil {
		return s, err
	}
	if s.metricsFile, err = cmd.Flags().GetString("metrics-file"); err != nil {
		return s, err
	}
	if s.check, err = cmd.Flags().GetBool("check"); err != nil {
		return s, err
	}
	if s.noCache, err = cmd.Flags().GetBool("no-cache"); err != nil {
		return s, err
	}
	if s.clearCache, err = cmd.Flags().GetBool("clear-cache"); err != nil {
		return s, err
	}
	if s.watch, err = cmd.Flags().GetBool("watch"); err != nil {
		return s, err
	}
	if s.jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return s, err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return s, err
	}
	if s.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet"); err != nil {
		return s, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if s.jobs < 0 {
		return s, fmt.Errorf("--jobs must be >= 0, got %d", s.jobs)
	}
	if s.watch && s.check {
		return s, errors.New("--watch and --check are mutually exclusive")
	}
	if s.ui, err = readUIMode(uiValue); err != nil {
		return s, err
	}
	return s, nil
}

func buildExecution(cmd *cobra.Command) error {
	s, err := readBuildSettings(cmd)
	if err != nil {
		return err
	}
	if s.watch {
		return watchBuild(cmd, s)
	}
	_, err = buildOnce(cmd.Context(), cmd, s)
	return err
}

// buildOnce runs one build and reports it. The manifest is returned whenever
// it loaded, even if the build failed afterwards.
func buildOnce(ctx context.Context, cmd *cobra.Command, s buildSettings) (*project.Manifest, error) {
	timer := observ.NewTimer()
	defer printTimings(cmd, cmd.ErrOrStderr(), timer)

	phase := timer.Begin("load_manifest")
	manifest, err := loadManifest(s.manifestPath)
	timer.End(phase, "")
	if err != nil {
		return nil, err
	}

	opts := driver.GenerateOptions{Jobs: s.jobs, Timer: timer}
	if !s.noCache {
		opts.Cache = openCache(ctx, cmd.ErrOrStderr(), s.clearCache)
	}

	var (
		res   *driver.Result
		stale bool
	)
	if !s.quiet && !s.watch && shouldUseTUI(s.ui) {
		res, stale, err = runBuildWithUI(ctx, manifest, opts, s.check)
	} else {
		res, stale, err = driver.Build(ctx, manifest, opts, s.check)
	}

	if s.metricsFile != "" && res != nil {
		ok := err == nil && res.Failed() == 0 && !stale
		if merr := writeBuildMetrics(s.metricsFile, manifest, res, timer, ok); merr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to write metrics: %v\n", merr)
		}
	}

	out := cmd.OutOrStdout()
	if !s.quiet && res != nil {
		printArrayResults(out, res)
	}
	if res != nil && res.Failed() > 0 {
		return manifest, fmt.Errorf("%d of %d arrays failed", res.Failed(), len(res.Arrays))
	}
	if err != nil {
		return manifest, err
	}

	rel := displayPath(manifest.OutputPath())
	switch {
	case s.check && stale:
		return manifest, fmt.Errorf("%s is out of date (run `cdef build`)", rel)
	case s.check:
		if !s.quiet {
			fmt.Fprintf(out, "%s is up to date\n", rel)
		}
	default:
		if !s.quiet {
			fmt.Fprintf(out, "wrote %s\n", rel)
		}
	}
	return manifest, nil
}

// watchBuild rebuilds until interrupted. Build errors are reported and the
// loop keeps going; only a manifest that never loaded stops it.
func watchBuild(cmd *cobra.Command, s buildSettings) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	w, err := driver.NewWatcher(driver.DefaultDebounce)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	errOut := cmd.ErrOrStderr()
	var tracked []string
	for {
		m, err := buildOnce(ctx, cmd, s)
		if err != nil {
			if m == nil && tracked == nil {
				return err
			}
			errorColor.Fprint(errOut, "error: ")
			fmt.Fprintln(errOut, err)
		}
		if m != nil {
			tracked = m.Inputs()
		}
		if err := w.Track(tracked...); err != nil {
			return fmt.Errorf("failed to watch inputs: %w", err)
		}
		if !s.quiet {
			fmt.Fprintf(errOut, "watching %d files (Ctrl-C to stop)\n", len(tracked))
		}

		changed, err := w.Wait(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !s.quiet {
			names := make([]string, 0, len(changed))
			for _, p := range changed {
				names = append(names, displayPath(p))
			}
			fmt.Fprintf(errOut, "changed: %s\n", strings.Join(names, ", "))
		}
	}
}

func loadManifest(path string) (*project.Manifest, error) {
	if path != "" {
		return project.LoadManifest(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	found, ok, err := project.FindManifest(wd)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(noManifestMessage)
	}
	return project.LoadManifest(found)
}

// openCache returns nil when the cache directory is unusable; builds then run
// without caching.
func openCache(ctx context.Context, warn io.Writer, clear bool) *driver.DiskCache {
	cache, err := driver.OpenDiskCache("cdef")
	if err != nil {
		trace.Error(trace.FromContext(ctx), trace.ScopeCache, "open", err, trace.SpanID(ctx))
		fmt.Fprintf(warn, "warning: cache disabled: %v\n", err)
		return nil
	}
	if clear {
		if err := cache.DropAll(); err != nil {
			fmt.Fprintf(warn, "warning: failed to clear cache: %v\n", err)
		}
	}
	return cache
}

func printArrayResults(out io.Writer, res *driver.Result) {
	for _, a := range res.Arrays {
		name := a.Target.Options.Name
		switch {
		case a.Err != nil:
			errorColor.Fprint(out, "failed ")
			fmt.Fprintf(out, "%s: %v\n", name, a.Err)
		case a.Cached:
			cachedColor.Fprint(out, "cached ")
			fmt.Fprintf(out, "%s (%d values)\n", name, a.Count)
		default:
			okColor.Fprint(out, "rendered ")
			fmt.Fprintf(out, "%s (%d values)\n", name, a.Count)
		}
	}
}

func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || len(rel) > len(path) {
		return path
	}
	return rel
}
