package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cdef/internal/cdef"
	"cdef/internal/driver"
	"cdef/internal/input"
	"cdef/internal/observ"
	"cdef/internal/trace"
)

type genFlags struct {
	name         string
	precision    string
	exportLength bool
	lengthName   string
	static       bool
	pack         bool
	lineLength   int
	format       string
	file         string
	output       string
}

func newGenCmd() *cobra.Command {
	var f genFlags
	cmd := &cobra.Command{
		Use:   "gen [values...]",
		Short: "Render one numeric sequence as a C array declaration",
		Long: `Render one numeric sequence as a C constant array declaration.

Values are taken from the positional arguments, from --file, or from stdin
when neither is given. Put negative values after -- so they are not read as
flags.`,
		Example: `  cdef gen --name gains 1 0.5 0.25
  cdef gen --name taps --precision double --export-length --file taps.json
  seq 1 100 | cdef gen --name ramp --static
  cdef gen --name offsets -- -1 0.5 -0.25`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func() error {
				return runGen(cmd, args, &f)
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.name, "name", "n", "", "array identifier (required)")
	fl.StringVarP(&f.precision, "precision", "p", string(cdef.Single), "element type (single|double)")
	fl.BoolVar(&f.exportLength, "export-length", false, "emit a companion length constant")
	fl.StringVar(&f.lengthName, "length-name", "", "length constant identifier (default <name>Length)")
	fl.BoolVar(&f.static, "static", false, "give the declarations internal linkage")
	fl.BoolVar(&f.pack, "pack", true, "pack several values per line")
	fl.IntVar(&f.lineLength, "line-length", cdef.DefaultLineLength, "maximum packed line width")
	fl.StringVar(&f.format, "format", "", "input format (text|json|yaml|msgpack); default from --file extension")
	fl.StringVarP(&f.file, "file", "f", "", "read values from a file")
	fl.StringVarP(&f.output, "output", "o", "", "write the declaration to a file instead of stdout")
	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	return cmd
}

func runGen(cmd *cobra.Command, args []string, f *genFlags) error {
	ctx := cmd.Context()
	tracer := trace.FromContext(ctx)
	timer := observ.NewTimer()
	defer printTimings(cmd, cmd.ErrOrStderr(), timer)

	precision, err := cdef.ParsePrecision(f.precision)
	if err != nil {
		return err
	}
	opt := cdef.Options{
		Name:         f.name,
		Precision:    precision,
		ExportLength: f.exportLength,
		LengthName:   f.lengthName,
		Static:       f.static,
		Pack:         f.pack,
		LineLength:   f.lineLength,
	}

	span := trace.Begin(tracer, trace.ScopeDriver, "gen", trace.SpanID(ctx))
	defer span.End(opt.Name)

	phase := timer.Begin("load")
	values, err := loadGenValues(cmd, args, f)
	timer.End(phase, fmt.Sprintf("%d values", len(values)))
	if err != nil {
		span.Fail(err)
		return err
	}

	phase = timer.Begin("render")
	text, err := cdef.Format(values, opt)
	timer.End(phase, "")
	if err != nil {
		span.Fail(err)
		return err
	}

	if f.output == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	}
	phase = timer.Begin("write")
	defer timer.End(phase, f.output)
	if err := driver.WriteOutput(trace.WithSpan(ctx, span), f.output, []byte(text)); err != nil {
		span.Fail(err)
		return err
	}
	if quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet"); !quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d values)\n", f.output, len(values))
	}
	return nil
}

func loadGenValues(cmd *cobra.Command, args []string, f *genFlags) ([]float64, error) {
	format, err := input.ParseFormat(f.format)
	if err != nil {
		return nil, err
	}
	switch {
	case len(args) > 0 && f.file != "":
		return nil, errors.New("values given both as arguments and with --file")
	case len(args) > 0:
		if format != input.FormatAuto && format != input.FormatText {
			return nil, fmt.Errorf("positional values are always text, got --format %s", format)
		}
		return input.Parse([]byte(strings.Join(args, " ")), input.FormatText)
	case f.file != "":
		return input.ReadFile(f.file, format)
	default:
		return input.Read(cmd.InOrStdin(), format)
	}
}
