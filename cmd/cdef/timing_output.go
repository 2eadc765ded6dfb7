package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cdef/internal/observ"
)

// printTimings writes the timer summary when --timings is set.
func printTimings(cmd *cobra.Command, out io.Writer, timer *observ.Timer) {
	show, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil || !show || timer == nil {
		return
	}
	fmt.Fprint(out, timer.Summary())
}
