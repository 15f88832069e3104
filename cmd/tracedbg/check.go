package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dshills/tracedbg/internal/engine"
	"github.com/dshills/tracedbg/internal/trace"
)

func newCheckCmd() *cobra.Command {
	var tracePath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a trace and check that it replays in both directions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := trace.LoadFile(tracePath)
			if err != nil {
				return err
			}
			return check(cmd.OutOrStdout(), t)
		},
	}
	withTraceFlag(cmd, &tracePath)
	return cmd
}

func check(w io.Writer, t *trace.Trace) error {
	if err := trace.Validate(t); err != nil {
		return err
	}
	rep, err := engine.RoundTrip(t)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "ok: %d instructions, %d applied forward, %d undone\n",
		len(t.Instructions), rep.Forward, rep.Backward)
	return err
}
