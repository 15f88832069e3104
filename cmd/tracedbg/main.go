// Package main is the entry point for tracedbg, a reverse debugger for
// recorded verification traces speaking the Debug Adapter Protocol.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tracedbg",
		Short: "Step forward and backward through recorded verification traces",
		Long: `tracedbg replays a recorded verification trace as a debuggee.

It serves the Debug Adapter Protocol over standard input and output, or over
TCP with --listen, and supports reverse execution in both directions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newInspectCmd(),
		newCheckCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tracedbg %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Built: %s\n", date)
		},
	}
}

// withTraceFlag adds the required --trace flag to cmd.
func withTraceFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "trace", "t", "", "path to the recorded trace (JSON)")
	_ = cmd.MarkFlagRequired("trace")
	_ = cmd.MarkFlagFilename("trace", "json")
}
