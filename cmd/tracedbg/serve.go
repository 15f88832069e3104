package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/tracedbg/internal/config"
	"github.com/dshills/tracedbg/internal/debug"
	"github.com/dshills/tracedbg/internal/debug/dap"
	"github.com/dshills/tracedbg/internal/logging"
	"github.com/dshills/tracedbg/internal/telemetry"
	"github.com/dshills/tracedbg/internal/trace"
)

type serveOptions struct {
	trace    string
	listen   string
	config   string
	logLevel string
}

func newServeCmd() *cobra.Command {
	var o serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve debug sessions over a trace",
		Long: `Serve debug sessions over a trace.

Without --listen one session is served over standard input and output, and
logs go to standard error or the configured log file. With --listen every
TCP connection gets its own session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, o)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, o.trace, cmd.ErrOrStderr())
		},
	}

	withTraceFlag(cmd, &o.trace)
	cmd.Flags().StringVarP(&o.listen, "listen", "l", "", "TCP address to accept clients on (default: stdio)")
	cmd.Flags().StringVarP(&o.config, "config", "c", "", "configuration file (TOML or YAML, default $"+config.EnvConfigFile+")")
	cmd.Flags().StringVar(&o.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

// loadConfig layers explicitly set flags over the file and environment.
func loadConfig(cmd *cobra.Command, o serveOptions) (*config.Config, error) {
	path := o.config
	if path == "" {
		path = os.Getenv(config.EnvConfigFile)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("listen") {
		if err := cfg.Set("server.listen", o.listen); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("log-level") {
		if err := cfg.Set("logging.level", o.logLevel); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg *config.Config, tracePath string, stderr io.Writer) error {
	lc := cfg.Logging()
	logger, closer, err := logging.New(logging.Config{
		Level:  lc.Level,
		Format: lc.Format,
		File:   lc.File,
		Output: stderr,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	sc := cfg.Server()
	dc := cfg.Debugger()
	logger.Debug("configuration", "settings", cfg.Merged())
	for _, err := range cfg.Errors() {
		logger.Warn("ignoring setting", "error", err)
	}

	shutdown, err := initTelemetry(cfg.Telemetry(), stderr)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	t, err := trace.LoadFile(tracePath)
	if err != nil {
		return err
	}
	if err := trace.Validate(t); err != nil {
		return err
	}
	logger.Info("trace loaded", "path", tracePath, "instructions", len(t.Instructions), "config", cfg.File())

	opts := debug.Options{
		StopOnEntry:      dc.StopOnEntry,
		AssertFilter:     dc.AssertExceptions,
		RevertFilter:     dc.RevertExceptions,
		ConditionTimeout: dc.ConditionTimeout,
	}

	if sc.Listen == "" {
		sess, err := debug.NewSession(t, opts, logger)
		if err != nil {
			return err
		}
		defer sess.Close()
		return dap.NewServer(dap.NewStdioTransport(sc.MaxContentLength), sess, logger).Serve(ctx)
	}

	l := &dap.Listener{
		NewHandler: func(logger *slog.Logger) (dap.Handler, error) {
			sess, err := debug.NewSession(t, opts, logger)
			if err != nil {
				return nil, err
			}
			return sess, nil
		},
		MaxContentLength: sc.MaxContentLength,
		Logger:           logger,
	}
	return l.ListenAndServe(ctx, sc.Listen)
}

// initTelemetry installs the span exporter when enabled. The returned
// shutdown function is never nil.
func initTelemetry(tc config.TelemetryConfig, stderr io.Writer) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !tc.Enabled {
		return noop, nil
	}

	w, closeFile := stderr, func() error { return nil }
	if tc.File != "" {
		f, err := os.OpenFile(tc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open telemetry file: %w", err)
		}
		w, closeFile = f, f.Close
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		ServiceName:    "tracedbg",
		ServiceVersion: version,
		Writer:         w,
	})
	if err != nil {
		_ = closeFile()
		return nil, err
	}
	return func(ctx context.Context) error {
		err := shutdown(ctx)
		if cerr := closeFile(); err == nil {
			err = cerr
		}
		return err
	}, nil
}
