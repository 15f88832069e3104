package dap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"golang.org/x/sync/errgroup"
)

// Listener serves one session per accepted connection.
type Listener struct {
	// NewHandler creates the handler of a new session. A handler with a
	// Close method is closed when its connection ends.
	NewHandler func(logger *slog.Logger) (Handler, error)

	// MaxContentLength limits the size of one message. Zero uses the default.
	MaxContentLength int

	Logger *slog.Logger
}

// ListenAndServe listens on the TCP address addr and serves until ctx is canceled.
func (l *Listener) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return l.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled or accepting fails.
// Sessions that are still running when ctx is canceled are closed. A failing
// session does not affect the others.
func (l *Listener) Serve(ctx context.Context, ln net.Listener) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Info("listening", "addr", ln.Addr().String())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})

	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accept: %w", err)
			}

			connLogger := logger.With("remote", conn.RemoteAddr().String())
			g.Go(func() error {
				connLogger.Info("client connected")
				h, err := l.NewHandler(connLogger)
				if err != nil {
					connLogger.Error("create session", "error", err)
					_ = conn.Close()
					return nil
				}
				if c, ok := h.(interface{ Close() }); ok {
					defer c.Close()
				}
				srv := NewServer(NewConnTransport(conn, l.MaxContentLength), h, connLogger)
				if err := srv.Serve(gctx); err != nil {
					connLogger.Warn("session ended with error", "error", err)
				}
				connLogger.Info("client disconnected")
				return nil
			})
		}
	})

	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
