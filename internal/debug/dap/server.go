package dap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Error ids reported in the body of failed responses.
const (
	ErrorIDUnknownCommand = 1000
	ErrorIDRequestFailed  = 1001
	ErrorIDInternal       = 1002
)

// Handler answers the requests of one debug session.
type Handler interface {
	// Handle answers req. The returned value is the response body. Events
	// added to out are sent after the response.
	Handle(ctx context.Context, req *Request, out *Outbox) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *Request, out *Outbox) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req *Request, out *Outbox) (any, error) {
	return f(ctx, req, out)
}

// Outbox collects the events raised while a request is handled.
type Outbox struct {
	events []Event
	end    bool
}

// Event queues an event.
func (o *Outbox) Event(name string, body any) {
	o.events = append(o.events, Event{
		ProtocolMessage: ProtocolMessage{Type: TypeEvent},
		Event:           name,
		Body:            body,
	})
}

// EndSession makes the server stop once the response and queued events are sent.
func (o *Outbox) EndSession() { o.end = true }

// Events returns the queued events.
func (o *Outbox) Events() []Event { return o.events }

// Ended reports whether EndSession was called.
func (o *Outbox) Ended() bool { return o.end }

// Server reads requests from a transport and answers them with a Handler,
// one at a time.
type Server struct {
	transport Transport
	handler   Handler
	logger    *slog.Logger
	seq       int
}

// NewServer creates a server. A nil logger discards log output.
func NewServer(transport Transport, handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		transport: transport,
		handler:   handler,
		logger:    logger,
	}
}

// Serve processes requests until the client disconnects, the handler ends the
// session or ctx is canceled. The transport is closed on return. Cancellation
// returns even when closing the transport does not interrupt a pending read.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.transport.Close() })
	defer stop()
	defer s.transport.Close()

	done := make(chan struct{})
	defer close(done)
	incoming := s.receiveLoop(done)

	for {
		var r received
		select {
		case <-ctx.Done():
			return nil
		case r = <-incoming:
		}
		if r.err != nil {
			if ctx.Err() != nil || errors.Is(r.err, io.EOF) {
				return nil
			}
			return fmt.Errorf("receive: %w", r.err)
		}

		req, err := decodeRequest(r.msg)
		if err != nil {
			s.logger.Warn("dropping message", "error", err)
			continue
		}

		ended, err := s.handle(ctx, req)
		if err != nil {
			return err
		}
		if ended {
			return nil
		}
	}
}

type received struct {
	msg *Message
	err error
}

// receiveLoop reads messages until the transport fails or done is closed.
func (s *Server) receiveLoop(done <-chan struct{}) <-chan received {
	ch := make(chan received)
	go func() {
		for {
			msg, err := s.transport.Receive()
			select {
			case ch <- received{msg: msg, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

func decodeRequest(msg *Message) (*Request, error) {
	var req Request
	if err := json.Unmarshal(msg.Content, &req); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if req.Type != TypeRequest {
		return nil, fmt.Errorf("%w: type %q", ErrNotRequest, req.Type)
	}
	return &req, nil
}

// handle answers one request and sends the events it raised. It reports whether
// the session ended.
func (s *Server) handle(ctx context.Context, req *Request) (bool, error) {
	start := time.Now()
	ctx, span := startRequestSpan(ctx, req)
	defer span.End()

	logger := s.logger.With("command", req.Command, "seq", req.Seq)
	logger.Debug("request")

	var out Outbox
	body, err := s.call(ctx, req, &out)

	resp := &Response{
		ProtocolMessage: ProtocolMessage{Type: TypeResponse},
		RequestSeq:      req.Seq,
		Success:         err == nil,
		Command:         req.Command,
		Body:            body,
	}
	if err != nil {
		logger.Info("request failed", "error", err)
		resp.Message = err.Error()
		resp.Body = ErrorResponseBody{Error: &ErrorMessage{ID: errorID(err), Format: err.Error()}}
	}

	setRequestSpanResult(span, err)
	recordRequestMetrics(ctx, req.Command, time.Since(start), err == nil)

	if err := s.send(resp, &resp.ProtocolMessage); err != nil {
		return false, err
	}
	for _, evt := range out.Events() {
		logger.Debug("event", "event", evt.Event)
		if err := s.send(&evt, &evt.ProtocolMessage); err != nil {
			return false, err
		}
	}
	return out.Ended(), nil
}

// call runs the handler, turning a panic into an error so that one bad request
// fails alone.
func (s *Server) call(ctx context.Context, req *Request, out *Outbox) (body any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panic", "command", req.Command, "panic", r)
			body, err = nil, &internalError{cause: fmt.Errorf("internal error: %v", r)}
		}
	}()
	return s.handler.Handle(ctx, req, out)
}

// send stamps base with the next sequence number and writes v.
func (s *Server) send(v any, base *ProtocolMessage) error {
	s.seq++
	base.Seq = s.seq

	content, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", base.Type, err)
	}
	if err := s.transport.Send(&Message{ContentLength: len(content), Content: content}); err != nil {
		return fmt.Errorf("send %s: %w", base.Type, err)
	}
	return nil
}

type internalError struct{ cause error }

func (e *internalError) Error() string { return e.cause.Error() }
func (e *internalError) Unwrap() error { return e.cause }

func errorID(err error) int {
	var internal *internalError
	switch {
	case errors.Is(err, ErrUnknownCommand):
		return ErrorIDUnknownCommand
	case errors.As(err, &internal):
		return ErrorIDInternal
	default:
		return ErrorIDRequestFailed
	}
}
