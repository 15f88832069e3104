package debug

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/tracedbg/internal/debug/dap"
	"github.com/dshills/tracedbg/internal/engine"
	"github.com/dshills/tracedbg/internal/trace"
)

// ThreadID is the id of the only thread.
const ThreadID = 1

// SessionState is the state of a debug session.
type SessionState int

const (
	// StateLoaded is a new session: the trace is bootstrapped and nothing ran.
	StateLoaded SessionState = iota
	// StateStopped is a session that has run at least once.
	StateStopped
	// StateTerminated is a session that ended.
	StateTerminated
)

// String returns a string representation of the state.
func (s SessionState) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateStopped:
		return "stopped"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Options configures a session.
type Options struct {
	// StopOnEntry emits a stopped event with reason "entry" after configurationDone.
	StopOnEntry bool

	// AssertFilter and RevertFilter are the initial exception filter states.
	AssertFilter bool
	RevertFilter bool

	// ConditionTimeout bounds one evaluation of a breakpoint condition.
	ConditionTimeout time.Duration
}

// DefaultOptions returns the default session options.
func DefaultOptions() Options {
	return Options{
		AssertFilter:     true,
		ConditionTimeout: engine.DefaultScriptTimeout,
	}
}

// Session serves one client over one trace. It is not safe for concurrent
// use; the protocol server calls it one request at a time.
type Session struct {
	id      string
	trace   *trace.Trace
	engine  *engine.State
	refs    *References
	bps     *Breakpoints
	opts    Options
	lines   Lines
	logger  *slog.Logger
	state   SessionState
	handles map[string]handlerFunc
}

type handlerFunc func(ctx context.Context, req *dap.Request, out *dap.Outbox) (any, error)

// NewSession bootstraps a session over t. The logger is tagged with a fresh
// session id.
func NewSession(t *trace.Trace, opts Options, logger *slog.Logger) (*Session, error) {
	st, err := engine.New(t)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	id := uuid.NewString()
	logger = logger.With("session", id)

	s := &Session{
		id:     id,
		trace:  t,
		engine: st,
		refs:   NewReferences(t.Storage),
		bps:    NewBreakpoints(st, opts.ConditionTimeout, logger),
		opts:   opts,
		logger: logger,
		state:  StateLoaded,
	}
	s.bps.SetExceptionFilters(s.defaultFilters())
	s.handles = s.handlers()

	logger.Info("session created", "instructions", len(t.Instructions), "thread", threadName(t))
	return s, nil
}

func (s *Session) defaultFilters() []string {
	var filters []string
	if s.opts.AssertFilter {
		filters = append(filters, FilterAssert)
	}
	if s.opts.RevertFilter {
		filters = append(filters, FilterRevert)
	}
	return filters
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the session state.
func (s *Session) State() SessionState { return s.state }

// Engine returns the runtime state being replayed.
func (s *Session) Engine() *engine.State { return s.engine }

// References returns the variable reference table.
func (s *Session) References() *References { return s.refs }

// Close ends the session and releases its breakpoint scripts.
func (s *Session) Close() {
	if s.state == StateTerminated {
		return
	}
	s.state = StateTerminated
	s.bps.Close()
	s.logger.Info("session ended")
}

func (s *Session) handlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		"initialize":              s.initialize,
		"launch":                  s.launch,
		"attach":                  s.launch,
		"configurationDone":       s.configurationDone,
		"restart":                 s.restart,
		"terminate":               s.terminate,
		"disconnect":              s.disconnect,
		"setBreakpoints":          s.setBreakpoints,
		"setFunctionBreakpoints":  s.setFunctionBreakpoints,
		"setExceptionBreakpoints": s.setExceptionBreakpoints,
		"dataBreakpointInfo":      s.dataBreakpointInfo,
		"setDataBreakpoints":      s.setDataBreakpoints,
		"breakpointLocations":     s.breakpointLocations,
		"continue":                s.runCommand(continueCmd),
		"next":                    s.runCommand(nextCmd),
		"stepIn":                  s.runCommand(stepInCmd),
		"stepOut":                 s.runCommand(stepOutCmd),
		"stepBack":                s.runCommand(stepBackCmd),
		"reverseContinue":         s.runCommand(reverseContinueCmd),
		"restartFrame":            s.restartFrame,
		"pause":                   s.pause,
		"threads":                 s.threads,
		"stackTrace":              s.stackTrace,
		"scopes":                  s.scopes,
		"variables":               s.variables,
		"evaluate":                s.evaluate,
		"source":                  s.source,
		"loadedSources":           s.loadedSources,
	}
}

// Handle implements dap.Handler.
func (s *Session) Handle(ctx context.Context, req *dap.Request, out *dap.Outbox) (any, error) {
	if s.state == StateTerminated {
		return nil, ErrNotLoaded
	}
	h, ok := s.handles[req.Command]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dap.ErrUnknownCommand, req.Command)
	}
	return h(ctx, req, out)
}

func decode[T any](req *dap.Request) (T, error) {
	var args T
	if err := req.DecodeArguments(&args); err != nil {
		return args, fmt.Errorf("invalid %s arguments: %w", req.Command, err)
	}
	return args, nil
}

func (s *Session) initialize(_ context.Context, req *dap.Request, out *dap.Outbox) (any, error) {
	args, err := decode[dap.InitializeRequestArguments](req)
	if err != nil {
		return nil, err
	}
	s.lines = Lines{ZeroBased: args.LinesStartAt1 != nil && !*args.LinesStartAt1}
	s.bps.SetLines(s.lines)
	s.logger.Info("client initialized", "client", args.ClientName, "adapter", args.AdapterID)

	out.Event("initialized", nil)
	return dap.Capabilities{
		SupportsConfigurationDoneRequest:   true,
		SupportsFunctionBreakpoints:        true,
		SupportsConditionalBreakpoints:     true,
		SupportsEvaluateForHovers:          true,
		ExceptionBreakpointFilters:         ExceptionFilters(s.opts.AssertFilter, s.opts.RevertFilter),
		SupportsStepBack:                   true,
		SupportsRestartFrame:               true,
		SupportsRestartRequest:             true,
		SupportTerminateDebuggee:           true,
		SupportsLoadedSourcesRequest:       true,
		SupportsTerminateRequest:           true,
		SupportsDataBreakpoints:            true,
		SupportsBreakpointLocationsRequest: true,
	}, nil
}

func (s *Session) launch(_ context.Context, req *dap.Request, out *dap.Outbox) (any, error) {
	args, err := decode[dap.LaunchRequestArguments](req)
	if err != nil {
		return nil, err
	}
	if args.StopOnEntry {
		s.opts.StopOnEntry = true
	}
	out.Event("output", dap.OutputEventBody{
		Category: "console",
		Output:   fmt.Sprintf("Replaying %s: %d instructions\n", threadName(s.trace), len(s.trace.Instructions)),
	})
	return nil, nil
}

func (s *Session) configurationDone(_ context.Context, _ *dap.Request, out *dap.Outbox) (any, error) {
	if s.opts.StopOnEntry {
		s.stopped(out, dap.StoppedEventBody{Reason: "entry", Description: "Paused at the beginning of the trace"})
	}
	return nil, nil
}

func (s *Session) terminate(_ context.Context, req *dap.Request, out *dap.Outbox) (any, error) {
	args, err := decode[dap.TerminateArguments](req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("terminate requested", "restart", args.Restart)

	body := dap.TerminatedEventBody{}
	if args.Restart {
		body.Restart = true
	}
	out.Event("terminated", body)
	out.EndSession()
	s.Close()
	return nil, nil
}

func (s *Session) disconnect(_ context.Context, req *dap.Request, out *dap.Outbox) (any, error) {
	args, err := decode[dap.DisconnectArguments](req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("disconnect requested", "restart", args.Restart, "terminateDebuggee", args.TerminateDebuggee)
	out.EndSession()
	s.Close()
	return nil, nil
}

func (s *Session) pause(context.Context, *dap.Request, *dap.Outbox) (any, error) {
	// Runs complete before the next request is read, so there is nothing to pause.
	return nil, nil
}

func (s *Session) threads(context.Context, *dap.Request, *dap.Outbox) (any, error) {
	return dap.ThreadsResponseBody{Threads: []dap.Thread{{ID: ThreadID, Name: threadName(s.trace)}}}, nil
}

func (s *Session) stackTrace(_ context.Context, req *dap.Request, _ *dap.Outbox) (any, error) {
	args, err := decode[dap.StackTraceArguments](req)
	if err != nil {
		return nil, err
	}
	return StackTrace(s.refs, s.engine, s.lines, args.StartFrame, args.Levels), nil
}

func (s *Session) scopes(_ context.Context, req *dap.Request, _ *dap.Outbox) (any, error) {
	args, err := decode[dap.ScopesArguments](req)
	if err != nil {
		return nil, err
	}
	scopes, err := Scopes(s.refs, s.engine, args.FrameID)
	if err != nil {
		return nil, err
	}
	return dap.ScopesResponseBody{Scopes: scopes}, nil
}

func (s *Session) variables(_ context.Context, req *dap.Request, _ *dap.Outbox) (any, error) {
	args, err := decode[dap.VariablesArguments](req)
	if err != nil {
		return nil, err
	}
	vars, err := Materialize(s.refs, s.engine, args.VariablesReference)
	if err != nil {
		return nil, err
	}
	if args.Start > 0 || args.Count > 0 {
		vars = page(vars, args.Start, args.Count)
	}
	return dap.VariablesResponseBody{Variables: vars}, nil
}

func page(vars []dap.Variable, start, count int) []dap.Variable {
	if start >= len(vars) {
		return []dap.Variable{}
	}
	vars = vars[start:]
	if count > 0 && count < len(vars) {
		vars = vars[:count]
	}
	return vars
}

func (s *Session) source(context.Context, *dap.Request, *dap.Outbox) (any, error) {
	// Source text is read by the client from disk.
	return dap.SourceResponseBody{Content: ""}, nil
}

func (s *Session) loadedSources(context.Context, *dap.Request, *dap.Outbox) (any, error) {
	sources := make([]dap.Source, 0, len(s.trace.Sources))
	for _, path := range s.trace.Sources {
		sources = append(sources, dap.Source{Name: filepath.Base(path), Path: path})
	}
	return dap.LoadedSourcesResponseBody{Sources: sources}, nil
}

// stopped queues a stopped event on the only thread.
func (s *Session) stopped(out *dap.Outbox, body dap.StoppedEventBody) {
	s.state = StateStopped
	body.ThreadID = ThreadID
	body.AllThreadsStopped = true
	out.Event("stopped", body)
	s.logger.Debug("stopped", "reason", body.Reason, "description", body.Description, "cursor", s.engine.Cursor())
}

// lookup resolves a dotted path in the locals of frameID, then in storage.
// A frameID of 0 uses the currently executing frame.
func (s *Session) lookup(frameID int, path string) (trace.DataTree, string, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, "", fmt.Errorf("%w: empty expression", trace.ErrPathNotFound)
	}

	var scopes []*trace.Structure
	if frameID != 0 {
		ref, err := s.refs.Get(frameID)
		if err != nil {
			return nil, "", err
		}
		if ref.Frame == "" {
			return nil, "", fmt.Errorf("%w: reference %d is not a frame", ErrNoFrame, frameID)
		}
		scopes = append(scopes, ref.Tree)
	} else if top, ok := s.engine.Top(); ok {
		scopes = append(scopes, top.Locals())
	}
	scopes = append(scopes, s.trace.Storage)

	var err error
	for _, scope := range scopes {
		var node trace.DataTree
		node, err = scope.Lookup(parts...)
		if err == nil {
			return node, strings.Join(parts, "."), nil
		}
	}
	return nil, "", err
}

func (s *Session) evaluate(_ context.Context, req *dap.Request, _ *dap.Outbox) (any, error) {
	args, err := decode[dap.EvaluateArguments](req)
	if err != nil {
		return nil, err
	}

	node, path, err := s.lookup(args.FrameID, args.Expression)
	if err != nil {
		return nil, err
	}

	switch n := node.(type) {
	case *trace.Leaf:
		value, ok := s.engine.Value(n.Location)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoValue, path)
		}
		return dap.EvaluateResponseBody{Result: string(value), Type: n.Type}, nil
	case *trace.Structure:
		return dap.EvaluateResponseBody{
			Result:             structureValue(n),
			Type:               n.Type,
			VariablesReference: s.refs.Allocate(Reference{Tree: n, Path: path}),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", trace.ErrPathNotFound, path)
	}
}

func (s *Session) setBreakpoints(_ context.Context, req *dap.Request, _ *dap.Outbox) (any, error) {
	args, err := decode[dap.SetBreakpointsArguments](req)
	if err != nil {
		return nil, err
	}
	requested := args.Breakpoints
	if requested == nil {
		for _, line := range args.Lines {
			requested = append(requested, dap.SourceBreakpoint{Line: line})
		}
	}
	return dap.SetBreakpointsResponseBody{Breakpoints: s.bps.SetSourceBreakpoints(args.Source, requested)}, nil
}

func (s *Session) setFunctionBreakpoints(_ context.Context, req *dap.Request, _ *dap.Outbox) (any, error) {
	args, err := decode[dap.SetFunctionBreakpointsArguments](req)
	if err != nil {
		return nil, err
	}
	return dap.SetBreakpointsResponseBody{Breakpoints: s.bps.SetFunctionBreakpoints(args.Breakpoints)}, nil
}

func (s *Session) setExceptionBreakpoints(_ context.Context, req *dap.Request, _ *dap.Outbox) (any, error) {
	args, err := decode[dap.SetExceptionBreakpointsArguments](req)
	if err != nil {
		return nil, err
	}
	s.bps.SetExceptionFilters(args.Filters)
	return nil, nil
}

func (s *Session) setDataBreakpoints(_ context.Context, req *dap.Request, _ *dap.Outbox) (any, error) {
	args, err := decode[dap.SetDataBreakpointsArguments](req)
	if err != nil {
		return nil, err
	}
	return dap.SetBreakpointsResponseBody{Breakpoints: s.bps.SetDataBreakpoints(args.Breakpoints)}, nil
}

func (s *Session) breakpointLocations(_ context.Context, req *dap.Request, _ *dap.Outbox) (any, error) {
	args, err := decode[dap.BreakpointLocationsArguments](req)
	if err != nil {
		return nil, err
	}
	return dap.BreakpointLocationsResponseBody{Breakpoints: s.bps.Locations(args.Source, args.Line, args.EndLine)}, nil
}

// dataBreakpointInfo resolves a variable to the location a data breakpoint
// would watch. Only leaves can be watched.
func (s *Session) dataBreakpointInfo(_ context.Context, req *dap.Request, _ *dap.Outbox) (any, error) {
	args, err := decode[dap.DataBreakpointInfoArguments](req)
	if err != nil {
		return nil, err
	}

	var node trace.DataTree
	var path string
	if args.VariablesReference != 0 {
		ref, err := s.refs.Get(args.VariablesReference)
		if err != nil {
			return nil, err
		}
		child, ok := ref.Tree.Child(args.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", trace.ErrPathNotFound, args.Name)
		}
		node, path = child, joinPath(ref.Path, args.Name)
	} else {
		node, path, err = s.lookup(args.FrameID, args.Name)
		if err != nil {
			return nil, err
		}
	}

	leaf, ok := node.(*trace.Leaf)
	if !ok {
		return dap.DataBreakpointInfoResponseBody{Description: fmt.Sprintf("%s is a structure and cannot be watched", path)}, nil
	}
	id := string(leaf.Location)
	return dap.DataBreakpointInfoResponseBody{
		DataID:      &id,
		Description: path,
		AccessTypes: []string{"read", "write", "readWrite"},
	}, nil
}

// errCorrupt reports a run that hit an inconsistent instruction.
func (s *Session) errCorrupt(err error) error {
	s.logger.Error("run failed", "error", err, "cursor", s.engine.Cursor())
	if errors.Is(err, engine.ErrCorruptTrace) {
		return fmt.Errorf("trace is inconsistent at instruction %d: %w", s.engine.Cursor(), err)
	}
	return err
}
