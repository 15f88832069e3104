package debug

import (
	"context"
	"fmt"

	"github.com/dshills/tracedbg/internal/debug/dap"
	"github.com/dshills/tracedbg/internal/engine"
	"github.com/dshills/tracedbg/internal/trace"
)

// Stop reasons that do not come from a condition.
const (
	ReasonEndOfTrace   = "end of trace"
	ReasonStartOfTrace = "start of trace"
	ReasonEntry        = "entry"
	ReasonRestart      = "restart"
)

// runCommand is a command that moves the cursor: the direction of the run and
// the stop conditions it adds to the user's breakpoints.
type runCommand struct {
	dir   engine.Direction
	extra func(top *engine.Frame) []engine.Condition
}

var (
	continueCmd = runCommand{dir: engine.Forward}

	nextCmd = runCommand{dir: engine.Forward, extra: func(top *engine.Frame) []engine.Condition {
		return []engine.Condition{engine.NewlineIn(top.Call), engine.ReturnFrom(top.Call)}
	}}

	stepInCmd = runCommand{dir: engine.Forward, extra: func(*engine.Frame) []engine.Condition {
		return []engine.Condition{engine.AnyNewline(), engine.AnyCall()}
	}}

	stepOutCmd = runCommand{dir: engine.Forward, extra: func(top *engine.Frame) []engine.Condition {
		return []engine.Condition{engine.ReturnFrom(top.Call)}
	}}

	stepBackCmd = runCommand{dir: engine.Backward, extra: func(top *engine.Frame) []engine.Condition {
		return []engine.Condition{engine.NewlineIn(top.Call), engine.CallInto(top.Call)}
	}}

	reverseContinueCmd = runCommand{dir: engine.Backward}
)

// conditions returns the user breakpoints plus the command's own conditions
// for the executing frame.
func (c runCommand) conditions(st *engine.State, bps *Breakpoints) []engine.Condition {
	conds := bps.Conditions()
	if c.extra == nil {
		return conds
	}
	if top, ok := st.Top(); ok {
		conds = append(conds, c.extra(top)...)
	}
	return conds
}

func (s *Session) runCommand(cmd runCommand) handlerFunc {
	return func(ctx context.Context, req *dap.Request, out *dap.Outbox) (any, error) {
		if _, err := decode[dap.ThreadArguments](req); err != nil {
			return nil, err
		}

		res, err := s.run(ctx, cmd.dir, cmd.conditions(s.engine, s.bps))
		if err != nil {
			return nil, err
		}
		s.stopped(out, stopEvent(res))

		if req.Command == "continue" {
			return dap.ContinueResponseBody{AllThreadsContinued: true}, nil
		}
		return nil, nil
	}
}

func (s *Session) run(ctx context.Context, dir engine.Direction, conds []engine.Condition) (engine.Result, error) {
	res, err := s.engine.Run(dir, conds)
	dap.RecordSteps(ctx, dir.String(), res.Steps)
	if err != nil {
		return res, s.errCorrupt(err)
	}
	s.logger.Debug("run", "direction", dir, "steps", res.Steps, "triggered", len(res.Triggered))
	return res, nil
}

// stopEvent describes the end of a run. Of several triggered conditions the
// highest priority one gives the reason; every breakpoint hit is reported.
func stopEvent(res engine.Result) dap.StoppedEventBody {
	reason, ok := engine.Primary(res.Triggered)
	if !ok {
		if res.Direction == engine.Backward {
			return dap.StoppedEventBody{Reason: ReasonStartOfTrace, Description: "Reached beginning of trace"}
		}
		return dap.StoppedEventBody{Reason: ReasonEndOfTrace, Description: "Reached end of trace"}
	}

	body := dap.StoppedEventBody{
		Reason:      reason.Kind.String(),
		Description: reason.Description,
		Text:        trace.Describe(res.Instruction),
	}
	seen := make(map[int]bool)
	for _, c := range res.Triggered {
		if id := c.Reason().BreakpointID; id != 0 && !seen[id] {
			seen[id] = true
			body.HitBreakpointIDs = append(body.HitBreakpointIDs, id)
		}
	}
	return body
}

// restart rewinds to the beginning of the trace, ignoring breakpoints, and
// forgets every variable reference except Globals.
func (s *Session) restart(ctx context.Context, _ *dap.Request, out *dap.Outbox) (any, error) {
	if _, err := s.run(ctx, engine.Backward, nil); err != nil {
		return nil, err
	}
	s.refs.Reset()
	s.stopped(out, dap.StoppedEventBody{Reason: ReasonEntry, Description: "Restarted at the beginning of the trace"})
	return nil, nil
}

// restartFrame rewinds until the call of the frame is undone and enters it
// again, landing on the first line of the frame. A user breakpoint met on the
// way stops the rewind instead.
func (s *Session) restartFrame(ctx context.Context, req *dap.Request, out *dap.Outbox) (any, error) {
	args, err := decode[dap.RestartFrameArguments](req)
	if err != nil {
		return nil, err
	}
	call, err := s.refs.Frame(args.FrameID)
	if err != nil {
		return nil, err
	}
	if !s.onStack(call) {
		return nil, fmt.Errorf("%w: %s is no longer executing", ErrNoFrame, call)
	}

	conds := append(s.bps.Conditions(), engine.CallInto(call))
	res, err := s.run(ctx, engine.Backward, conds)
	if err != nil {
		return nil, err
	}

	entered := res.Exhausted()
	if c, ok := res.Instruction.(trace.Call); ok && c.Call == call {
		if _, _, err := s.engine.Step(engine.Forward); err != nil {
			return nil, s.errCorrupt(err)
		}
		entered = true
	}

	if !entered {
		s.stopped(out, stopEvent(res))
		return nil, nil
	}
	name := string(call)
	if md, ok := s.trace.Call(call); ok && md.FunctionName != "" {
		name = md.FunctionName
	}
	s.stopped(out, dap.StoppedEventBody{Reason: ReasonRestart, Description: fmt.Sprintf("Restarted %s", name)})
	return nil, nil
}

func (s *Session) onStack(call trace.CallID) bool {
	for _, f := range s.engine.Stack() {
		if f.Call == call {
			return true
		}
	}
	return false
}
