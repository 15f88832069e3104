// Package engine replays a trace forward and backward.
//
// A State holds the runtime state reconstructed from a trace: the call stack,
// the current value of every storage location, and a cursor into the
// instruction log. Moving the cursor forward applies an instruction; moving it
// backward unapplies one. Because every instruction records both sides of its
// effect, applying and then unapplying an instruction restores the exact prior
// state, so reverse execution needs no snapshots.
//
// The first instruction of the log (normally the Call into the rule) is applied
// when the State is created and is never undone.
//
// Runs are driven by stop conditions:
//
//	res, err := st.RunForward([]engine.Condition{
//	    engine.NewlineIn(top.Call),
//	    engine.ReturnFrom(top.Call),
//	})
//	if res.Exhausted() {
//	    // reached the end of the trace
//	}
//
// Every condition is tested after the instruction's effect has been fully
// applied; all conditions triggered by the same instruction are reported.
package engine
