// Package debug serves the Debug Adapter Protocol over a recorded trace.
//
// A Session owns one engine.State and answers requests by moving its cursor
// forward or backward until a stop condition triggers:
//
//	continue, reverseContinue   user breakpoints only
//	next                        a newline in, or the return from, the current call
//	stepIn                      any newline or call
//	stepOut                     the return from the current call
//	stepBack                    a newline in, or the call into, the current call
//	restartFrame                the call into the selected frame, re-entered
//	restart                     the beginning of the trace
//
// User breakpoints are source lines, function names, data locations (read,
// write or both) and the "assert" and "revert" exception filters. Any of the
// first three may carry a Lua condition.
//
// Variables are served through a References table: id 1 is the Globals scope,
// every stack frame and every expanded structure gets a fresh id, and ids are
// never reused within a session (restart excepted).
package debug
