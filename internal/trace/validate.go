package trace

import (
	"errors"
	"fmt"
)

// Validate checks the referential integrity of t: the log is non-empty, every
// call and location named by an instruction or a data tree has metadata, and
// every Store's old value agrees with the value the log itself implies, and calls,
// returns and newlines nest properly. Each call starts at its StartLocation, every
// Newline must leave the line its call is on, and a call must be at its
// EndLocation when it returns, so that every step can be undone exactly.
//
// All problems are reported, joined into one error wrapping ErrInvalidTrace.
func Validate(t *Trace) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(t.Instructions) == 0 {
		fail("instruction log is empty")
	}

	checkTree := func(owner string, s *Structure) {
		if s == nil {
			return
		}
		s.Walk(func(path []string, leaf *Leaf) {
			if _, ok := t.Locations[leaf.Location]; !ok {
				fail("%s: leaf %v names unknown location %q", owner, path, leaf.Location)
			}
		})
	}
	checkTree("storage", t.Storage)
	for id, md := range t.Calls {
		checkTree(fmt.Sprintf("call %q", id), md.Locals)
	}

	current := make(map[LocationID]Value, len(t.InitialStorage))
	for loc, v := range t.InitialStorage {
		current[loc] = v
	}

	type frame struct {
		id   CallID
		line SourceLocation
	}
	var stack []frame
	top := func() CallID {
		if len(stack) == 0 {
			return ""
		}
		return stack[len(stack)-1].id
	}

	for n, ins := range t.Instructions {
		switch i := ins.(type) {
		case Load:
			if _, ok := t.Locations[i.Location]; !ok {
				fail("instruction %d: unknown location %q", n, i.Location)
			}
		case Store:
			if _, ok := t.Locations[i.Location]; !ok {
				fail("instruction %d: unknown location %q", n, i.Location)
			}
			prev, defined := current[i.Location]
			switch {
			case i.Old == nil && defined:
				fail("instruction %d: store to %q records no old value but %q is stored", n, i.Location, prev)
			case i.Old != nil && !defined:
				fail("instruction %d: store to %q records old value %q but location is undefined", n, i.Location, *i.Old)
			case i.Old != nil && *i.Old != prev:
				fail("instruction %d: store to %q records old value %q, stored value is %q", n, i.Location, *i.Old, prev)
			}
			current[i.Location] = i.New
		case Call:
			md, ok := t.Calls[i.Call]
			if !ok {
				fail("instruction %d: unknown call %q", n, i.Call)
			}
			stack = append(stack, frame{id: i.Call, line: md.StartLocation})
		case Return:
			md, ok := t.Calls[i.Call]
			if !ok {
				fail("instruction %d: unknown call %q", n, i.Call)
			}
			if len(stack) == 0 || top() != i.Call {
				fail("instruction %d: return from %q but %q is executing", n, i.Call, top())
			} else if at := stack[len(stack)-1].line; ok && at != md.EndLocation {
				fail("instruction %d: return from %q at %s but its end location is %s", n, i.Call, at, md.EndLocation)
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case Newline:
			if _, ok := t.Calls[i.Context]; !ok {
				fail("instruction %d: unknown call %q", n, i.Context)
			}
			if len(stack) == 0 || top() != i.Context {
				fail("instruction %d: newline in %q but %q is executing", n, i.Context, top())
				break
			}
			f := &stack[len(stack)-1]
			if i.Old != f.line {
				fail("instruction %d: newline in %q leaves %s but the call is at %s", n, i.Context, i.Old, f.line)
			}
			f.line = i.New
		case Assert, Revert:
		default:
			fail("instruction %d: %v", n, ErrUnknownInstruction)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidTrace, errors.Join(errs...))
}
