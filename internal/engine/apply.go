package engine

import (
	"fmt"

	"github.com/dshills/tracedbg/internal/trace"
)

// apply performs the forward effect of i. State is unchanged when an error is returned.
func (s *State) apply(i trace.Instruction) error {
	switch i := i.(type) {
	case trace.Load, trace.Assert, trace.Revert:
		return nil

	case trace.Store:
		s.storage[i.Location] = i.New
		return nil

	case trace.Call:
		return s.push(i.Call, func(md trace.CallMetadata) trace.SourceLocation { return md.StartLocation })

	case trace.Return:
		return s.pop(i.Call)

	case trace.Newline:
		f, err := s.frameFor(i.Context)
		if err != nil {
			return err
		}
		f.Line = i.New
		return nil

	default:
		return fmt.Errorf("%w: %T", ErrUnknownInstruction, i)
	}
}

// unapply performs the inverse effect of i. State is unchanged when an error is returned.
func (s *State) unapply(i trace.Instruction) error {
	switch i := i.(type) {
	case trace.Load, trace.Assert, trace.Revert:
		return nil

	case trace.Store:
		if i.Old == nil {
			delete(s.storage, i.Location)
		} else {
			s.storage[i.Location] = *i.Old
		}
		return nil

	case trace.Call:
		return s.pop(i.Call)

	case trace.Return:
		// The call is resumed on the last line it executed.
		return s.push(i.Call, func(md trace.CallMetadata) trace.SourceLocation { return md.EndLocation })

	case trace.Newline:
		f, err := s.frameFor(i.Context)
		if err != nil {
			return err
		}
		f.Line = i.Old
		return nil

	default:
		return fmt.Errorf("%w: %T", ErrUnknownInstruction, i)
	}
}

func (s *State) push(id trace.CallID, line func(trace.CallMetadata) trace.SourceLocation) error {
	md, ok := s.trace.Call(id)
	if !ok {
		return fmt.Errorf("%w: unknown call %q", ErrCorruptTrace, id)
	}
	s.stack = append(s.stack, &Frame{Call: id, Line: line(md), md: md})
	return nil
}

func (s *State) pop(id trace.CallID) error {
	top, ok := s.Top()
	if !ok {
		return fmt.Errorf("%w: leaving %q with an empty stack", ErrCorruptTrace, id)
	}
	if top.Call != id {
		return fmt.Errorf("%w: leaving %q while %q is executing", ErrCorruptTrace, id, top.Call)
	}
	s.stack = s.stack[:len(s.stack)-1]
	return nil
}

func (s *State) frameFor(id trace.CallID) (*Frame, error) {
	top, ok := s.Top()
	if !ok || top.Call != id {
		return nil, fmt.Errorf("%w: newline in %q which is not executing", ErrCorruptTrace, id)
	}
	return top, nil
}
