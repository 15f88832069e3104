package engine

import (
	"github.com/dshills/tracedbg/internal/trace"
)

// Direction is the direction of a run.
type Direction int

const (
	// Forward applies instructions.
	Forward Direction = iota
	// Backward unapplies instructions.
	Backward
)

// String returns "forward" or "backward".
func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Result describes how a run ended.
type Result struct {
	// Direction is the direction of the run.
	Direction Direction

	// Triggered holds every condition triggered by the last instruction.
	// It is empty when the run reached the end (or beginning) of the log.
	Triggered []Condition

	// Instruction is the instruction that stopped the run, nil if exhausted.
	Instruction trace.Instruction

	// Steps is the number of instructions applied or unapplied.
	Steps int
}

// Exhausted reports whether the run stopped at a log boundary rather than on a condition.
func (r Result) Exhausted() bool { return len(r.Triggered) == 0 }

// Step moves the cursor by one instruction in dir. It returns the instruction
// moved over, or false if the log is exhausted in that direction.
func (s *State) Step(dir Direction) (trace.Instruction, bool, error) {
	if dir == Backward {
		if !s.HasPrevious() {
			return nil, false, nil
		}
		i := s.trace.Instructions[s.cursor-1]
		if err := s.unapply(i); err != nil {
			return nil, false, err
		}
		s.cursor--
		return i, true, nil
	}

	if !s.HasNext() {
		return nil, false, nil
	}
	i := s.trace.Instructions[s.cursor]
	if err := s.apply(i); err != nil {
		return nil, false, err
	}
	s.cursor++
	return i, true, nil
}

// RunForward applies instructions until one of conds triggers or the log ends.
func (s *State) RunForward(conds []Condition) (Result, error) {
	return s.Run(Forward, conds)
}

// RunBackward unapplies instructions until one of conds triggers or the
// beginning of the log is reached.
func (s *State) RunBackward(conds []Condition) (Result, error) {
	return s.Run(Backward, conds)
}

// Run moves in dir until one of conds triggers or the log is exhausted.
func (s *State) Run(dir Direction, conds []Condition) (Result, error) {
	res := Result{Direction: dir}
	for {
		i, ok, err := s.Step(dir)
		if err != nil {
			return res, err
		}
		if !ok {
			return res, nil
		}
		res.Steps++

		for _, c := range conds {
			if c.TriggeredBy(i, dir) {
				res.Triggered = append(res.Triggered, c)
			}
		}
		if len(res.Triggered) > 0 {
			res.Instruction = i
			return res, nil
		}
	}
}
