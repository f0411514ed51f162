package engine

// Stage is the task state machine's coarse phase. It only ever moves
// forward and never back (spec.md §4). Running moves to CleaningUp on a
// normal exit or a failure, unless RunOptions.BehaviourAfterFailure is
// DoNotCleanup, in which case a failure moves it to Halted instead: nothing
// further runs and created resources are deliberately left in place for
// inspection (spec.md §4.6, §7 kind 4's "behaviourAfterFailure" option).
type Stage int

const (
	Running Stage = iota
	CleaningUp
	Halted
)

func (s Stage) String() string {
	switch s {
	case Running:
		return "Running"
	case CleaningUp:
		return "CleaningUp"
	case Halted:
		return "Halted"
	default:
		return "Unknown"
	}
}
