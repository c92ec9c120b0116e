package lra

// Status is the status of the solver at a given moment.
type Status byte

const (
	// Indet means the current set of constraints was not checked yet.
	Indet = Status(iota)
	// Sat means the asserted constraints are satisfiable.
	Sat
	// Unsat means the asserted constraints are contradictory.
	Unsat
)

func (s Status) String() string {
	switch s {
	case Indet:
		return "INDETERMINATE"
	case Sat:
		return "SAT"
	case Unsat:
		return "UNSAT"
	default:
		panic("invalid status")
	}
}

// Stats are statistics about the solver.
// They are provided for information purpose only.
type Stats struct {
	NbChecks    int
	NbPivots    int
	NbConflicts int
	NbBacktrack int // How many checkpoints were popped
}
