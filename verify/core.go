package verify

import (
	"github.com/pkg/errors"

	"github.com/crillab/gophersmt/config"
	"github.com/crillab/gophersmt/lra"
	"github.com/crillab/gophersmt/term"
	"github.com/crillab/gophersmt/theory"
)

// ErrSatisfiable is returned when a core is asked for a consistent set of
// literals.
var ErrSatisfiable = errors.New("cannot extract core from satisfiable literals")

// consistent is true iff the theories accept the conjunction of lits.
func (v *Verifier) consistent(h *theory.Handler, lits []term.Literal) bool {
	v.Stats.NbCoreChecks++
	h.Push()
	defer h.Pop()
	for _, l := range lits {
		if !h.Assert(l) {
			return false
		}
	}
	return h.Check() == lra.Sat
}

func (v *Verifier) newHandler() *theory.Handler {
	return theory.New(v.store, config.Default().Interpolation, theory.WithLogger(v.log))
}

// CoreDeletion returns a minimal inconsistent subset of lits: removing any
// of its literals makes it consistent.
// The deletion algorithm checks exactly n subsets, where n is the number of
// literals, each one being the current core minus one literal.
func (v *Verifier) CoreDeletion(lits []term.Literal) ([]term.Literal, error) {
	h := v.newHandler()
	if v.consistent(h, lits) {
		return nil, ErrSatisfiable
	}
	core := append([]term.Literal(nil), lits...)
	for i := 0; i < len(core); {
		rest := make([]term.Literal, 0, len(core)-1)
		rest = append(append(rest, core[:i]...), core[i+1:]...)
		if v.consistent(h, rest) {
			i++ // core[i] is needed
			continue
		}
		core = rest
	}
	return core, nil
}

// CoreInsertion returns a minimal inconsistent subset of lits, using the
// insertion method: literals are added to the known part of the core one
// by one until it becomes inconsistent, the last added literal being part of
// the core. On an already minimal set of n literals it performs n*(n-1)
// checks, but each check extends the previous one.
func (v *Verifier) CoreInsertion(lits []term.Literal) ([]term.Literal, error) {
	h := v.newHandler()
	if v.consistent(h, lits) {
		return nil, ErrSatisfiable
	}
	var core []term.Literal
	candidates := append([]term.Literal(nil), lits...)
	for v.consistent(h, core) {
		h.Push()
		for _, l := range core {
			h.Assert(l)
		}
		idx := 0
		for ; idx < len(candidates); idx++ {
			v.Stats.NbCoreChecks++
			if !h.Assert(candidates[idx]) || h.Check() == lra.Unsat {
				break
			}
		}
		h.Pop()
		core = append(core, candidates[idx])
		candidates = candidates[:idx]
	}
	return core, nil
}
