package lra

import (
	"math/big"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/crillab/gophersmt/term"
)

// This file builds conflict explanations and their Farkas coefficients.
// A coefficient λ on a bound is a coefficient λ*Scale on the literal of
// the bound, the literal being read as its normalized "p <= k" form.

func (s *Solver) setConflict(lits []term.Literal, coeffs []*big.Rat, strengthened bool) {
	s.status = Unsat
	s.conflict = lits
	s.coeffs = coeffs
	s.strengthened = strengthened
	s.Stats.NbConflicts++
	s.log.WithFields(logrus.Fields{
		"size":    len(lits),
		"pivots":  s.Stats.NbPivots,
		"checks":  s.Stats.NbChecks,
		"integer": strengthened,
	}).Debug("lra conflict")
}

// boundConflict reports two contradictory bounds on the same variable.
func (s *Solver) boundConflict(b1, b2 *Bound) {
	s.setConflict(
		[]term.Literal{b1.Lit, b2.Lit},
		[]*big.Rat{new(big.Rat).Set(b1.Scale), new(big.Rat).Set(b2.Scale)},
		b1.Strengthened || b2.Strengthened,
	)
}

// rowConflict reports that the basic variable xi cannot reach its lower
// bound (below) or its upper bound (!below), every non-basic variable of its
// row being stuck at the bound that helps it most.
func (s *Solver) rowConflict(xi VarRef, below bool) {
	var own *Bound
	if below {
		own = s.lower(xi)
	} else {
		own = s.upper(xi)
	}
	lits := []term.Literal{own.Lit}
	coeffs := []*big.Rat{new(big.Rat).Set(own.Scale)}
	strengthened := own.Strengthened
	r := s.rowOf(xi)
	vars := make([]VarRef, 0, len(r))
	for x := range r {
		vars = append(vars, x)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
	for _, x := range vars {
		a := r[x]
		var b *Bound
		if below == (a.Sign() > 0) {
			b = s.upper(x)
		} else {
			b = s.lower(x)
		}
		if b.Sentinel() {
			panic("lra: unbounded variable in a conflicting row")
		}
		lambda := new(big.Rat).Abs(a)
		lits = append(lits, b.Lit)
		coeffs = append(coeffs, lambda.Mul(lambda, b.Scale))
		strengthened = strengthened || b.Strengthened
	}
	s.setConflict(lits, coeffs, strengthened)
}

// Explanation returns the literals of the last conflict and their Farkas
// coefficients. The returned slices are copies.
func (s *Solver) Explanation() ([]term.Literal, []*big.Rat, error) {
	if s.status != Unsat {
		return nil, nil, ErrNotUnsat
	}
	lits := make([]term.Literal, len(s.conflict))
	copy(lits, s.conflict)
	coeffs := make([]*big.Rat, len(s.coeffs))
	for i, c := range s.coeffs {
		coeffs[i] = new(big.Rat).Set(c)
	}
	return lits, coeffs, nil
}

// Strengthened is true iff the last conflict relies on an integer
// strengthening of a negated atom.
func (s *Solver) Strengthened() bool {
	return s.status == Unsat && s.strengthened
}
