package euf

import (
	"github.com/pkg/errors"

	"github.com/crillab/gophersmt/interpolation"
	"github.com/crillab/gophersmt/term"
)

// ErrUnsupportedConflict is returned when a conflict cannot be interpolated
// by following its equality path: an edge mixes A and B reasons, or a
// segment ends on a term that is not shared.
var ErrUnsupportedConflict = errors.New("unsupported conflict shape")

// Interpolating is a Solver able to compute interpolants of its conflicts.
type Interpolating struct {
	*Solver
}

// NewInterpolating returns an empty interpolating solver.
func NewInterpolating(store *term.Store, options ...Option) *Interpolating {
	return &Interpolating{Solver: New(store, options...)}
}

// A segment is a maximal part of the conflict path whose edges all come
// from the same side.
type segment struct {
	from, to term.Ref
	aSide    bool
}

// edgeSide returns whether the reasons of m are all on the A side (true) or
// all on the B side (false).
func (s *Interpolating) edgeSide(m *merge, labels interpolation.Labels) (bool, error) {
	e := s.newExplainer()
	e.edge(m)
	var c interpolation.Color
	for _, l := range e.lits {
		lc, ok := labels[l.Term]
		if !ok || lc == interpolation.ColorNone {
			return false, errors.Wrapf(interpolation.ErrMissingLabel, "no color for %s", s.store.String(l.Term))
		}
		if lc.ASide() {
			c |= interpolation.ColorA
		} else {
			c |= interpolation.ColorB
		}
	}
	if c == interpolation.ColorAB {
		return false, errors.Wrapf(ErrUnsupportedConflict, "edge %s = %s has mixed reasons", s.store.String(m.a), s.store.String(m.b))
	}
	return c == interpolation.ColorA, nil
}

func (s *Interpolating) segments(path []step, labels interpolation.Labels) ([]segment, error) {
	var res []segment
	for _, st := range path {
		aSide, err := s.edgeSide(st.m, labels)
		if err != nil {
			return nil, err
		}
		if n := len(res); n > 0 && res[n-1].aSide == aSide {
			res[n-1].to = st.to
		} else {
			res = append(res, segment{from: st.from, to: st.to, aSide: aSide})
		}
	}
	return res, nil
}

// GetInterpolant returns an interpolant of the last conflict, the A part
// being the partitions of mask.
// If the violated disequality is in B, the interpolant is the conjunction of
// the equalities summarizing the A segments of the path; otherwise it is the
// disjunction of the disequalities negating its B segments.
func (s *Interpolating) GetInterpolant(mask interpolation.Mask, occ interpolation.Occurrences) (term.Ref, error) {
	if s.conflict == nil {
		return term.Undef, ErrNoConflict
	}
	labels := occ.Labels(mask)
	dc, ok := labels[s.conflict.lit.Term]
	if !ok || dc == interpolation.ColorNone {
		return term.Undef, errors.Wrapf(interpolation.ErrMissingLabel, "no color for %s", s.store.String(s.conflict.lit.Term))
	}
	segs, err := s.segments(s.path(s.conflict.a, s.conflict.b), labels)
	if err != nil {
		return term.Undef, err
	}
	keep := !dc.ASide() // Summarize A segments iff the disequality is in B
	var parts []term.Ref
	for _, sg := range segs {
		if sg.aSide != keep {
			continue
		}
		for _, t := range []term.Ref{sg.from, sg.to} {
			if labels[t] != interpolation.ColorAB {
				return term.Undef, errors.Wrapf(ErrUnsupportedConflict, "%s is not shared", s.store.String(t))
			}
		}
		eq := s.store.Eq(sg.from, sg.to)
		if !keep {
			eq = s.store.Not(eq)
		}
		parts = append(parts, eq)
	}
	if keep {
		return s.store.And(parts...), nil
	}
	return s.store.Or(parts...), nil
}
