// Package theory combines the arithmetic and the equality solvers into a
// single decision procedure for their union.
package theory

import (
	"fmt"
	"io"
	"math/big"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/crillab/gophersmt/config"
	"github.com/crillab/gophersmt/euf"
	"github.com/crillab/gophersmt/interpolation"
	"github.com/crillab/gophersmt/lra"
	"github.com/crillab/gophersmt/term"
)

var (
	// ErrUnsupportedAtom is returned when an atom belongs to no theory.
	ErrUnsupportedAtom = errors.New("atom belongs to no theory")
	// ErrNoConflict is returned when asking for a conflict while the last
	// check succeeded.
	ErrNoConflict = errors.New("no conflict")
)

// SolverID names a theory solver of a handler.
type SolverID int

const (
	// NoSolver is the id of no solver at all.
	NoSolver = SolverID(iota - 1)
	// LRA is the id of the linear arithmetic solver.
	LRA
	// UF is the id of the equality solver.
	UF
)

func (id SolverID) String() string {
	switch id {
	case NoSolver:
		return "none"
	case LRA:
		return "lra"
	case UF:
		return "uf"
	default:
		panic(fmt.Sprintf("invalid solver id %d", int(id)))
	}
}

// Theory is what both handlers provide.
type Theory interface {
	Register(atom term.Ref) error
	Assert(lit term.Literal) bool
	Check() lra.Status
	Push()
	Pop()
	Conflict() ([]term.Literal, error)
	Schedule() []SolverID
}

// An Option configures a handler.
type Option func(h *Handler)

// WithLogger sets the logger of the handler and of its solvers.
func WithLogger(log logrus.FieldLogger) Option {
	return func(h *Handler) {
		h.log = log
	}
}

// Handler runs a linear arithmetic solver and an equality solver side by
// side. Atoms are routed to the solver of their kind; Check runs the
// solvers in a fixed order, arithmetic first, and propagates the equalities
// between shared variables found by arithmetic to the equality solver.
type Handler struct {
	store    *term.Store
	log      logrus.FieldLogger
	lra      *lra.Solver
	uf       *euf.Solver
	schedule []SolverID
	last     SolverID // Solver that found the last conflict

	// Arithmetic equalities are also asserted to the arithmetic solver as
	// a pair of inequalities. sides maps each inequality to the equality
	// it was asserted for.
	sides  map[term.Ref]term.Ref
	trail  []term.Ref
	levels []int
}

func newHandler(store *term.Store, cfg config.Interpolation, options []Option) *Handler {
	h := &Handler{store: store, last: NoSolver, sides: make(map[term.Ref]term.Ref)}
	for _, option := range options {
		option(h)
	}
	if h.log == nil {
		l := logrus.New()
		l.Out = io.Discard
		h.log = l
	}
	alpha, err := cfg.ParsedAlpha()
	if err != nil {
		alpha = big.NewRat(1, 2)
		h.log.WithError(err).Warnf("invalid alpha %q, using %s", cfg.Alpha, alpha.RatString())
	}
	h.lra = lra.New(store, lra.WithLogger(h.log.WithField("theory", LRA)), lra.WithAlpha(alpha))
	h.schedule = append(h.schedule, LRA)
	return h
}

// New returns a handler unable to interpolate.
func New(store *term.Store, cfg config.Interpolation, options ...Option) *Handler {
	h := newHandler(store, cfg, options)
	h.uf = euf.New(store, euf.WithLogger(h.log.WithField("theory", UF)))
	h.schedule = append(h.schedule, UF)
	return h
}

// Schedule returns the solvers in the order Check runs them.
func (h *Handler) Schedule() []SolverID {
	return append([]SolverID(nil), h.schedule...)
}

// LRA returns the arithmetic solver.
func (h *Handler) LRA() *lra.Solver {
	return h.lra
}

// UF returns the equality solver.
func (h *Handler) UF() *euf.Solver {
	return h.uf
}

// arithEq returns the inequalities "a >= b" and "b >= a" of the equality
// a = b, and false if a and b are not arithmetic terms.
func (h *Handler) arithEq(eq term.Ref) ([2]term.Ref, bool) {
	args := h.store.Args(eq)
	if !h.store.Sort(args[0]).Arith() {
		return [2]term.Ref{}, false
	}
	return [2]term.Ref{h.store.Geq(args[0], args[1]), h.store.Geq(args[1], args[0])}, true
}

// Register declares an atom to the solver of its theory. Equalities between
// arithmetic terms are declared to both solvers.
func (h *Handler) Register(atom term.Ref) error {
	switch h.store.Kind(atom) {
	case term.KindLeq:
		return h.lra.Register(atom)
	case term.KindEq:
		if err := h.uf.Register(atom); err != nil {
			return err
		}
		ineqs, ok := h.arithEq(atom)
		if !ok {
			return nil
		}
		for _, ineq := range ineqs {
			switch h.store.Kind(ineq) {
			case term.KindTrue:
			case term.KindLeq:
				if err := h.lra.Register(ineq); err != nil {
					return err
				}
			default:
				return errors.Wrapf(ErrUnsupportedAtom, "%s has a constant non-zero difference", h.store.String(atom))
			}
		}
		return nil
	default:
		return errors.Wrapf(ErrUnsupportedAtom, "%s", h.store.String(atom))
	}
}

// Assert asserts lit to the solver of its theory. A true equality between
// arithmetic terms is also asserted to the arithmetic solver. It returns
// false iff the handler is in conflict.
// It panics if the atom of lit belongs to no theory.
func (h *Handler) Assert(lit term.Literal) bool {
	switch h.store.Kind(lit.Term) {
	case term.KindLeq:
		if !h.lra.Assert(lit) {
			h.last = LRA
			return false
		}
	case term.KindEq:
		if err := h.Register(lit.Term); err != nil {
			panic(err)
		}
		h.uf.Assert(lit)
		if ineqs, ok := h.arithEq(lit.Term); ok && lit.Sign == term.LTrue {
			for _, ineq := range ineqs {
				if h.store.Kind(ineq) != term.KindLeq {
					continue
				}
				if _, ok := h.sides[ineq]; !ok {
					h.sides[ineq] = lit.Term
					h.trail = append(h.trail, ineq)
				}
				if !h.lra.Assert(term.Pos(ineq)) {
					h.last = LRA
					return false
				}
			}
		}
	default:
		panic(errors.Wrapf(ErrUnsupportedAtom, "%s", h.store.String(lit.Term)))
	}
	if h.lra.Status() == lra.Unsat {
		h.last = LRA
		return false
	}
	h.last = NoSolver
	return true
}

// original replaces the inequalities asserted for arithmetic equalities by
// those equalities.
func (h *Handler) original(lits []term.Literal) []term.Literal {
	res := make([]term.Literal, 0, len(lits))
	seen := make(map[term.Literal]bool, len(lits))
	for _, l := range lits {
		if eq, ok := h.sides[l.Term]; ok && l.Sign == term.LTrue {
			l = term.Pos(eq)
		}
		if !seen[l] {
			seen[l] = true
			res = append(res, l)
		}
	}
	return res
}

// occurrences extends occ to the inequalities asserted for arithmetic
// equalities, each one occurring where its equality does.
func (h *Handler) occurrences(occ interpolation.Occurrences) interpolation.Occurrences {
	if len(h.sides) == 0 {
		return occ
	}
	res := make(interpolation.Occurrences, len(occ)+len(h.sides))
	for t, m := range occ {
		res[t] = m
	}
	for ineq, eq := range h.sides {
		if m, ok := occ[eq]; ok {
			if _, own := occ[ineq]; !own {
				res[ineq] = m
			}
		}
	}
	return res
}

// sharedLeaves returns the arithmetic terms known by the equality solver.
func (h *Handler) sharedLeaves() []term.Ref {
	var res []term.Ref
	for _, t := range h.uf.Terms() {
		if h.store.Sort(t).Arith() {
			res = append(res, t)
		}
	}
	return res
}

// Check runs every solver of the schedule and returns Unsat as soon as one
// of them fails.
func (h *Handler) Check() lra.Status {
	h.last = NoSolver
	for _, id := range h.schedule {
		switch id {
		case LRA:
			if h.lra.Check() == lra.Unsat {
				h.last = LRA
				return lra.Unsat
			}
			for _, eq := range h.lra.ImpliedEqualities(h.sharedLeaves()) {
				if !h.uf.AreEqual(eq.A, eq.B) {
					h.log.WithFields(logrus.Fields{
						"a": h.store.String(eq.A),
						"b": h.store.String(eq.B),
					}).Debug("propagating arithmetic equality")
					h.uf.MergeDerived(eq.A, eq.B, eq.Reason)
				}
			}
		case UF:
			if !h.uf.Check() {
				h.last = UF
				return lra.Unsat
			}
		}
	}
	return lra.Sat
}

// Push creates a checkpoint in every solver.
func (h *Handler) Push() {
	h.lra.Push()
	h.uf.Push()
	h.levels = append(h.levels, len(h.trail))
}

// Pop backtracks every solver to its last checkpoint.
func (h *Handler) Pop() {
	h.lra.Pop()
	h.uf.Pop()
	if n := len(h.levels); n > 0 {
		lvl := h.levels[n-1]
		for _, ineq := range h.trail[lvl:] {
			delete(h.sides, ineq)
		}
		h.trail = h.trail[:lvl]
		h.levels = h.levels[:n-1]
	}
	h.last = NoSolver
}

// Last returns the solver that found the last conflict, or NoSolver.
func (h *Handler) Last() SolverID {
	return h.last
}

// Conflict returns the literals of the last conflict.
func (h *Handler) Conflict() ([]term.Literal, error) {
	switch h.last {
	case LRA:
		lits, _, err := h.lra.Explanation()
		if err != nil {
			return nil, err
		}
		return h.original(lits), nil
	case UF:
		lits, err := h.uf.Explanation()
		if err != nil {
			return nil, err
		}
		return h.original(lits), nil
	default:
		return nil, ErrNoConflict
	}
}

// InterpolatingHandler is a Handler able to interpolate the conflicts of its
// solvers.
type InterpolatingHandler struct {
	*Handler
	itp *euf.Interpolating
	alg interpolation.Algorithm
}

// NewInterpolating returns a handler able to interpolate, with the
// algorithm of cfg for arithmetic conflicts.
func NewInterpolating(store *term.Store, cfg config.Interpolation, options ...Option) (*InterpolatingHandler, error) {
	alg, err := cfg.ParsedAlgorithm()
	if err != nil {
		return nil, err
	}
	if _, err := cfg.ParsedAlpha(); err != nil {
		return nil, err
	}
	h := newHandler(store, cfg, options)
	itp := euf.NewInterpolating(store, euf.WithLogger(h.log.WithField("theory", UF)))
	h.uf = itp.Solver
	h.schedule = append(h.schedule, UF)
	return &InterpolatingHandler{Handler: h, itp: itp, alg: alg}, nil
}

// Algorithm returns the algorithm used for arithmetic conflicts.
func (h *InterpolatingHandler) Algorithm() interpolation.Algorithm {
	return h.alg
}

// GetInterpolant returns an interpolant of the last conflict, computed by
// the solver that found it. The A part is made of the partitions of mask.
func (h *InterpolatingHandler) GetInterpolant(mask interpolation.Mask, occ interpolation.Occurrences) (term.Ref, error) {
	var (
		res term.Ref
		err error
	)
	switch h.last {
	case LRA:
		res, err = h.lra.GetInterpolant(mask, h.occurrences(occ), h.alg)
	case UF:
		res, err = h.itp.GetInterpolant(mask, h.occurrences(occ))
	default:
		return term.Undef, ErrNoConflict
	}
	if err != nil {
		return term.Undef, errors.Wrapf(err, "%s interpolation", h.last)
	}
	return res, nil
}

// Build returns an interpolating handler if cfg asks for interpolants, and a
// plain one otherwise.
func Build(store *term.Store, cfg config.Interpolation, options ...Option) (Theory, error) {
	if cfg.Produce {
		h, err := NewInterpolating(store, cfg, options...)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	return New(store, cfg, options...), nil
}
