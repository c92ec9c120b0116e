// Package verify checks formulas and interpolants over linear arithmetic and
// uninterpreted functions.
//
// Formulas are translated into circuits whose inputs are theory atoms; a SAT
// engine enumerates assignments of the atoms, each one being checked by the
// theory solvers. Theory conflicts are taught back to the SAT engine as
// clauses until either a consistent assignment is found or none remains.
package verify

import (
	"io"
	"sort"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/crillab/gophersmt/config"
	"github.com/crillab/gophersmt/interpolation"
	"github.com/crillab/gophersmt/lra"
	"github.com/crillab/gophersmt/theory"
	"github.com/crillab/gophersmt/term"
)

// Stats are statistics about the verifier.
type Stats struct {
	NbQueries    int
	NbSatCalls   int
	NbConflicts  int // Theory conflicts taught to the SAT engine
	NbCoreChecks int
}

// A Verifier answers satisfiability questions about the formulas of a store,
// and checks interpolants of a partitioned problem.
type Verifier struct {
	store      *term.Store
	partitions []term.Ref
	occ        interpolation.Occurrences
	log        logrus.FieldLogger
	minimize   bool
	Stats      Stats
}

// An Option configures a Verifier.
type Option func(v *Verifier)

// WithLogger sets the logger used by the verifier.
func WithLogger(log logrus.FieldLogger) Option {
	return func(v *Verifier) {
		v.log = log
	}
}

// WithMinimalConflicts makes the verifier shrink theory conflicts to
// minimal ones before teaching them to the SAT engine.
func WithMinimalConflicts() Option {
	return func(v *Verifier) {
		v.minimize = true
	}
}

// New returns a verifier for the given partitions, partition i being
// partitions[i].
func New(store *term.Store, partitions []term.Ref, options ...Option) *Verifier {
	v := &Verifier{
		store:      store,
		partitions: append([]term.Ref(nil), partitions...),
		occ:        interpolation.Collect(store, partitions),
	}
	for _, option := range options {
		option(v)
	}
	if v.log == nil {
		l := logrus.New()
		l.Out = io.Discard
		v.log = l
	}
	return v
}

// Occurrences returns the partitions each subterm of the problem occurs in.
func (v *Verifier) Occurrences() interpolation.Occurrences {
	return v.occ
}

// Parts returns the conjunctions of the partitions in mask (A) and of the
// other ones (B).
func (v *Verifier) Parts(mask interpolation.Mask) (a, b term.Ref) {
	var as, bs []term.Ref
	for i, p := range v.partitions {
		if mask.Has(i) {
			as = append(as, p)
		} else {
			bs = append(bs, p)
		}
	}
	return v.store.And(as...), v.store.And(bs...)
}

// encoder translates formulas into a circuit whose inputs are atoms.
type encoder struct {
	store *term.Store
	c     *logic.C
	lits  map[term.Ref]z.Lit
	atoms []term.Ref
}

func (e *encoder) atom(t term.Ref) z.Lit {
	if m, ok := e.lits[t]; ok {
		return m
	}
	m := e.c.Lit()
	e.lits[t] = m
	e.atoms = append(e.atoms, t)
	return m
}

func (e *encoder) encode(t term.Ref) (z.Lit, error) {
	switch e.store.Kind(t) {
	case term.KindTrue:
		return e.c.T, nil
	case term.KindFalse:
		return e.c.F, nil
	case term.KindLeq:
		return e.atom(t), nil
	case term.KindEq:
		args := e.store.Args(t)
		if !e.store.Sort(args[0]).Arith() {
			return e.atom(t), nil
		}
		le, err := e.encode(e.store.Geq(args[0], args[1]))
		if err != nil {
			return z.LitNull, err
		}
		ge, err := e.encode(e.store.Geq(args[1], args[0]))
		if err != nil {
			return z.LitNull, err
		}
		return e.c.And(le, ge), nil
	case term.KindNot:
		m, err := e.encode(e.store.Args(t)[0])
		return m.Not(), err
	case term.KindAnd, term.KindOr:
		args := e.store.Args(t)
		ms := make([]z.Lit, len(args))
		for i, a := range args {
			m, err := e.encode(a)
			if err != nil {
				return z.LitNull, err
			}
			ms[i] = m
		}
		if e.store.Kind(t) == term.KindAnd {
			return e.c.Ands(ms...), nil
		}
		return e.c.Ors(ms...), nil
	default:
		return z.LitNull, errors.Errorf("%s is not a formula", e.store.String(t))
	}
}

// Satisfiable is true iff some model of linear arithmetic and uninterpreted
// functions satisfies f.
func (v *Verifier) Satisfiable(f term.Ref) (bool, error) {
	v.Stats.NbQueries++
	e := &encoder{store: v.store, c: logic.NewC(), lits: make(map[term.Ref]z.Lit)}
	root, err := e.encode(f)
	if err != nil {
		return false, errors.Wrap(err, "cannot encode formula")
	}
	sort.Slice(e.atoms, func(i, j int) bool { return e.atoms[i] < e.atoms[j] })
	g := gini.New()
	e.c.ToCnf(g)
	g.Add(e.c.T)
	g.Add(z.LitNull)
	for {
		v.Stats.NbSatCalls++
		g.Assume(root)
		if g.Solve() != 1 {
			return false, nil
		}
		conflict, err := v.checkTheory(g, e)
		if err != nil {
			return false, err
		}
		if conflict == nil {
			return true, nil
		}
		v.Stats.NbConflicts++
		if v.minimize {
			if conflict, err = v.CoreDeletion(conflict); err != nil {
				return false, errors.Wrap(err, "invalid theory conflict")
			}
		}
		for _, l := range conflict {
			m, ok := e.lits[l.Term]
			if !ok {
				return false, errors.Errorf("conflict literal %s is not an atom of the formula", v.store.LiteralString(l))
			}
			if l.Sign == term.LTrue {
				m = m.Not()
			}
			g.Add(m)
		}
		g.Add(z.LitNull)
	}
}

// checkTheory checks the assignment of the atoms found by g. It returns nil
// if the assignment is consistent, and the literals of a conflict otherwise.
func (v *Verifier) checkTheory(g *gini.Gini, e *encoder) ([]term.Literal, error) {
	th := theory.New(v.store, config.Default().Interpolation, theory.WithLogger(v.log))
	for _, a := range e.atoms {
		l := term.Pos(a)
		if !g.Value(e.lits[a]) {
			l = term.Neg(a)
		}
		if !th.Assert(l) {
			return th.Conflict()
		}
	}
	if th.Check() == lra.Sat {
		return nil, nil
	}
	return th.Conflict()
}

// Implies is true iff every model of a is a model of b.
func (v *Verifier) Implies(a, b term.Ref) (bool, error) {
	sat, err := v.Satisfiable(v.store.And(a, v.store.Not(b)))
	return !sat, err
}

// VerifyInterpolant is true iff itp is an interpolant of the problem, the
// A part being the partitions of mask: A implies itp, itp and B are
// contradictory, and itp only uses symbols shared by A and B.
func (v *Verifier) VerifyInterpolant(itp term.Ref, mask interpolation.Mask) (bool, error) {
	labels := v.occ.Labels(mask)
	shared := true
	v.store.Leaves(itp, func(t term.Ref) {
		if labels[t] != interpolation.ColorAB {
			v.log.WithField("symbol", v.store.String(t)).Debug("interpolant uses a non shared symbol")
			shared = false
		}
	})
	if !shared {
		return false, nil
	}
	a, b := v.Parts(mask)
	ok, err := v.Implies(a, itp)
	if err != nil || !ok {
		return false, err
	}
	sat, err := v.Satisfiable(v.store.And(itp, b))
	return !sat, err
}

// SMTLIB returns an SMT-LIB2 script asserting the given formulas, to be fed
// to an external solver.
func (v *Verifier) SMTLIB(formulas ...term.Ref) string {
	return v.store.Script(formulas...)
}
