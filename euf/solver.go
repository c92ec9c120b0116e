package euf

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/crillab/gophersmt/term"
)

var (
	// ErrNotEquality is returned when registering an atom that is not an
	// equality.
	ErrNotEquality = errors.New("not an equality")
	// ErrNoConflict is returned when asking for a conflict while the last
	// check succeeded.
	ErrNoConflict = errors.New("no conflict")
)

// A merge is a reason for two terms to be equal: either a set of literals,
// or the congruence of two applications.
type merge struct {
	a, b       term.Ref
	reason     []term.Literal
	congruence bool
}

type diseq struct {
	a, b term.Ref
	lit  term.Literal
}

// A step is an edge of the proof forest, oriented along a path.
type step struct {
	from, to term.Ref
	m        *merge
}

type adjacent struct {
	to term.Ref
	m  *merge
}

// Stats are statistics about the solver.
type Stats struct {
	NbChecks    int
	NbMerges    int
	NbConflicts int
}

// A Solver decides conjunctions of equalities and disequalities between
// terms built from uninterpreted constants and functions, by congruence
// closure. Assertions are only recorded; the closure is computed by Check.
type Solver struct {
	store  *term.Store
	log    logrus.FieldLogger
	known  map[term.Ref]bool
	order  []term.Ref // Known terms, in registration order
	apps   []term.Ref // Known applications, in registration order
	eqs    []merge
	diseqs []diseq
	limits [][2]int // Sizes of eqs and diseqs at each checkpoint
	// Closure of the current assertions, valid unless dirty.
	dirty    bool
	parent   map[term.Ref]term.Ref
	forest   map[term.Ref][]adjacent
	conflict *diseq
	Stats    Stats
}

// An Option configures a Solver.
type Option func(s *Solver)

// WithLogger sets the logger used by the solver.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Solver) {
		s.log = log
	}
}

// New returns an empty solver working on the terms of store.
func New(store *term.Store, options ...Option) *Solver {
	s := &Solver{
		store: store,
		known: make(map[term.Ref]bool),
		dirty: true,
	}
	for _, option := range options {
		option(s)
	}
	if s.log == nil {
		l := logrus.New()
		l.Out = io.Discard
		s.log = l
	}
	return s
}

// Store returns the term store the solver works on.
func (s *Solver) Store() *term.Store {
	return s.store
}

func (s *Solver) addTerm(t term.Ref) {
	if s.known[t] {
		return
	}
	if s.store.Kind(t) == term.KindApp {
		for _, a := range s.store.Args(t) {
			s.addTerm(a)
		}
		s.apps = append(s.apps, t)
	}
	s.known[t] = true
	s.order = append(s.order, t)
	s.dirty = true
}

// Register declares an equality atom and its subterms.
func (s *Solver) Register(atom term.Ref) error {
	if !s.store.IsEq(atom) {
		return errors.Wrapf(ErrNotEquality, "cannot register %s", s.store.String(atom))
	}
	for _, a := range s.store.Args(atom) {
		s.addTerm(a)
	}
	return nil
}

// Knows is true iff t is a term of the solver.
func (s *Solver) Knows(t term.Ref) bool {
	return s.known[t]
}

// Terms returns the terms of the solver, in registration order.
func (s *Solver) Terms() []term.Ref {
	return s.order
}

// Assert records an equality or a disequality. It panics if the atom of lit
// is not an equality.
func (s *Solver) Assert(lit term.Literal) {
	if err := s.Register(lit.Term); err != nil {
		panic(err)
	}
	args := s.store.Args(lit.Term)
	switch lit.Sign {
	case term.LTrue:
		s.eqs = append(s.eqs, merge{a: args[0], b: args[1], reason: []term.Literal{lit}})
	case term.LFalse:
		s.diseqs = append(s.diseqs, diseq{a: args[0], b: args[1], lit: lit})
	default:
		panic("euf: cannot assert an undefined literal")
	}
	s.dirty = true
	s.conflict = nil
}

// MergeDerived records that a and b are equal because of the given
// literals, asserted to another theory.
func (s *Solver) MergeDerived(a, b term.Ref, reason []term.Literal) {
	s.addTerm(a)
	s.addTerm(b)
	s.eqs = append(s.eqs, merge{a: a, b: b, reason: append([]term.Literal(nil), reason...)})
	s.dirty = true
	s.conflict = nil
}

// Push creates a backtracking checkpoint.
func (s *Solver) Push() {
	s.limits = append(s.limits, [2]int{len(s.eqs), len(s.diseqs)})
}

// Pop forgets the assertions made since the last checkpoint. Registered
// terms are kept.
func (s *Solver) Pop() {
	n := len(s.limits)
	if n == 0 {
		panic("euf: pop without matching push")
	}
	lim := s.limits[n-1]
	s.limits = s.limits[:n-1]
	s.eqs = s.eqs[:lim[0]]
	s.diseqs = s.diseqs[:lim[1]]
	s.dirty = true
	s.conflict = nil
}

// Level returns the number of open checkpoints.
func (s *Solver) Level() int {
	return len(s.limits)
}

func (s *Solver) find(t term.Ref) term.Ref {
	for s.parent[t] != t {
		s.parent[t] = s.parent[s.parent[t]]
		t = s.parent[t]
	}
	return t
}

func (s *Solver) union(m *merge) {
	ra, rb := s.find(m.a), s.find(m.b)
	if ra == rb {
		return
	}
	s.parent[ra] = rb
	s.forest[m.a] = append(s.forest[m.a], adjacent{to: m.b, m: m})
	s.forest[m.b] = append(s.forest[m.b], adjacent{to: m.a, m: m})
	s.Stats.NbMerges++
}

func (s *Solver) signature(app term.Ref) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s/%s", s.store.Name(app), s.store.Sort(app))
	for _, a := range s.store.Args(app) {
		fmt.Fprintf(&sb, "/%d", s.find(a))
	}
	return sb.String()
}

// rebuild computes the congruence closure of the current equalities.
// Edges are only added between distinct classes, so the proof forest is
// acyclic.
func (s *Solver) rebuild() {
	if !s.dirty {
		return
	}
	s.parent = make(map[term.Ref]term.Ref, len(s.order))
	s.forest = make(map[term.Ref][]adjacent)
	for _, t := range s.order {
		s.parent[t] = t
	}
	pending := make([]*merge, len(s.eqs))
	for i := range s.eqs {
		pending[i] = &s.eqs[i]
	}
	for len(pending) != 0 {
		for _, m := range pending {
			s.union(m)
		}
		pending = pending[:0]
		sigs := make(map[string]term.Ref, len(s.apps))
		for _, app := range s.apps {
			k := s.signature(app)
			other, ok := sigs[k]
			if !ok {
				sigs[k] = app
			} else if s.find(other) != s.find(app) {
				pending = append(pending, &merge{a: other, b: app, congruence: true})
			}
		}
	}
	s.dirty = false
}

// Check computes the closure of the asserted equalities and returns false
// iff an asserted disequality is violated.
func (s *Solver) Check() bool {
	s.Stats.NbChecks++
	s.rebuild()
	s.conflict = nil
	for i, d := range s.diseqs {
		if s.find(d.a) == s.find(d.b) {
			s.conflict = &s.diseqs[i]
			s.Stats.NbConflicts++
			s.log.WithFields(logrus.Fields{
				"diseq":  s.store.LiteralString(d.lit),
				"merges": s.Stats.NbMerges,
			}).Debug("euf conflict")
			return false
		}
	}
	return true
}

// AreEqual is true iff a and b are equal in the closure of the current
// equalities. Unknown terms are only equal to themselves.
func (s *Solver) AreEqual(a, b term.Ref) bool {
	if a == b {
		return true
	}
	if !s.known[a] || !s.known[b] {
		return false
	}
	s.rebuild()
	return s.find(a) == s.find(b)
}

// path returns the edges of the proof forest between a and b, which must be
// in the same class.
func (s *Solver) path(a, b term.Ref) []step {
	prev := map[term.Ref]step{a: {}}
	queue := []term.Ref{a}
	for len(queue) != 0 && queue[0] != b {
		t := queue[0]
		queue = queue[1:]
		for _, adj := range s.forest[t] {
			if _, ok := prev[adj.to]; !ok {
				prev[adj.to] = step{from: t, to: adj.to, m: adj.m}
				queue = append(queue, adj.to)
			}
		}
	}
	if _, ok := prev[b]; !ok {
		panic(fmt.Sprintf("euf: %d and %d are not connected", a, b))
	}
	var res []step
	for t := b; t != a; t = prev[t].from {
		res = append(res, prev[t])
	}
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res
}

// explainer collects literals, each once, in discovery order.
type explainer struct {
	s    *Solver
	seen map[term.Literal]bool
	lits []term.Literal
}

func (e *explainer) add(lits ...term.Literal) {
	for _, l := range lits {
		if !e.seen[l] {
			e.seen[l] = true
			e.lits = append(e.lits, l)
		}
	}
}

func (e *explainer) edge(m *merge) {
	if !m.congruence {
		e.add(m.reason...)
		return
	}
	argsA, argsB := e.s.store.Args(m.a), e.s.store.Args(m.b)
	for i := range argsA {
		e.pair(argsA[i], argsB[i])
	}
}

func (e *explainer) pair(a, b term.Ref) {
	if a == b {
		return
	}
	for _, st := range e.s.path(a, b) {
		e.edge(st.m)
	}
}

func (s *Solver) newExplainer() *explainer {
	return &explainer{s: s, seen: make(map[term.Literal]bool)}
}

// Explain returns the literals making a and b equal.
func (s *Solver) Explain(a, b term.Ref) []term.Literal {
	if !s.AreEqual(a, b) {
		panic(fmt.Sprintf("euf: cannot explain %s = %s", s.store.String(a), s.store.String(b)))
	}
	e := s.newExplainer()
	e.pair(a, b)
	return e.lits
}

// Explanation returns the literals of the last conflict: the violated
// disequality, then the literals making its sides equal.
func (s *Solver) Explanation() ([]term.Literal, error) {
	if s.conflict == nil {
		return nil, ErrNoConflict
	}
	e := s.newExplainer()
	e.add(s.conflict.lit)
	e.pair(s.conflict.a, s.conflict.b)
	return e.lits, nil
}
