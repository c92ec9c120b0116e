package lra

import (
	"io"
	"math/big"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/crillab/gophersmt/term"
)

var (
	// ErrNotLinear is returned when registering an atom that is not a
	// "c <= t" linear inequality.
	ErrNotLinear = errors.New("not a linear inequality")
	// ErrNotUnsat is returned when asking for a conflict while the last
	// check did not fail.
	ErrNotUnsat = errors.New("solver is not in a conflicting state")
	// ErrNoModel is returned when asking for a value while the last check
	// did not succeed.
	ErrNoModel = errors.New("solver has no model")
)

type atomInfo struct {
	v       VarRef
	onTrue  BoundRef // Bound enforced when the atom is asserted true
	onFalse BoundRef // Bound enforced when the atom is asserted false
}

// A trail entry remembers the bound a variable had before it was tightened.
type trailEntry struct {
	v     VarRef
	upper bool
	prev  BoundRef
}

// A row maps non-basic variables to their coefficient in the definition of
// a basic variable.
type row map[VarRef]*big.Rat

// A Solver decides the satisfiability of conjunctions of linear constraints
// with an incremental Simplex method. It is not safe for concurrent use.
type Solver struct {
	store  *term.Store
	arena  *Arena
	bs     boundStore
	log    logrus.FieldLogger
	rows   []row                 // Row contents, indexed by RowRef
	occs   []map[VarRef]struct{} // Column occurrences, indexed by OccListRef
	nbRows int                   // Counter for row ids
	nbCols int                   // Counter for column ids
	values []Delta               // Current assignment, indexed by VarRef
	leaves map[term.Ref]VarRef   // Arithmetic leaves of the SMT world
	slacks map[term.Ref]VarRef   // Normalized linear terms
	atoms  map[term.Ref]atomInfo
	trail  []trailEntry // Bound changes, undone on Pop
	limits []int        // Trail size at each checkpoint
	// Candidate basic variables that may violate their bounds.
	// Every violating basic variable is in it.
	candidates   queue
	status       Status
	conflict     []term.Literal
	coeffs       []*big.Rat
	strengthened bool     // Whether the conflict used a strengthened integer bound
	alpha        *big.Rat // Strength of flexible interpolants
	Stats        Stats
}

// An Option configures a Solver.
type Option func(s *Solver)

// WithLogger sets the logger used by the solver.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Solver) {
		s.log = log
	}
}

// WithAlpha sets the strength of flexible interpolants, in [0,1].
func WithAlpha(alpha *big.Rat) Option {
	return func(s *Solver) {
		s.alpha = new(big.Rat).Set(alpha)
	}
}

// New returns a solver building its tableau on the terms of store.
func New(store *term.Store, options ...Option) *Solver {
	s := &Solver{
		store:  store,
		alpha:  big.NewRat(1, 2),
		arena:  NewArena(),
		leaves: make(map[term.Ref]VarRef),
		slacks: make(map[term.Ref]VarRef),
		atoms:  make(map[term.Ref]atomInfo),
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

// Status returns the status of the last operation.
func (s *Solver) Status() Status {
	return s.status
}

// Store returns the term store the solver works on.
func (s *Solver) Store() *term.Store {
	return s.store
}

// Arena returns the arena owning the tableau variables.
func (s *Solver) Arena() *Arena {
	return s.arena
}

// Reset forgets every atom, variable and assertion.
func (s *Solver) Reset() {
	s.arena.Reset()
	s.bs.reset()
	s.rows = s.rows[:0]
	s.occs = s.occs[:0]
	s.nbRows, s.nbCols = 0, 0
	s.values = s.values[:0]
	s.leaves = make(map[term.Ref]VarRef)
	s.slacks = make(map[term.Ref]VarRef)
	s.atoms = make(map[term.Ref]atomInfo)
	s.trail = s.trail[:0]
	s.limits = s.limits[:0]
	s.candidates.clear()
	s.status = Indet
	s.conflict, s.coeffs, s.strengthened = nil, nil, false
}

func (s *Solver) grow() {
	for len(s.values) < s.arena.Cap() {
		s.values = append(s.values, zeroDelta)
	}
}

func (s *Solver) newBounds(v VarRef) {
	l, lb, ub := s.bs.newList()
	s.arena.Get(v).SetBounds(l, lb, ub)
}

// varOf returns the column variable of an arithmetic leaf, creating it if needed.
func (s *Solver) varOf(leaf term.Ref) VarRef {
	if v, ok := s.leaves[leaf]; ok {
		return v
	}
	v := s.arena.Alloc(leaf)
	s.grow()
	s.values[v] = zeroDelta
	s.occs = append(s.occs, make(map[VarRef]struct{}))
	s.arena.Get(v).MakeNonBasic(NonBasic{ColID: s.nbCols, Occs: OccListRef(len(s.occs) - 1)})
	s.nbCols++
	s.newBounds(v)
	s.leaves[leaf] = v
	return v
}

func (s *Solver) col(v VarRef) map[VarRef]struct{} {
	return s.occs[s.arena.Get(v).MustColumn().Occs]
}

func (s *Solver) rowOf(v VarRef) row {
	return s.rows[s.arena.Get(v).MustRow().Row]
}

// addToRow adds k*x to r, x being expressed through its own row if it is basic.
func (s *Solver) addToRow(r row, x VarRef, k *big.Rat) {
	if b, ok := s.arena.Get(x).Row(); ok {
		for y, c := range s.rows[b.Row] {
			addCoeff(r, y, new(big.Rat).Mul(k, c))
		}
		return
	}
	addCoeff(r, x, k)
}

// addCoeff adds k to the coefficient of x in r. It returns whether x
// occurred in r before and after the operation.
func addCoeff(r row, x VarRef, k *big.Rat) (before, after bool) {
	c, before := r[x]
	sum := new(big.Rat).Set(k)
	if before {
		sum.Add(sum, c)
	}
	if sum.Sign() == 0 {
		delete(r, x)
		return before, false
	}
	r[x] = sum
	return before, true
}

// newSlack creates the basic variable standing for the normalized term t.
func (s *Solver) newSlack(t term.Ref) VarRef {
	r := make(row)
	for _, m := range s.store.Monomials(t) {
		s.addToRow(r, s.varOf(m.Var), m.Coeff)
	}
	v := s.arena.Alloc(t)
	s.grow()
	val := zeroDelta
	for x, c := range r {
		val = val.Add(s.values[x].Mul(c))
		s.col(x)[v] = struct{}{}
	}
	s.values[v] = val
	s.rows = append(s.rows, r)
	s.arena.Get(v).MakeBasic(Basic{RowID: s.nbRows, Row: RowRef(len(s.rows) - 1)})
	s.nbRows++
	s.newBounds(v)
	s.slacks[t] = v
	return v
}

// insertBound adds b to the bound list of v, keeping current bounds in place.
func (s *Solver) insertBound(v VarRef, b Bound) BoundRef {
	tv := s.arena.Get(v)
	l := tv.Bounds()
	lbRef, ubRef := s.bs.refAt(l, tv.LB()), s.bs.refAt(l, tv.UB())
	ref := s.bs.insert(l, b)
	tv.SetBounds(l, s.bs.get(lbRef).pos, s.bs.get(ubRef).pos)
	return ref
}

// Register declares the "c <= t" atom to the solver. Atoms are registered
// once; registering an atom again is a no-op.
// t = lead*v, v being the variable of t normalized by its first coefficient.
func (s *Solver) Register(atom term.Ref) error {
	if _, ok := s.atoms[atom]; ok {
		return nil
	}
	if !s.store.IsLeq(atom) {
		return errors.Wrapf(ErrNotLinear, "cannot register %s", s.store.String(atom))
	}
	c, t := s.store.LeqParts(atom)
	ms := s.store.Monomials(t)
	lead := ms[0].Coeff
	norm := s.store.Scale(new(big.Rat).Inv(lead), t)
	var v VarRef
	if len(ms) == 1 {
		v = s.varOf(norm)
	} else if sv, ok := s.slacks[norm]; ok {
		v = sv
	} else {
		v = s.newSlack(norm)
	}
	scale := new(big.Rat).Abs(lead)
	scale.Inv(scale)
	pos := lead.Sign() > 0
	onTrue := Bound{ // c <= lead*v
		Value: Rat(new(big.Rat).Quo(c, lead)),
		Upper: !pos,
		Lit:   term.Pos(atom),
		Scale: scale,
	}
	onFalse := Bound{ // lead*v < c
		Upper: pos,
		Lit:   term.Neg(atom),
		Scale: scale,
	}
	if s.store.IsIntegral(t) && c.IsInt() {
		cm1 := new(big.Rat).Sub(c, big.NewRat(1, 1))
		onFalse.Value = Rat(cm1.Quo(cm1, lead))
		onFalse.Strengthened = true
	} else {
		d := big.NewRat(-1, 1)
		if !pos {
			d = big.NewRat(1, 1)
		}
		onFalse.Value = DeltaOf(new(big.Rat).Quo(c, lead), d)
	}
	s.atoms[atom] = atomInfo{
		v:       v,
		onTrue:  s.insertBound(v, onTrue),
		onFalse: s.insertBound(v, onFalse),
	}
	return nil
}

// Assert incorporates the literal into the current set of constraints.
// The atom is registered first if needed; it panics if the atom is not a
// linear inequality. It returns false iff a conflict was found, in which
// case the solver is Unsat until the next Pop.
func (s *Solver) Assert(lit term.Literal) bool {
	if s.status == Unsat {
		return false
	}
	if err := s.Register(lit.Term); err != nil {
		panic(err)
	}
	info := s.atoms[lit.Term]
	var ref BoundRef
	switch lit.Sign {
	case term.LTrue:
		ref = info.onTrue
	case term.LFalse:
		ref = info.onFalse
	default:
		panic("lra: cannot assert an undefined literal")
	}
	b := s.bs.get(ref)
	tv := s.arena.Get(info.v)
	l := tv.Bounds()
	if b.Upper {
		if cur := s.bs.at(l, tv.UB()); !cur.Sentinel() && cur.Value.Cmp(b.Value) <= 0 {
			return true
		}
		if lo := s.bs.at(l, tv.LB()); !lo.Sentinel() && b.Value.Cmp(lo.Value) < 0 {
			s.boundConflict(b, lo)
			return false
		}
		prev, _ := tv.TightenUpper(b.pos)
		s.trail = append(s.trail, trailEntry{v: info.v, upper: true, prev: s.bs.refAt(l, prev)})
		if !tv.IsBasic() && s.values[info.v].Cmp(b.Value) > 0 {
			s.update(info.v, b.Value)
		}
	} else {
		if cur := s.bs.at(l, tv.LB()); !cur.Sentinel() && cur.Value.Cmp(b.Value) >= 0 {
			return true
		}
		if hi := s.bs.at(l, tv.UB()); !hi.Sentinel() && b.Value.Cmp(hi.Value) > 0 {
			s.boundConflict(b, hi)
			return false
		}
		prev, _ := tv.TightenLower(b.pos)
		s.trail = append(s.trail, trailEntry{v: info.v, upper: false, prev: s.bs.refAt(l, prev)})
		if !tv.IsBasic() && s.values[info.v].Cmp(b.Value) < 0 {
			s.update(info.v, b.Value)
		}
	}
	if s.arena.Get(info.v).IsBasic() {
		s.candidates.insert(info.v)
	}
	s.status = Indet
	return true
}

// update sets the value of the non-basic variable x to v and updates the
// basic variables accordingly.
func (s *Solver) update(x VarRef, v Delta) {
	d := v.Sub(s.values[x])
	for xr := range s.col(x) {
		s.values[xr] = s.values[xr].Add(d.Mul(s.rowOf(xr)[x]))
		s.candidates.insert(xr)
	}
	s.values[x] = v
}

func (s *Solver) lower(v VarRef) *Bound {
	tv := s.arena.Get(v)
	return s.bs.at(tv.Bounds(), tv.LB())
}

func (s *Solver) upper(v VarRef) *Bound {
	tv := s.arena.Get(v)
	return s.bs.at(tv.Bounds(), tv.UB())
}

func (s *Solver) belowLower(v VarRef) bool {
	lb := s.lower(v)
	return !lb.Sentinel() && s.values[v].Cmp(lb.Value) < 0
}

func (s *Solver) aboveUpper(v VarRef) bool {
	ub := s.upper(v)
	return !ub.Sentinel() && s.values[v].Cmp(ub.Value) > 0
}

// nextViolated returns the smallest basic variable out of its bounds.
func (s *Solver) nextViolated() (VarRef, bool) {
	for !s.candidates.empty() {
		v := s.candidates.removeMin()
		if s.arena.Get(v).IsBasic() && (s.belowLower(v) || s.aboveUpper(v)) {
			return v, true
		}
	}
	return VarUndef, false
}

// selectEntering returns the smallest non-basic variable of r that can
// make the basic variable of r increase (or decrease), or VarUndef.
func (s *Solver) selectEntering(r row, increase bool) VarRef {
	best := VarUndef
	for x, a := range r {
		if x >= best {
			continue
		}
		up := (a.Sign() > 0) == increase
		if up && !s.upper(x).Sentinel() && s.values[x].Cmp(s.upper(x).Value) >= 0 {
			continue
		}
		if !up && !s.lower(x).Sentinel() && s.values[x].Cmp(s.lower(x).Value) <= 0 {
			continue
		}
		best = x
	}
	return best
}

// Check decides the satisfiability of the asserted constraints.
// Pivoting follows Bland's rule: both the leaving and the entering variables
// are the smallest eligible ones, which guarantees termination.
func (s *Solver) Check() Status {
	s.Stats.NbChecks++
	if s.status == Unsat {
		return Unsat
	}
	for {
		xi, ok := s.nextViolated()
		if !ok {
			s.status = Sat
			return Sat
		}
		increase := s.belowLower(xi)
		xj := s.selectEntering(s.rowOf(xi), increase)
		if xj == VarUndef {
			s.rowConflict(xi, increase)
			return Unsat
		}
		target := s.upper(xi).Value
		if increase {
			target = s.lower(xi).Value
		}
		s.pivotAndUpdate(xi, xj, target)
	}
}

// pivotAndUpdate sets the basic variable xi to v by moving the non-basic xj,
// then swaps their roles.
func (s *Solver) pivotAndUpdate(xi, xj VarRef, v Delta) {
	a := s.rowOf(xi)[xj]
	theta := v.Sub(s.values[xi]).Quo(a)
	s.values[xi] = v
	s.values[xj] = s.values[xj].Add(theta)
	for xk := range s.col(xj) {
		if xk != xi {
			s.values[xk] = s.values[xk].Add(theta.Mul(s.rowOf(xk)[xj]))
			s.candidates.insert(xk)
		}
	}
	s.pivot(xi, xj)
	s.candidates.insert(xj)
}

// pivot makes the basic xi non-basic and the non-basic xj basic.
// The row slot of xi is handed to xj and the column slot of xj to xi.
func (s *Solver) pivot(xi, xj VarRef) {
	s.Stats.NbPivots++
	ti, tj := s.arena.Get(xi), s.arena.Get(xj)
	bi, nj := ti.MustRow(), tj.MustColumn()
	ri := s.rows[bi.Row]
	a := ri[xj]
	// xj = (1/a)*xi - sum((c/a)*xk)
	rj := make(row, len(ri))
	rj[xi] = new(big.Rat).Inv(a)
	for xk, c := range ri {
		if xk != xj {
			q := new(big.Rat).Quo(c, a)
			rj[xk] = q.Neg(q)
		}
	}
	var others []VarRef
	for xr := range s.occs[nj.Occs] {
		if xr != xi {
			others = append(others, xr)
		}
	}
	ti.MakeNonBasic(NonBasic{ColID: s.nbCols, Occs: nj.Occs})
	s.nbCols++
	tj.MakeBasic(Basic{RowID: s.nbRows, Row: bi.Row})
	s.nbRows++
	s.rows[bi.Row] = rj
	s.occs[nj.Occs] = map[VarRef]struct{}{xj: {}}
	for xk := range rj {
		if xk != xi {
			occ := s.col(xk)
			delete(occ, xi)
			occ[xj] = struct{}{}
		}
	}
	for _, xr := range others {
		rr := s.rowOf(xr)
		c := rr[xj]
		delete(rr, xj)
		for xk, d := range rj {
			before, after := addCoeff(rr, xk, new(big.Rat).Mul(c, d))
			switch {
			case !before && after:
				s.col(xk)[xr] = struct{}{}
			case before && !after:
				delete(s.col(xk), xr)
			}
		}
	}
}

// Push creates a backtracking checkpoint.
func (s *Solver) Push() {
	s.limits = append(s.limits, len(s.trail))
}

// Pop restores the bounds of the last checkpoint. The current assignment is
// kept: it still satisfies the rows and the non-basic bounds, which can only
// get looser.
func (s *Solver) Pop() {
	n := len(s.limits)
	if n == 0 {
		panic("lra: pop without matching push")
	}
	lim := s.limits[n-1]
	s.limits = s.limits[:n-1]
	for i := len(s.trail) - 1; i >= lim; i-- {
		e := s.trail[i]
		tv := s.arena.Get(e.v)
		pos := s.bs.get(e.prev).pos
		if e.upper {
			tv.LoosenUpper(pos)
		} else {
			tv.LoosenLower(pos)
		}
	}
	s.trail = s.trail[:lim]
	s.status = Indet
	s.conflict, s.coeffs, s.strengthened = nil, nil, false
	s.arena.Each(func(v VarRef, tv *TableauVar) {
		if tv.IsBasic() {
			s.candidates.insert(v)
		}
	})
	s.Stats.NbBacktrack++
}

// Level returns the number of open checkpoints.
func (s *Solver) Level() int {
	return len(s.limits)
}

// concreteDelta returns a positive rational small enough for every strict
// bound to hold when δ is replaced by it.
func (s *Solver) concreteDelta() *big.Rat {
	delta := big.NewRat(1, 1)
	tighten := func(lo, hi Delta) { // lo <= hi must hold
		if lo.R.Cmp(hi.R) < 0 && lo.D.Cmp(hi.D) > 0 {
			num := new(big.Rat).Sub(hi.R, lo.R)
			den := new(big.Rat).Sub(lo.D, hi.D)
			if q := num.Quo(num, den); q.Cmp(delta) < 0 {
				delta = q
			}
		}
	}
	s.arena.Each(func(v VarRef, tv *TableauVar) {
		if lb := s.lower(v); !lb.Sentinel() {
			tighten(lb.Value, s.values[v])
		}
		if ub := s.upper(v); !ub.Sentinel() {
			tighten(s.values[v], ub.Value)
		}
	})
	return delta
}

// Value returns the value of the linear term t in the current model.
// Leaves unknown to the solver are worth 0.
func (s *Solver) Value(t term.Ref) (*big.Rat, error) {
	if s.status != Sat {
		return nil, ErrNoModel
	}
	delta := s.concreteDelta()
	res := new(big.Rat)
	if s.store.Kind(t) == term.KindConst {
		return s.store.Value(t), nil
	}
	for _, m := range s.store.Monomials(t) {
		if v, ok := s.leaves[m.Var]; ok {
			res.Add(res, new(big.Rat).Mul(m.Coeff, s.values[v].Concrete(delta)))
		}
	}
	return res, nil
}

// Model returns the value of every arithmetic leaf known to the solver.
func (s *Solver) Model() (map[term.Ref]*big.Rat, error) {
	if s.status != Sat {
		return nil, ErrNoModel
	}
	delta := s.concreteDelta()
	res := make(map[term.Ref]*big.Rat, len(s.leaves))
	for leaf, v := range s.leaves {
		res[leaf] = s.values[v].Concrete(delta)
	}
	return res, nil
}

// An Equality is an equality between two leaves entailed by the current
// bounds, together with the literals entailing it.
type Equality struct {
	A, B   term.Ref
	Reason []term.Literal
}

// ImpliedEqualities returns equalities between the given leaves that are
// fixed to the same value by their current bounds.
func (s *Solver) ImpliedEqualities(leaves []term.Ref) []Equality {
	if s.status == Unsat {
		return nil
	}
	type fixed struct {
		leaf   term.Ref
		reason []term.Literal
	}
	byValue := make(map[string][]fixed)
	var keys []string
	sorted := append([]term.Ref(nil), leaves...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, leaf := range sorted {
		v, ok := s.leaves[leaf]
		if !ok {
			continue
		}
		lb, ub := s.lower(v), s.upper(v)
		if lb.Sentinel() || ub.Sentinel() || lb.Value.Strict() || lb.Value.Cmp(ub.Value) != 0 {
			continue
		}
		k := lb.Value.String()
		if _, ok := byValue[k]; !ok {
			keys = append(keys, k)
		}
		byValue[k] = append(byValue[k], fixed{leaf: leaf, reason: []term.Literal{lb.Lit, ub.Lit}})
	}
	var res []Equality
	for _, k := range keys {
		group := byValue[k]
		for i := 1; i < len(group); i++ {
			reason := append(append([]term.Literal(nil), group[i-1].reason...), group[i].reason...)
			res = append(res, Equality{A: group[i-1].leaf, B: group[i].leaf, Reason: reason})
		}
	}
	return res
}
