package term

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// A Store is a hash-consed term graph. It is the single owner of all term
// nodes; components that need terms share one *Store explicitly.
// A Store is not safe for concurrent use.
type Store struct {
	nodes []node
	index map[string]Ref
	tru   Ref
	fls   Ref
}

// NewStore returns an empty store holding only the boolean constants.
func NewStore() *Store {
	s := &Store{index: make(map[string]Ref)}
	s.tru = s.intern(node{kind: KindTrue, sort: Bool})
	s.fls = s.intern(node{kind: KindFalse, sort: Bool})
	return s
}

// Len returns the number of nodes in the store.
func (s *Store) Len() int {
	return len(s.nodes)
}

func key(n node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d/%d/%s/", n.kind, n.sort, n.name)
	if n.value != nil {
		sb.WriteString(n.value.RatString())
	}
	for i, a := range n.args {
		fmt.Fprintf(&sb, "/%d", a)
		if n.coeffs != nil {
			fmt.Fprintf(&sb, "*%s", n.coeffs[i].RatString())
		}
	}
	return sb.String()
}

func (s *Store) intern(n node) Ref {
	k := key(n)
	if r, ok := s.index[k]; ok {
		return r
	}
	r := Ref(len(s.nodes))
	s.nodes = append(s.nodes, n)
	s.index[k] = r
	return r
}

func (s *Store) node(r Ref) *node {
	if r < 0 || int(r) >= len(s.nodes) {
		panic(fmt.Sprintf("term: invalid ref %d", r))
	}
	return &s.nodes[r]
}

// Kind returns the kind of r.
func (s *Store) Kind(r Ref) Kind {
	return s.node(r).kind
}

// Sort returns the sort of r.
func (s *Store) Sort(r Ref) Sort {
	return s.node(r).sort
}

// Name returns the symbol of a var or an application, "" otherwise.
func (s *Store) Name(r Ref) string {
	return s.node(r).name
}

// Args returns the children of r. The slice must not be modified.
func (s *Store) Args(r Ref) []Ref {
	return s.node(r).args
}

// IsArith is true iff r is an arithmetic term.
func (s *Store) IsArith(r Ref) bool {
	return s.node(r).sort.Arith()
}

// IsLeq is true iff r is a "c <= t" atom.
func (s *Store) IsLeq(r Ref) bool {
	return s.node(r).kind == KindLeq
}

// IsEq is true iff r is an equality.
func (s *Store) IsEq(r Ref) bool {
	return s.node(r).kind == KindEq
}

// True returns the true constant.
func (s *Store) True() Ref { return s.tru }

// False returns the false constant.
func (s *Store) False() Ref { return s.fls }

// Var returns the free constant called name with the given sort.
func (s *Store) Var(name string, sort Sort) Ref {
	if sort == Bool {
		panic("term: boolean variables are not supported")
	}
	return s.intern(node{kind: KindVar, sort: sort, name: name})
}

// Const returns the numeral v.
func (s *Store) Const(v *big.Rat) Ref {
	return s.intern(node{kind: KindConst, sort: Real, value: new(big.Rat).Set(v)})
}

// Value returns the value of a numeral. It panics if r is not a numeral.
func (s *Store) Value(r Ref) *big.Rat {
	n := s.node(r)
	if n.kind != KindConst {
		panic(fmt.Sprintf("term: %d is not a numeral", r))
	}
	return new(big.Rat).Set(n.value)
}

// App returns the application of fun to args, with the given result sort.
func (s *Store) App(fun string, sort Sort, args ...Ref) Ref {
	cp := make([]Ref, len(args))
	copy(cp, args)
	return s.intern(node{kind: KindApp, sort: sort, name: fun, args: cp})
}

// Sum returns the canonical linear term for the given monomials.
// Monomials over the same leaf are merged, null coefficients dropped.
// A single leaf with coefficient 1 is the leaf itself; the empty sum is the
// numeral 0. Leaves must be vars or applications of arithmetic sort.
func (s *Store) Sum(ms ...Monomial) Ref {
	acc := make(map[Ref]*big.Rat, len(ms))
	srt := Int
	for _, m := range ms {
		n := s.node(m.Var)
		if (n.kind != KindVar && n.kind != KindApp) || !n.sort.Arith() {
			panic(fmt.Sprintf("term: %d is not an arithmetic leaf", m.Var))
		}
		if n.sort == Real || !m.Coeff.IsInt() {
			srt = Real
		}
		if c, ok := acc[m.Var]; ok {
			c.Add(c, m.Coeff)
		} else {
			acc[m.Var] = new(big.Rat).Set(m.Coeff)
		}
	}
	vars := make([]Ref, 0, len(acc))
	for v, c := range acc {
		if c.Sign() != 0 {
			vars = append(vars, v)
		}
	}
	if len(vars) == 0 {
		return s.Const(new(big.Rat))
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
	if len(vars) == 1 && acc[vars[0]].Cmp(big.NewRat(1, 1)) == 0 {
		return vars[0]
	}
	coeffs := make([]*big.Rat, len(vars))
	for i, v := range vars {
		coeffs[i] = acc[v]
	}
	return s.intern(node{kind: KindSum, sort: srt, args: vars, coeffs: coeffs})
}

// Monomials returns the monomials of a linear term: a leaf, a sum or the
// numeral 0.
func (s *Store) Monomials(t Ref) []Monomial {
	n := s.node(t)
	switch n.kind {
	case KindVar, KindApp:
		return []Monomial{{Coeff: big.NewRat(1, 1), Var: t}}
	case KindSum:
		res := make([]Monomial, len(n.args))
		for i, v := range n.args {
			res[i] = Monomial{Coeff: new(big.Rat).Set(n.coeffs[i]), Var: v}
		}
		return res
	case KindConst:
		if n.value.Sign() == 0 {
			return nil
		}
	}
	panic(fmt.Sprintf("term: %d is not a linear term", t))
}

// Scale returns k*t for a linear term t.
func (s *Store) Scale(k *big.Rat, t Ref) Ref {
	ms := s.Monomials(t)
	for _, m := range ms {
		m.Coeff.Mul(m.Coeff, k)
	}
	return s.Sum(ms...)
}

// Negate returns -t for a linear term t.
func (s *Store) Negate(t Ref) Ref {
	return s.Scale(big.NewRat(-1, 1), t)
}

// Leq returns the atom "c <= t". t must be a linear term.
func (s *Store) Leq(c *big.Rat, t Ref) Ref {
	n := s.node(t)
	if !n.sort.Arith() || (n.kind != KindVar && n.kind != KindApp && n.kind != KindSum && n.kind != KindConst) {
		panic(fmt.Sprintf("term: %d is not a linear term", t))
	}
	if n.kind == KindConst {
		if c.Cmp(n.value) <= 0 {
			return s.tru
		}
		return s.fls
	}
	return s.intern(node{kind: KindLeq, sort: Bool, value: new(big.Rat).Set(c), args: []Ref{t}})
}

// Geq returns the atom "a >= b" over two arithmetic terms, in the
// "c <= t" form. It is True or False when a - b is a numeral.
func (s *Store) Geq(a, b Ref) Ref {
	ma, ca := s.linear(a)
	mb, cb := s.linear(b)
	for _, m := range mb {
		ma = append(ma, Monomial{Coeff: new(big.Rat).Neg(m.Coeff), Var: m.Var})
	}
	return s.Leq(cb.Sub(cb, ca), s.Sum(ma...))
}

// linear returns the monomials and the constant of an arithmetic term.
func (s *Store) linear(t Ref) ([]Monomial, *big.Rat) {
	if s.Kind(t) == KindConst {
		return nil, new(big.Rat).Set(s.Value(t))
	}
	return s.Monomials(t), new(big.Rat)
}

// LeqParts returns the constant and the term of a "c <= t" atom.
func (s *Store) LeqParts(r Ref) (c *big.Rat, t Ref) {
	n := s.node(r)
	if n.kind != KindLeq {
		panic(fmt.Sprintf("term: %d is not a leq atom", r))
	}
	return new(big.Rat).Set(n.value), n.args[0]
}

// IsIntegral is true iff every leaf of the linear term t is of sort Int and
// every coefficient is an integer.
func (s *Store) IsIntegral(t Ref) bool {
	return s.node(t).sort == Int
}

// Eq returns the equality a = b. Equalities are symmetric: Eq(a, b) and
// Eq(b, a) are the same term.
func (s *Store) Eq(a, b Ref) Ref {
	if a == b {
		return s.tru
	}
	if a > b {
		a, b = b, a
	}
	return s.intern(node{kind: KindEq, sort: Bool, args: []Ref{a, b}})
}

// Not returns the negation of a formula.
func (s *Store) Not(a Ref) Ref {
	n := s.node(a)
	switch n.kind {
	case KindTrue:
		return s.fls
	case KindFalse:
		return s.tru
	case KindNot:
		return n.args[0]
	}
	return s.intern(node{kind: KindNot, sort: Bool, args: []Ref{a}})
}

// And returns the conjunction of the given formulas.
func (s *Store) And(args ...Ref) Ref {
	return s.nary(KindAnd, s.tru, s.fls, args)
}

// Or returns the disjunction of the given formulas.
func (s *Store) Or(args ...Ref) Ref {
	return s.nary(KindOr, s.fls, s.tru, args)
}

func (s *Store) nary(kind Kind, neutral, absorbing Ref, args []Ref) Ref {
	var flat []Ref
	seen := make(map[Ref]bool, len(args))
	for _, a := range args {
		switch {
		case a == absorbing:
			return absorbing
		case a == neutral:
			continue
		case s.node(a).kind == kind:
			for _, b := range s.node(a).args {
				if !seen[b] {
					seen[b] = true
					flat = append(flat, b)
				}
			}
		case !seen[a]:
			seen[a] = true
			flat = append(flat, a)
		}
	}
	switch len(flat) {
	case 0:
		return neutral
	case 1:
		return flat[0]
	}
	sort.Slice(flat, func(i, j int) bool { return flat[i] < flat[j] })
	return s.intern(node{kind: kind, sort: Bool, args: flat})
}

// LiteralTerm returns the formula denoted by l: its term or the negation
// of its term.
func (s *Store) LiteralTerm(l Literal) Ref {
	if l.Sign == LFalse {
		return s.Not(l.Term)
	}
	return l.Term
}

// Leaves calls f on each arithmetic or uninterpreted leaf occurring in r,
// once per leaf.
func (s *Store) Leaves(r Ref, f func(Ref)) {
	seen := make(map[Ref]bool)
	var walk func(Ref)
	walk = func(r Ref) {
		if seen[r] {
			return
		}
		seen[r] = true
		n := s.node(r)
		if n.kind == KindVar {
			f(r)
			return
		}
		if n.kind == KindApp {
			f(r)
		}
		for _, a := range n.args {
			walk(a)
		}
	}
	walk(r)
}

// Walk calls f on every subterm of r, r included, once per subterm and
// children first.
func (s *Store) Walk(r Ref, f func(Ref)) {
	seen := make(map[Ref]bool)
	var walk func(Ref)
	walk = func(r Ref) {
		if seen[r] {
			return
		}
		seen[r] = true
		for _, a := range s.node(r).args {
			walk(a)
		}
		f(r)
	}
	walk(r)
}
