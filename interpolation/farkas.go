package interpolation

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/crillab/gophersmt/term"
)

var (
	// ErrInvalidCertificate is returned when coefficients do not prove the
	// explanation contradictory.
	ErrInvalidCertificate = errors.New("invalid Farkas certificate")
	// ErrMissingLabel is returned when an explanation literal has no color.
	ErrMissingLabel = errors.New("missing label")
)

// An ineq is the linear inequality "p <= k", or "p < k" if strict.
type ineq struct {
	p      map[term.Ref]*big.Rat
	k      *big.Rat
	strict bool
}

func newIneq() ineq {
	return ineq{p: make(map[term.Ref]*big.Rat), k: new(big.Rat)}
}

// add adds lambda*o to q.
func (q *ineq) add(o ineq, lambda *big.Rat) {
	if lambda.Sign() == 0 {
		return
	}
	for v, c := range o.p {
		sum := new(big.Rat).Mul(c, lambda)
		if prev, ok := q.p[v]; ok {
			sum.Add(sum, prev)
		}
		if sum.Sign() == 0 {
			delete(q.p, v)
		} else {
			q.p[v] = sum
		}
	}
	q.k.Add(q.k, new(big.Rat).Mul(o.k, lambda))
	q.strict = q.strict || o.strict
}

// contradictory is true iff q reads "0 <= k" with k < 0, or "0 < 0".
func (q *ineq) contradictory() bool {
	if len(q.p) != 0 {
		return false
	}
	s := q.k.Sign()
	return s < 0 || (s == 0 && q.strict)
}

// form returns the normalized inequality of a literal over a "c <= t" atom:
// "-t <= -c" if it is positive, "t < c" if it is negative.
func form(store *term.Store, l term.Literal) (ineq, error) {
	if store.Kind(l.Term) != term.KindLeq {
		return ineq{}, errors.Errorf("%s is not an arithmetic atom", store.String(l.Term))
	}
	c, t := store.LeqParts(l.Term)
	q := newIneq()
	for _, m := range store.Monomials(t) {
		q.p[m.Var] = m.Coeff
	}
	q.k = c
	switch l.Sign {
	case term.LTrue:
		for _, coeff := range q.p {
			coeff.Neg(coeff)
		}
		q.k.Neg(q.k)
	case term.LFalse:
		q.strict = true
	default:
		return ineq{}, errors.Errorf("undefined literal on %s", store.String(l.Term))
	}
	return q, nil
}

// Farkas builds interpolants from a Farkas certificate: non-negative
// coefficients such that the weighted sum of the explanation literals is a
// contradiction. Literals labeled AB are counted in A.
type Farkas struct {
	store  *term.Store
	forms  []ineq
	coeffs []*big.Rat
	colors []Color
	a, b   ineq // Weighted sums of each side
}

// NewFarkas checks the certificate and returns an interpolator for it.
func NewFarkas(store *term.Store, lits []term.Literal, coeffs []*big.Rat, labels Labels) (*Farkas, error) {
	if len(lits) != len(coeffs) {
		return nil, errors.Wrapf(ErrInvalidCertificate, "%d literals but %d coefficients", len(lits), len(coeffs))
	}
	f := &Farkas{
		store:  store,
		forms:  make([]ineq, len(lits)),
		coeffs: make([]*big.Rat, len(lits)),
		colors: make([]Color, len(lits)),
		a:      newIneq(),
		b:      newIneq(),
	}
	for i, l := range lits {
		if coeffs[i] == nil || coeffs[i].Sign() < 0 {
			return nil, errors.Wrapf(ErrInvalidCertificate, "coefficient #%d is negative", i)
		}
		c, ok := labels[l.Term]
		if !ok || c == ColorNone {
			return nil, errors.Wrapf(ErrMissingLabel, "no color for %s", store.String(l.Term))
		}
		q, err := form(store, l)
		if err != nil {
			return nil, errors.Wrap(err, "invalid explanation")
		}
		f.forms[i], f.coeffs[i], f.colors[i] = q, new(big.Rat).Set(coeffs[i]), c
		if c.ASide() {
			f.a.add(q, coeffs[i])
		} else {
			f.b.add(q, coeffs[i])
		}
	}
	total := newIneq()
	one := big.NewRat(1, 1)
	total.add(f.a, one)
	total.add(f.b, one)
	if !total.contradictory() {
		return nil, errors.Wrap(ErrInvalidCertificate, "weighted sum is not a contradiction")
	}
	return f, nil
}

func (f *Farkas) atom(q ineq) term.Ref {
	ms := make([]term.Monomial, 0, len(q.p))
	for v, c := range q.p {
		ms = append(ms, term.Monomial{Coeff: c, Var: v})
	}
	p := f.store.Sum(ms...)
	if q.strict {
		return f.store.Not(f.store.Leq(q.k, p))
	}
	return f.store.Leq(new(big.Rat).Neg(q.k), f.store.Negate(p))
}

// Interpolant returns the weighted sum of the A literals.
func (f *Farkas) Interpolant() term.Ref {
	return f.atom(f.a)
}

// DualInterpolant returns the negation of the weighted sum of the B literals.
func (f *Farkas) DualInterpolant() term.Ref {
	return f.store.Not(f.atom(f.b))
}

// FlexibleInterpolant returns "p <= (1-alpha)*kA - alpha*kB", p being the
// A sum. alpha must lie in [0,1]; the bounds of the range give the canonical
// and the dual interpolants.
func (f *Farkas) FlexibleInterpolant(alpha *big.Rat) (term.Ref, error) {
	if alpha == nil || alpha.Sign() < 0 || alpha.Cmp(big.NewRat(1, 1)) > 0 {
		return term.Undef, errors.Errorf("flexible interpolation strength %v is not in [0,1]", alpha)
	}
	switch {
	case alpha.Sign() == 0:
		return f.Interpolant(), nil
	case alpha.Cmp(big.NewRat(1, 1)) == 0:
		return f.DualInterpolant(), nil
	}
	gap := new(big.Rat).Add(f.a.k, f.b.k)
	if gap.Sign() == 0 {
		return f.Interpolant(), nil
	}
	k := new(big.Rat).Sub(big.NewRat(1, 1), alpha)
	k.Mul(k, f.a.k)
	k.Sub(k, new(big.Rat).Mul(alpha, f.b.k))
	return f.atom(ineq{p: f.a.p, k: k}), nil
}

// components returns the weighted sums of the literals of one side, grouped
// by the variables only this side uses.
func (f *Farkas) components(aSide bool) []ineq {
	shared := make(map[term.Ref]bool)
	var idx []int
	for i, q := range f.forms {
		if f.coeffs[i].Sign() == 0 {
			continue
		}
		if f.colors[i].ASide() == aSide {
			idx = append(idx, i)
			continue
		}
		for v := range q.p {
			shared[v] = true
		}
	}
	parent := make([]int, len(idx))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	owner := make(map[term.Ref]int)
	for j, i := range idx {
		for v := range f.forms[i].p {
			if shared[v] {
				continue
			}
			if o, ok := owner[v]; ok {
				ro, rj := find(o), find(j)
				if ro < rj {
					parent[rj] = ro
				} else {
					parent[ro] = rj
				}
			} else {
				owner[v] = j
			}
		}
	}
	var res []ineq
	pos := make(map[int]int)
	for j, i := range idx {
		r := find(j)
		n, ok := pos[r]
		if !ok {
			n = len(res)
			pos[r] = n
			res = append(res, newIneq())
		}
		res[n].add(f.forms[i], f.coeffs[i])
	}
	return res
}

// DecomposedInterpolant returns the conjunction of the sums of independent
// groups of A literals.
func (f *Farkas) DecomposedInterpolant() term.Ref {
	var atoms []term.Ref
	for _, q := range f.components(true) {
		atoms = append(atoms, f.atom(q))
	}
	return f.store.And(atoms...)
}

// DualDecomposedInterpolant returns the negation of the conjunction of the
// sums of independent groups of B literals.
func (f *Farkas) DualDecomposedInterpolant() term.Ref {
	var atoms []term.Ref
	for _, q := range f.components(false) {
		atoms = append(atoms, f.atom(q))
	}
	return f.store.Not(f.store.And(atoms...))
}
