package lra

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crillab/gophersmt/interpolation"
	"github.com/crillab/gophersmt/term"
)

func r(a, b int64) *big.Rat { return big.NewRat(a, b) }

func sum(s *term.Store, coeffs []int64, vars []term.Ref) term.Ref {
	ms := make([]term.Monomial, len(vars))
	for i, v := range vars {
		ms[i] = term.Monomial{Coeff: r(coeffs[i], 1), Var: v}
	}
	return s.Sum(ms...)
}

// holds is true iff l is true in the current model of s.
func holds(t *testing.T, s *Solver, l term.Literal) bool {
	c, tm := s.store.LeqParts(l.Term)
	v, err := s.Value(tm)
	require.NoError(t, err)
	if l.Sign == term.LTrue {
		return c.Cmp(v) <= 0
	}
	return v.Cmp(c) < 0
}

// checkRows verifies every basic variable equals its row.
func checkRows(t *testing.T, s *Solver) {
	s.arena.Each(func(v VarRef, tv *TableauVar) {
		b, ok := tv.Row()
		if !ok {
			return
		}
		acc := zeroDelta
		for x, c := range s.rows[b.Row] {
			require.False(t, s.arena.Get(x).IsBasic(), "basic variable %d in row of %d", x, v)
			_, occurs := s.col(x)[v]
			require.True(t, occurs, "missing occurrence of %d in column %d", v, x)
			acc = acc.Add(s.values[x].Mul(c))
		}
		require.Zero(t, acc.Cmp(s.values[v]), "row of %d does not hold", v)
	})
}

// checkCertificate verifies the last conflict with an all-A Farkas interpolator.
func checkCertificate(t *testing.T, s *Solver) {
	lits, coeffs, err := s.Explanation()
	require.NoError(t, err)
	labels := interpolation.Labels{}
	for _, l := range lits {
		labels[l.Term] = interpolation.ColorA
	}
	if s.Strengthened() {
		_, err = interpolation.NewLIA(s.store, lits, coeffs, labels)
	} else {
		_, err = interpolation.NewFarkas(s.store, lits, coeffs, labels)
	}
	require.NoError(t, err)
}

func TestSat(t *testing.T) {
	st := term.NewStore()
	x := st.Var("x", term.Real)
	y := st.Var("y", term.Real)
	s := New(st)
	lits := []term.Literal{
		term.Pos(st.Leq(r(1, 1), x)),
		term.Pos(st.Leq(r(1, 1), y)),
		term.Pos(st.Leq(r(-3, 1), sum(st, []int64{-1, -1}, []term.Ref{x, y}))),
	}
	for _, l := range lits {
		require.True(t, s.Assert(l))
	}
	require.Equal(t, Sat, s.Check())
	checkRows(t, s)
	for _, l := range lits {
		assert.True(t, holds(t, s, l), st.LiteralString(l))
	}
	model, err := s.Model()
	require.NoError(t, err)
	assert.Len(t, model, 2)
}

func TestUnsatRow(t *testing.T) {
	st := term.NewStore()
	x := st.Var("x", term.Real)
	y := st.Var("y", term.Real)
	s := New(st)
	require.True(t, s.Assert(term.Pos(st.Leq(r(1, 1), x))))
	require.True(t, s.Assert(term.Pos(st.Leq(r(1, 1), y))))
	require.True(t, s.Assert(term.Pos(st.Leq(r(-1, 1), sum(st, []int64{-1, -1}, []term.Ref{x, y})))))
	require.Equal(t, Unsat, s.Check())
	lits, coeffs, err := s.Explanation()
	require.NoError(t, err)
	assert.Len(t, lits, 3)
	assert.Len(t, coeffs, 3)
	checkCertificate(t, s)
	assert.Equal(t, 1, s.Stats.NbConflicts)
	_, err = s.Value(x)
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestImmediateBoundConflict(t *testing.T) {
	st := term.NewStore()
	x := st.Var("x", term.Real)
	s := New(st)
	s.Push()
	require.True(t, s.Assert(term.Pos(st.Leq(r(2, 1), x))))
	assert.False(t, s.Assert(term.Neg(st.Leq(r(1, 1), x))))
	assert.Equal(t, Unsat, s.Status())
	assert.Equal(t, Unsat, s.Check())
	checkCertificate(t, s)
	s.Pop()
	_, _, err := s.Explanation()
	assert.ErrorIs(t, err, ErrNotUnsat)
	assert.Equal(t, Sat, s.Check())
}

func TestStrictBounds(t *testing.T) {
	// 0 < x < 1
	st := term.NewStore()
	x := st.Var("x", term.Real)
	s := New(st)
	gt := term.Neg(st.Leq(r(0, 1), st.Negate(x)))
	lt := term.Neg(st.Leq(r(1, 1), x))
	require.True(t, s.Assert(gt))
	require.True(t, s.Assert(lt))
	require.Equal(t, Sat, s.Check())
	assert.True(t, holds(t, s, gt))
	assert.True(t, holds(t, s, lt))

	// x >= 1 now contradicts x < 1.
	assert.False(t, s.Assert(term.Pos(st.Leq(r(1, 1), x))))
	checkCertificate(t, s)
}

func TestPushPop(t *testing.T) {
	st := term.NewStore()
	x := st.Var("x", term.Real)
	y := st.Var("y", term.Real)
	xy := sum(st, []int64{1, 1}, []term.Ref{x, y})
	s := New(st)
	require.True(t, s.Assert(term.Pos(st.Leq(r(0, 1), x))))
	require.True(t, s.Assert(term.Pos(st.Leq(r(0, 1), y))))
	require.Equal(t, Sat, s.Check())

	s.Push()
	assert.Equal(t, 1, s.Level())
	require.True(t, s.Assert(term.Neg(st.Leq(r(0, 1), xy))))
	require.Equal(t, Unsat, s.Check())
	checkCertificate(t, s)
	s.Pop()
	assert.Equal(t, 0, s.Level())
	require.Equal(t, Sat, s.Check())
	checkRows(t, s)

	s.Push()
	require.True(t, s.Assert(term.Pos(st.Leq(r(5, 1), xy))))
	require.Equal(t, Sat, s.Check())
	v, err := s.Value(xy)
	require.NoError(t, err)
	assert.True(t, v.Cmp(r(5, 1)) >= 0)
	s.Pop()
	assert.Equal(t, 2, s.Stats.NbBacktrack)
	assert.Panics(t, func() { s.Pop() })
}

func TestIntegerStrengthening(t *testing.T) {
	// x is an integer: x >= 1/2 and x < 1 are contradictory.
	st := term.NewStore()
	x := st.Var("x", term.Int)
	s := New(st)
	ge := st.Leq(r(1, 2), x)
	lt := st.Leq(r(1, 1), x)
	require.True(t, s.Assert(term.Pos(ge)))
	assert.False(t, s.Assert(term.Neg(lt)))
	assert.True(t, s.Strengthened())
	checkCertificate(t, s)

	occ := interpolation.Occurrences{ge: interpolation.NewMask(0), lt: interpolation.NewMask(1)}
	itp, err := s.GetInterpolant(interpolation.NewMask(0), occ, interpolation.Canonical)
	require.NoError(t, err)
	assert.Equal(t, st.Leq(r(1, 2), x), itp)
	itp, err = s.GetInterpolant(interpolation.NewMask(0), occ, interpolation.Dual)
	require.NoError(t, err)
	assert.Equal(t, st.Not(st.Leq(r(0, 1), st.Negate(x))), itp)
}

func TestRealAtomIsNotStrengthened(t *testing.T) {
	st := term.NewStore()
	x := st.Var("x", term.Real)
	s := New(st)
	require.True(t, s.Assert(term.Pos(st.Leq(r(1, 2), x))))
	require.True(t, s.Assert(term.Neg(st.Leq(r(1, 1), x))))
	assert.Equal(t, Sat, s.Check())
}

func TestGetInterpolantNeedsConflict(t *testing.T) {
	st := term.NewStore()
	s := New(st)
	_, err := s.GetInterpolant(interpolation.NewMask(0), nil, interpolation.Canonical)
	assert.ErrorIs(t, err, ErrNotUnsat)
}

func TestRegisterErrors(t *testing.T) {
	st := term.NewStore()
	x := st.Var("x", term.Real)
	s := New(st)
	assert.ErrorIs(t, s.Register(st.Eq(x, st.Var("y", term.Real))), ErrNotLinear)
	atom := st.Leq(r(1, 1), sum(st, []int64{2, 4}, []term.Ref{x, st.Var("z", term.Real)}))
	require.NoError(t, s.Register(atom))
	require.NoError(t, s.Register(atom))
	// 2x + 4z and x + 2z share their slack.
	require.NoError(t, s.Register(st.Leq(r(0, 1), sum(st, []int64{1, 2}, []term.Ref{x, st.Var("z", term.Real)}))))
	assert.Len(t, s.slacks, 1)
	assert.Panics(t, func() { s.Assert(term.Literal{Term: atom}) })
}

func TestImpliedEqualities(t *testing.T) {
	st := term.NewStore()
	x := st.Var("x", term.Real)
	y := st.Var("y", term.Real)
	z := st.Var("z", term.Real)
	s := New(st)
	for _, v := range []term.Ref{x, y} {
		require.True(t, s.Assert(term.Pos(st.Leq(r(1, 1), v))))
		require.True(t, s.Assert(term.Pos(st.Leq(r(-1, 1), st.Negate(v)))))
	}
	require.True(t, s.Assert(term.Pos(st.Leq(r(1, 1), z))))
	require.Equal(t, Sat, s.Check())
	eqs := s.ImpliedEqualities([]term.Ref{z, y, x})
	require.Len(t, eqs, 1)
	assert.Equal(t, x, eqs[0].A)
	assert.Equal(t, y, eqs[0].B)
	assert.Len(t, eqs[0].Reason, 4)
}

// Random systems: a Sat answer comes with a model, an Unsat one with a
// valid Farkas certificate.
func TestRandomSystems(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for n := 0; n < 200; n++ {
		st := term.NewStore()
		vars := []term.Ref{
			st.Var("a", term.Real), st.Var("b", term.Real),
			st.Var("c", term.Real), st.Var("d", term.Real),
		}
		s := New(st)
		var lits []term.Literal
		for len(lits) < 6 {
			coeffs := make([]int64, len(vars))
			for i := range coeffs {
				if rng.Intn(2) == 0 {
					coeffs[i] = int64(rng.Intn(7) - 3)
				}
			}
			atom := st.Leq(r(int64(rng.Intn(11)-5), 1), sum(st, coeffs, vars))
			if st.Kind(atom) != term.KindLeq {
				continue
			}
			l := term.Pos(atom)
			if rng.Intn(2) == 0 {
				l = term.Neg(atom)
			}
			lits = append(lits, l)
		}
		s.Push()
		ok := true
		for _, l := range lits {
			if ok = s.Assert(l); !ok {
				break
			}
		}
		if ok && s.Check() == Sat {
			checkRows(t, s)
			for _, l := range lits {
				require.True(t, holds(t, s, l), "system %d: %s", n, st.LiteralString(l))
			}
		} else {
			checkCertificate(t, s)
		}
		s.Pop()
		require.Equal(t, Sat, s.Check(), "system %d", n)
		checkRows(t, s)
	}
}
