package euf

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crillab/gophersmt/interpolation"
	"github.com/crillab/gophersmt/term"
)

func vars(st *term.Store, names ...string) []term.Ref {
	res := make([]term.Ref, len(names))
	for i, n := range names {
		res[i] = st.Var(n, term.U)
	}
	return res
}

func TestTransitivity(t *testing.T) {
	st := term.NewStore()
	v := vars(st, "a", "b", "c")
	s := New(st)
	ab, bc, ac := st.Eq(v[0], v[1]), st.Eq(v[1], v[2]), st.Eq(v[0], v[2])
	s.Assert(term.Pos(ab))
	s.Assert(term.Pos(bc))
	s.Assert(term.Neg(ac))
	require.False(t, s.Check())
	expl, err := s.Explanation()
	require.NoError(t, err)
	assert.Equal(t, []term.Literal{term.Neg(ac), term.Pos(ab), term.Pos(bc)}, expl)
}

func TestCongruence(t *testing.T) {
	st := term.NewStore()
	v := vars(st, "a", "b")
	fa, fb := st.App("f", term.U, v[0]), st.App("f", term.U, v[1])
	gfa, gfb := st.App("g", term.U, fa), st.App("g", term.U, fb)
	s := New(st)
	s.Assert(term.Pos(st.Eq(v[0], v[1])))
	s.Assert(term.Neg(st.Eq(gfa, gfb)))
	require.False(t, s.Check())
	expl, err := s.Explanation()
	require.NoError(t, err)
	assert.Equal(t, []term.Literal{term.Neg(st.Eq(gfa, gfb)), term.Pos(st.Eq(v[0], v[1]))}, expl)
	assert.True(t, s.AreEqual(fa, fb))
	assert.Equal(t, []term.Literal{term.Pos(st.Eq(v[0], v[1]))}, s.Explain(fa, fb))
}

func TestPushPop(t *testing.T) {
	st := term.NewStore()
	v := vars(st, "a", "b", "c")
	s := New(st)
	s.Assert(term.Pos(st.Eq(v[0], v[1])))
	s.Assert(term.Neg(st.Eq(v[0], v[2])))
	require.True(t, s.Check())
	_, err := s.Explanation()
	assert.ErrorIs(t, err, ErrNoConflict)

	s.Push()
	s.Assert(term.Pos(st.Eq(v[1], v[2])))
	require.False(t, s.Check())
	s.Pop()
	require.True(t, s.Check())
	assert.False(t, s.AreEqual(v[1], v[2]))
	assert.True(t, s.AreEqual(v[0], v[1]))
	assert.Panics(t, func() { s.Pop() })
}

func TestMergeDerived(t *testing.T) {
	st := term.NewStore()
	x := st.Var("x", term.Real)
	y := st.Var("y", term.Real)
	fx, fy := st.App("f", term.U, x), st.App("f", term.U, y)
	reason := []term.Literal{term.Pos(st.Leq(big.NewRat(1, 1), x))}
	s := New(st)
	s.Assert(term.Neg(st.Eq(fx, fy)))
	require.True(t, s.Check())
	s.MergeDerived(x, y, reason)
	require.False(t, s.Check())
	expl, err := s.Explanation()
	require.NoError(t, err)
	assert.Equal(t, append([]term.Literal{term.Neg(st.Eq(fx, fy))}, reason...), expl)
}

func TestRegisterErrors(t *testing.T) {
	st := term.NewStore()
	s := New(st)
	v := vars(st, "a")
	assert.ErrorIs(t, s.Register(v[0]), ErrNotEquality)
	assert.Panics(t, func() { s.Assert(term.Pos(v[0])) })
	assert.False(t, s.AreEqual(v[0], st.Var("b", term.U)))
}

// A: a = b, b = c. B: c = d, a != d.
func TestInterpolantDiseqInB(t *testing.T) {
	st := term.NewStore()
	v := vars(st, "a", "b", "c", "d")
	ab, bc, cd, ad := st.Eq(v[0], v[1]), st.Eq(v[1], v[2]), st.Eq(v[2], v[3]), st.Eq(v[0], v[3])
	occ := interpolation.Collect(st, []term.Ref{st.And(ab, bc), st.And(cd, st.Not(ad))})
	s := NewInterpolating(st)
	for _, l := range []term.Literal{term.Pos(ab), term.Pos(bc), term.Pos(cd), term.Neg(ad)} {
		s.Assert(l)
	}
	require.False(t, s.Check())
	itp, err := s.GetInterpolant(interpolation.NewMask(0), occ)
	require.NoError(t, err)
	assert.Equal(t, st.Eq(v[0], v[2]), itp)

	// Swapping the parts: the disequality is in A.
	itp, err = s.GetInterpolant(interpolation.NewMask(1), occ)
	require.NoError(t, err)
	assert.Equal(t, st.Not(st.Eq(v[0], v[2])), itp)
}

// A: a != d, a = b. B: b = c, c = d.
func TestInterpolantDiseqInA(t *testing.T) {
	st := term.NewStore()
	v := vars(st, "a", "b", "c", "d")
	ab, bc, cd, ad := st.Eq(v[0], v[1]), st.Eq(v[1], v[2]), st.Eq(v[2], v[3]), st.Eq(v[0], v[3])
	occ := interpolation.Collect(st, []term.Ref{st.And(st.Not(ad), ab), st.And(bc, cd)})
	s := NewInterpolating(st)
	for _, l := range []term.Literal{term.Neg(ad), term.Pos(ab), term.Pos(bc), term.Pos(cd)} {
		s.Assert(l)
	}
	require.False(t, s.Check())
	itp, err := s.GetInterpolant(interpolation.NewMask(0), occ)
	require.NoError(t, err)
	assert.Equal(t, st.Not(st.Eq(v[1], v[3])), itp)
}

func TestInterpolantMixedCongruence(t *testing.T) {
	st := term.NewStore()
	v := vars(st, "a", "b", "c", "d")
	f1, f2 := st.App("f", term.U, v[0], v[2]), st.App("f", term.U, v[1], v[3])
	ab, cd, ff := st.Eq(v[0], v[1]), st.Eq(v[2], v[3]), st.Eq(f1, f2)
	occ := interpolation.Collect(st, []term.Ref{ab, st.And(cd, st.Not(ff))})
	s := NewInterpolating(st)
	for _, l := range []term.Literal{term.Pos(ab), term.Pos(cd), term.Neg(ff)} {
		s.Assert(l)
	}
	require.False(t, s.Check())
	_, err := s.GetInterpolant(interpolation.NewMask(0), occ)
	assert.ErrorIs(t, err, ErrUnsupportedConflict)
}

func TestInterpolantWithoutConflict(t *testing.T) {
	s := NewInterpolating(term.NewStore())
	_, err := s.GetInterpolant(interpolation.NewMask(0), nil)
	assert.ErrorIs(t, err, ErrNoConflict)
}
