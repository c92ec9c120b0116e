package theory

import (
	"math/big"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crillab/gophersmt/config"
	"github.com/crillab/gophersmt/interpolation"
	"github.com/crillab/gophersmt/lra"
	"github.com/crillab/gophersmt/term"
)

func r(a int64) *big.Rat { return big.NewRat(a, 1) }

func defaults() config.Interpolation {
	return config.Default().Interpolation
}

func TestSchedule(t *testing.T) {
	st := term.NewStore()
	assert.Equal(t, []SolverID{LRA, UF}, New(st, defaults()).Schedule())
	h, err := NewInterpolating(st, defaults())
	require.NoError(t, err)
	assert.Equal(t, []SolverID{LRA, UF}, h.Schedule())
	assert.Equal(t, "lra", LRA.String())
	assert.Equal(t, "uf", UF.String())
}

func TestBuild(t *testing.T) {
	st := term.NewStore()
	cfg := defaults()
	th, err := Build(st, cfg)
	require.NoError(t, err)
	_, ok := th.(*InterpolatingHandler)
	assert.False(t, ok)

	cfg.Produce = true
	cfg.Algorithm = "dual"
	th, err = Build(st, cfg)
	require.NoError(t, err)
	ih, ok := th.(*InterpolatingHandler)
	require.True(t, ok)
	assert.Equal(t, interpolation.Dual, ih.Algorithm())

	cfg.Algorithm = "unknown"
	_, err = Build(st, cfg)
	assert.Error(t, err)
}

func TestRouting(t *testing.T) {
	st := term.NewStore()
	h := New(st, defaults())
	x := st.Var("x", term.Real)
	a := st.Var("a", term.U)
	require.NoError(t, h.Register(st.Leq(r(0), x)))
	require.NoError(t, h.Register(st.Eq(a, st.Var("b", term.U))))
	assert.True(t, h.UF().Knows(a))
	assert.ErrorIs(t, h.Register(st.And(st.Leq(r(0), x), st.Eq(a, st.Var("b", term.U)))), ErrUnsupportedAtom)
	assert.Panics(t, func() { h.Assert(term.Pos(st.True())) })
	_, err := h.Conflict()
	assert.ErrorIs(t, err, ErrNoConflict)
}

// x = 1 and y = 1 by their bounds, f(x) != f(y).
func combined(st *term.Store) (lits []term.Literal, fxy term.Ref) {
	x := st.Var("x", term.Real)
	y := st.Var("y", term.Real)
	fxy = st.Eq(st.App("f", term.U, x), st.App("f", term.U, y))
	lits = []term.Literal{term.Neg(fxy)}
	for _, v := range []term.Ref{x, y} {
		lits = append(lits,
			term.Pos(st.Leq(r(1), v)),
			term.Pos(st.Leq(r(-1), st.Negate(v))),
		)
	}
	return lits, fxy
}

func TestArithmeticEqualitiesReachUF(t *testing.T) {
	st := term.NewStore()
	h := New(st, defaults())
	lits, fxy := combined(st)
	h.Push()
	for _, l := range lits {
		require.True(t, h.Assert(l))
	}
	require.Equal(t, lra.Unsat, h.Check())
	assert.Equal(t, UF, h.Last())
	conflict, err := h.Conflict()
	require.NoError(t, err)
	assert.ElementsMatch(t, lits, conflict)
	assert.Equal(t, term.Neg(fxy), conflict[0])

	h.Pop()
	assert.Equal(t, NoSolver, h.Last())
	require.Equal(t, lra.Sat, h.Check())
}

func TestArithmeticConflict(t *testing.T) {
	st := term.NewStore()
	x := st.Var("x", term.Real)
	h, err := NewInterpolating(st, defaults())
	require.NoError(t, err)
	ge := st.Leq(r(1), x)
	le := st.Leq(r(0), st.Negate(x))
	occ := interpolation.Collect(st, []term.Ref{ge, le})
	require.True(t, h.Assert(term.Pos(ge)))
	assert.False(t, h.Assert(term.Pos(le)))
	assert.Equal(t, LRA, h.Last())
	itp, err := h.GetInterpolant(interpolation.NewMask(0), occ)
	require.NoError(t, err)
	assert.Equal(t, ge, itp)
}

func TestEqualityConflictInterpolant(t *testing.T) {
	st := term.NewStore()
	a, b, c := st.Var("a", term.U), st.Var("b", term.U), st.Var("c", term.U)
	ab, bc, ac := st.Eq(a, b), st.Eq(b, c), st.Eq(a, c)
	occ := interpolation.Collect(st, []term.Ref{st.And(ab, bc), st.Not(ac)})
	h, err := NewInterpolating(st, defaults())
	require.NoError(t, err)
	for _, l := range []term.Literal{term.Pos(ab), term.Pos(bc), term.Neg(ac)} {
		require.True(t, h.Assert(l))
	}
	require.Equal(t, lra.Unsat, h.Check())
	assert.Equal(t, UF, h.Last())
	itp, err := h.GetInterpolant(interpolation.NewMask(0), occ)
	require.NoError(t, err)
	assert.Equal(t, ac, itp)
}

func TestGetInterpolantWithoutConflict(t *testing.T) {
	h, err := NewInterpolating(term.NewStore(), defaults())
	require.NoError(t, err)
	require.Equal(t, lra.Sat, h.Check())
	_, err = h.GetInterpolant(interpolation.NewMask(0), nil)
	assert.ErrorIs(t, err, ErrNoConflict)
}

// x = y, x <= 0 and y >= 1.
func equalButApart(st *term.Store) (eq, le, ge term.Ref) {
	x, y := st.Var("x", term.Real), st.Var("y", term.Real)
	return st.Eq(x, y), st.Leq(r(0), st.Negate(x)), st.Leq(r(1), y)
}

func TestArithmeticEqualityReachesLRA(t *testing.T) {
	st := term.NewStore()
	h := New(st, defaults())
	eq, le, ge := equalButApart(st)
	lits := []term.Literal{term.Pos(eq), term.Pos(le), term.Pos(ge)}
	h.Push()
	for _, l := range lits {
		h.Assert(l)
	}
	require.Equal(t, lra.Unsat, h.Check())
	assert.Equal(t, LRA, h.Last())
	conflict, err := h.Conflict()
	require.NoError(t, err)
	assert.ElementsMatch(t, lits, conflict)

	h.Pop()
	h.Push()
	require.True(t, h.Assert(term.Neg(eq)))
	require.True(t, h.Assert(term.Pos(le)))
	require.True(t, h.Assert(term.Pos(ge)))
	assert.Equal(t, lra.Sat, h.Check())
	h.Pop()

	// The inequalities of the equality are gone with the pop.
	require.True(t, h.Assert(term.Pos(le)))
	require.True(t, h.Assert(term.Pos(ge)))
	assert.Equal(t, lra.Sat, h.Check())
}

func TestArithmeticEqualityInterpolant(t *testing.T) {
	st := term.NewStore()
	eq, le, ge := equalButApart(st)
	occ := interpolation.Collect(st, []term.Ref{st.And(eq, le), ge})
	h, err := NewInterpolating(st, defaults())
	require.NoError(t, err)
	for _, l := range []term.Literal{term.Pos(eq), term.Pos(le), term.Pos(ge)} {
		h.Assert(l)
	}
	require.Equal(t, lra.Unsat, h.Check())
	itp, err := h.GetInterpolant(interpolation.NewMask(0), occ)
	require.NoError(t, err)
	require.Equal(t, term.KindLeq, st.Kind(itp))
	st.Leaves(itp, func(l term.Ref) {
		assert.Equal(t, "y", st.Name(l))
	})

	// I and B are inconsistent, A and not I too.
	for _, lits := range [][]term.Literal{
		{term.Pos(itp), term.Pos(ge)},
		{term.Pos(eq), term.Pos(le), term.Neg(itp)},
	} {
		h := New(st, defaults())
		for _, l := range lits {
			h.Assert(l)
		}
		assert.Equal(t, lra.Unsat, h.Check())
	}
}

func TestConstantEquality(t *testing.T) {
	st := term.NewStore()
	h := New(st, defaults())
	err := h.Register(st.Eq(st.Const(r(1)), st.Const(r(2))))
	assert.ErrorIs(t, err, ErrUnsupportedAtom)
}

func TestConflictSurvivesEqualities(t *testing.T) {
	st := term.NewStore()
	h := New(st, defaults())
	x := st.Var("x", term.Real)
	ge, le := st.Leq(r(1), x), st.Leq(r(0), st.Negate(x))
	require.True(t, h.Assert(term.Pos(ge)))
	require.False(t, h.Assert(term.Pos(le)))
	assert.False(t, h.Assert(term.Pos(st.Eq(st.Var("a", term.U), st.Var("b", term.U)))))
	assert.Equal(t, LRA, h.Last())
	conflict, err := h.Conflict()
	require.NoError(t, err)
	assert.ElementsMatch(t, []term.Literal{term.Pos(ge), term.Pos(le)}, conflict)
}

func TestInvalidAlphaIsLogged(t *testing.T) {
	log, hook := test.NewNullLogger()
	cfg := defaults()
	cfg.Alpha = "two"
	New(term.NewStore(), cfg, WithLogger(log))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Error(t, hook.LastEntry().Data[logrus.ErrorKey].(error))
}
