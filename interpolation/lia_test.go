package interpolation

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crillab/gophersmt/term"
)

func TestStrengthenSwapsLabels(t *testing.T) {
	s := term.NewStore()
	x := s.Var("x", term.Int)
	y := s.Var("y", term.Int)
	xy := lin(s, 1, x, -1, y)
	yx := lin(s, -1, x, 1, y)
	a := s.Leq(r(0, 1), xy)
	b := s.Leq(r(1, 1), yx)
	lits, labels, err := Strengthen(s,
		[]term.Literal{term.Neg(a), term.Neg(b)},
		Labels{a: ColorA, b: ColorB, x: ColorAB, y: ColorAB},
	)
	require.NoError(t, err)
	// not(0 <= x-y) becomes 1 <= y-x, and not(1 <= y-x) becomes 0 <= x-y.
	assert.Equal(t, []term.Literal{term.Pos(b), term.Pos(a)}, lits)
	assert.Equal(t, Labels{b: ColorA, a: ColorB, x: ColorAB, y: ColorAB}, labels)
}

func TestStrengthenPositiveIsNoop(t *testing.T) {
	s := term.NewStore()
	x := s.Var("x", term.Int)
	a := s.Leq(r(1, 1), x)
	b := s.Leq(r(0, 1), s.Negate(x))
	in := []term.Literal{term.Pos(a), term.Pos(b)}
	labels := Labels{a: ColorA, b: ColorB}
	lits, relabeled, err := Strengthen(s, in, labels)
	require.NoError(t, err)
	assert.Equal(t, in, lits)
	assert.Equal(t, labels, relabeled)

	coeffs := []*big.Rat{r(1, 1), r(1, 1)}
	lia, err := NewLIA(s, in, coeffs, labels)
	require.NoError(t, err)
	f, err := NewFarkas(s, in, coeffs, labels)
	require.NoError(t, err)
	assert.Equal(t, f.Interpolant(), lia.Interpolant())
	assert.Equal(t, f.DualInterpolant(), lia.DualInterpolant())
	assert.Equal(t, f.DecomposedInterpolant(), lia.DecomposedInterpolant())
}

func TestStrengthenDuplicate(t *testing.T) {
	s := term.NewStore()
	x := s.Var("x", term.Int)
	y := s.Var("y", term.Int)
	a := s.Leq(r(0, 1), lin(s, 1, x, -1, y))
	b := s.Leq(r(1, 1), lin(s, -1, x, 1, y))
	_, _, err := Strengthen(s,
		[]term.Literal{term.Neg(a), term.Pos(b)},
		Labels{a: ColorA, b: ColorB},
	)
	assert.ErrorIs(t, err, ErrDuplicateStrengthened)
}

func TestLIAInterpolant(t *testing.T) {
	// A: x - y < 0, B: y - x < 1. Over the integers, A gives y - x >= 1.
	s := term.NewStore()
	x := s.Var("x", term.Int)
	y := s.Var("y", term.Int)
	a := s.Leq(r(0, 1), lin(s, 1, x, -1, y))
	b := s.Leq(r(1, 1), lin(s, -1, x, 1, y))
	lia, err := NewLIA(s,
		[]term.Literal{term.Neg(a), term.Neg(b)},
		[]*big.Rat{r(1, 1), r(1, 1)},
		Labels{a: ColorA, b: ColorB},
	)
	require.NoError(t, err)
	assert.Equal(t, b, lia.Interpolant())
	assert.Equal(t, s.Not(a), lia.DualInterpolant())
	assert.Len(t, lia.Literals(), 2)
	assert.Equal(t, ColorA, lia.Labels()[b])

	// The unstrengthened explanation has no real Farkas certificate.
	_, err = NewFarkas(s,
		[]term.Literal{term.Neg(a), term.Neg(b)},
		[]*big.Rat{r(1, 1), r(1, 1)},
		Labels{a: ColorA, b: ColorB},
	)
	assert.ErrorIs(t, err, ErrInvalidCertificate)
}
