package interpolation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crillab/gophersmt/term"
)

func TestMask(t *testing.T) {
	var zero Mask
	assert.True(t, zero.Empty())
	assert.False(t, zero.Has(0))

	m := NewMask(0, 2)
	assert.True(t, m.Has(0))
	assert.False(t, m.Has(1))
	assert.True(t, m.Has(2))
	assert.False(t, m.Has(-1))
	assert.Equal(t, "{0,2}", m.String())

	assert.Equal(t, ColorA, m.Color(NewMask(2)))
	assert.Equal(t, ColorB, m.Color(NewMask(1)))
	assert.Equal(t, ColorAB, m.Color(NewMask(1, 2)))
	assert.Equal(t, ColorNone, m.Color(Mask{}))
}

func TestWithDoesNotAlias(t *testing.T) {
	m := NewMask(0)
	m2 := m.With(1)
	assert.False(t, m.Has(1))
	assert.True(t, m2.Has(1))
}

func TestCollect(t *testing.T) {
	s := term.NewStore()
	x := s.Var("x", term.Real)
	y := s.Var("y", term.Real)
	z := s.Var("z", term.Real)
	p0 := s.And(s.Leq(r(0, 1), x), s.Leq(r(0, 1), y))
	p1 := s.Not(s.Leq(r(1, 1), lin(s, 1, y, 1, z)))
	occ := Collect(s, []term.Ref{p0, p1})
	labels := occ.Labels(NewMask(0))
	assert.Equal(t, ColorA, labels[x])
	assert.Equal(t, ColorAB, labels[y])
	assert.Equal(t, ColorB, labels[z])
	assert.Equal(t, ColorA, labels[p0])
	assert.True(t, labels[y].ASide())
	assert.False(t, labels[z].ASide())
}
