package interpolation

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/crillab/gophersmt/term"
)

// Color tells on which side of an interpolation problem a term occurs.
type Color uint8

const (
	// ColorNone is the color of a term occurring nowhere.
	ColorNone = Color(0)
	// ColorA is the color of terms occurring only in A.
	ColorA = Color(1)
	// ColorB is the color of terms occurring only in B.
	ColorB = Color(2)
	// ColorAB is the color of terms occurring in both A and B.
	ColorAB = ColorA | ColorB
)

func (c Color) String() string {
	switch c {
	case ColorNone:
		return "none"
	case ColorA:
		return "A"
	case ColorB:
		return "B"
	case ColorAB:
		return "AB"
	default:
		panic("invalid color")
	}
}

// ASide is true iff terms of color c are counted in the A part of an
// interpolant. AB terms belong to A.
func (c Color) ASide() bool {
	return c&ColorA != 0
}

// Labels associates a color to terms.
type Labels map[term.Ref]Color

// A Mask is a set of partition indices, the ones forming the A part of an
// interpolation problem. The zero value is the empty set.
type Mask struct {
	bits *big.Int
}

// NewMask returns the mask containing the given partitions.
func NewMask(parts ...int) Mask {
	var m Mask
	for _, p := range parts {
		m = m.With(p)
	}
	return m
}

func (m Mask) int() *big.Int {
	if m.bits == nil {
		return new(big.Int)
	}
	return m.bits
}

// With returns a mask containing the partitions of m and part.
func (m Mask) With(part int) Mask {
	if part < 0 {
		panic(fmt.Sprintf("invalid partition index %d", part))
	}
	return Mask{bits: new(big.Int).SetBit(m.int(), part, 1)}
}

// Has is true iff part belongs to m.
func (m Mask) Has(part int) bool {
	return part >= 0 && m.int().Bit(part) == 1
}

// Empty is true iff m contains no partition.
func (m Mask) Empty() bool {
	return m.int().Sign() == 0
}

// Color returns the color of a term occurring in the partitions of occ,
// m being the A part.
func (m Mask) Color(occ Mask) Color {
	var c Color
	if new(big.Int).And(occ.int(), m.int()).Sign() != 0 {
		c |= ColorA
	}
	if new(big.Int).AndNot(occ.int(), m.int()).Sign() != 0 {
		c |= ColorB
	}
	return c
}

func (m Mask) String() string {
	var parts []string
	b := m.int()
	for i := 0; i < b.BitLen(); i++ {
		if b.Bit(i) == 1 {
			parts = append(parts, fmt.Sprint(i))
		}
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Occurrences associates to terms the set of partitions they occur in.
type Occurrences map[term.Ref]Mask

// Collect returns the occurrences of every subterm of the given partitions,
// partition i being partitions[i].
func Collect(store *term.Store, partitions []term.Ref) Occurrences {
	occ := make(Occurrences)
	for i, p := range partitions {
		store.Walk(p, func(t term.Ref) {
			occ[t] = occ[t].With(i)
		})
	}
	return occ
}

// Labels returns the colors of the terms of occ, mask being the A part.
func (occ Occurrences) Labels(mask Mask) Labels {
	res := make(Labels, len(occ))
	for t, o := range occ {
		res[t] = mask.Color(o)
	}
	return res
}
