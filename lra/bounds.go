package lra

import (
	"math/big"
	"sort"

	"github.com/crillab/gophersmt/term"
)

// BoundRef is a stable handle to a Bound.
type BoundRef int32

// A Bound is a candidate lower or upper bound for a variable.
// Each registered atom yields two bounds: the one enforced when the atom is
// asserted true, and the one enforced when it is asserted false.
type Bound struct {
	Value Delta
	Inf   int // -1 for -∞, +1 for +∞, 0 for a finite bound
	Upper bool
	Lit   term.Literal // Literal enforcing the bound; undefined for sentinels
	// Scale is the ratio between the bound inequality and the normalized
	// inequality of Lit: a coefficient λ on the bound is a coefficient
	// λ*Scale on the literal.
	Scale *big.Rat
	// Strengthened is true iff the bound is the integer strengthening of a
	// negated atom.
	Strengthened bool
	pos          int // Position in the bound list
}

// Sentinel is true for the infinite bounds ending every list.
func (b *Bound) Sentinel() bool {
	return b.Inf != 0
}

// cmpBound orders bounds by value; at equal values, lower bounds come first.
func cmpBound(a, b *Bound) int {
	if a.Inf != b.Inf {
		if a.Inf < b.Inf {
			return -1
		}
		return 1
	}
	if a.Inf != 0 {
		return 0
	}
	if c := a.Value.Cmp(b.Value); c != 0 {
		return c
	}
	switch {
	case a.Upper == b.Upper:
		return 0
	case a.Upper:
		return 1
	default:
		return -1
	}
}

// boundStore owns every bound and every bound list.
// A list is sorted by value, starts with -∞ and ends with +∞, so that the
// current bounds of a variable are indices that can be moved in O(1).
type boundStore struct {
	bounds []Bound
	lists  [][]BoundRef
}

// newList returns a fresh list holding only the two sentinels, with the
// indices of -∞ and +∞.
func (bs *boundStore) newList() (l BoundListRef, lb, ub int) {
	lo := bs.add(Bound{Inf: -1, Lit: term.Literal{Term: term.Undef}})
	hi := bs.add(Bound{Inf: 1, Upper: true, Lit: term.Literal{Term: term.Undef}})
	bs.bounds[lo].pos = 0
	bs.bounds[hi].pos = 1
	bs.lists = append(bs.lists, []BoundRef{lo, hi})
	return BoundListRef(len(bs.lists) - 1), 0, 1
}

func (bs *boundStore) add(b Bound) BoundRef {
	bs.bounds = append(bs.bounds, b)
	return BoundRef(len(bs.bounds) - 1)
}

func (bs *boundStore) get(ref BoundRef) *Bound {
	return &bs.bounds[ref]
}

// at returns the ith bound of list l.
func (bs *boundStore) at(l BoundListRef, i int) *Bound {
	return &bs.bounds[bs.lists[l][i]]
}

// refAt returns the handle of the ith bound of list l.
func (bs *boundStore) refAt(l BoundListRef, i int) BoundRef {
	return bs.lists[l][i]
}

// insert adds b to list l, keeping it sorted. Positions of the bounds that
// follow are shifted; callers holding indices must remap them through
// the handles.
func (bs *boundStore) insert(l BoundListRef, b Bound) BoundRef {
	ref := bs.add(b)
	list := bs.lists[l]
	nb := bs.get(ref)
	i := sort.Search(len(list), func(i int) bool {
		return cmpBound(bs.get(list[i]), nb) > 0
	})
	list = append(list, 0)
	copy(list[i+1:], list[i:])
	list[i] = ref
	for j := i; j < len(list); j++ {
		bs.bounds[list[j]].pos = j
	}
	bs.lists[l] = list
	return ref
}

func (bs *boundStore) reset() {
	bs.bounds = bs.bounds[:0]
	bs.lists = bs.lists[:0]
}
