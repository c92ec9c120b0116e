package lra

import (
	"fmt"

	"github.com/crillab/gophersmt/term"
)

// This file deals with the allocation of tableau variables.
// Variables are stored in a single growable slice and named by their index,
// so that handles stored in rows, columns, bound trails and explanations stay
// valid when the slice is reallocated.

const (
	initNbVarsAlloc = 64 // How many variables are reserved at first?
)

// VarRef is a stable handle to a TableauVar.
type VarRef uint32

// VarUndef is the handle of no variable at all.
const VarUndef = VarRef(^uint32(0))

// Arena is the sole owner of all tableau variables.
type Arena struct {
	vars    []TableauVar // Indexed by VarRef
	free    []VarRef     // Released slots, reused LIFO
	nbAlloc int          // How many variables were ever allocated
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{vars: make([]TableauVar, 0, initNbVarsAlloc)}
}

// Alloc returns the handle of a fresh non-basic variable standing for origin.
// A released slot is reused if possible; otherwise the backing storage grows
// geometrically. Previously issued handles are never invalidated.
func (a *Arena) Alloc(origin term.Ref) VarRef {
	v := TableauVar{
		id:     a.nbAlloc,
		origin: origin,
		role:   NonBasic{ColID: -1, Occs: OccListUndef},
		bounds: BoundListUndef,
	}
	a.nbAlloc++
	if n := len(a.free); n > 0 {
		ref := a.free[n-1]
		a.free = a.free[:n-1]
		a.vars[ref] = v
		return ref
	}
	a.vars = append(a.vars, v)
	return VarRef(len(a.vars) - 1)
}

// Get returns the variable named by ref. The pointer is only valid until the
// next call to Alloc; handles, not pointers, must be stored.
// It panics if ref was never issued or was released.
func (a *Arena) Get(ref VarRef) *TableauVar {
	if int(ref) >= len(a.vars) {
		panic(fmt.Sprintf("lra: invalid variable handle %d", ref))
	}
	v := &a.vars[ref]
	if v.released {
		panic(fmt.Sprintf("lra: use of released variable handle %d", ref))
	}
	return v
}

// Free marks the slot of ref as reusable. Other handles stay valid.
func (a *Arena) Free(ref VarRef) {
	v := a.Get(ref)
	v.released = true
	a.free = append(a.free, ref)
}

// Count returns the total number of allocations ever made. It is an upper
// bound for the ids of the variables, useful to size auxiliary tables.
func (a *Arena) Count() int {
	return a.nbAlloc
}

// Cap returns the number of slots, i.e an upper bound for the handles.
func (a *Arena) Cap() int {
	return len(a.vars)
}

// Live returns the number of variables that were not released.
func (a *Arena) Live() int {
	return len(a.vars) - len(a.free)
}

// Reset releases every variable at once.
func (a *Arena) Reset() {
	a.vars = a.vars[:0]
	a.free = a.free[:0]
	a.nbAlloc = 0
}

// Each calls f on every live variable, by increasing handle.
func (a *Arena) Each(f func(ref VarRef, v *TableauVar)) {
	for i := range a.vars {
		if !a.vars[i].released {
			f(VarRef(i), &a.vars[i])
		}
	}
}
