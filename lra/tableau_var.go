package lra

import (
	"fmt"

	"github.com/crillab/gophersmt/term"
)

// RowRef names the content of a row of the tableau.
type RowRef int32

// OccListRef names the list of rows a non-basic variable occurs in.
type OccListRef int32

// BoundListRef names the bound list of a variable.
type BoundListRef int32

const (
	// RowUndef is the RowRef of no row.
	RowUndef = RowRef(-1)
	// OccListUndef is the OccListRef of no occurrence list.
	OccListUndef = OccListRef(-1)
	// BoundListUndef is the BoundListRef of no bound list.
	BoundListUndef = BoundListRef(-1)
)

// Role is either Basic or NonBasic.
// Fields that only make sense for one status can only be reached through it.
type Role interface {
	isRole()
}

// Basic is the status of a variable defined by a row of the tableau.
type Basic struct {
	RowID int
	Row   RowRef
}

// NonBasic is the status of a column variable.
type NonBasic struct {
	ColID int
	Occs  OccListRef
}

func (Basic) isRole()    {}
func (NonBasic) isRole() {}

// A TableauVar is a row or a column of the Simplex tableau.
type TableauVar struct {
	id       int
	role     Role
	lb, ub   int // Indices of the current bounds in the bound list
	bounds   BoundListRef
	origin   term.Ref // Term of the variable in the SMT world
	released bool
}

// ID returns the unique id of v.
func (v *TableauVar) ID() int { return v.id }

// Origin returns the term v stands for.
func (v *TableauVar) Origin() term.Ref { return v.origin }

// IsBasic is true iff v is currently defined by a row.
func (v *TableauVar) IsBasic() bool {
	_, ok := v.role.(Basic)
	return ok
}

// Row returns the basic status of v, if v is basic.
func (v *TableauVar) Row() (Basic, bool) {
	b, ok := v.role.(Basic)
	return b, ok
}

// Column returns the non-basic status of v, if v is non-basic.
func (v *TableauVar) Column() (NonBasic, bool) {
	nb, ok := v.role.(NonBasic)
	return nb, ok
}

// MustRow is like Row, but panics if v is not basic.
func (v *TableauVar) MustRow() Basic {
	b, ok := v.role.(Basic)
	if !ok {
		panic(fmt.Sprintf("lra: row access on non-basic variable %d", v.id))
	}
	return b
}

// MustColumn is like Column, but panics if v is basic.
func (v *TableauVar) MustColumn() NonBasic {
	nb, ok := v.role.(NonBasic)
	if !ok {
		panic(fmt.Sprintf("lra: column access on basic variable %d", v.id))
	}
	return nb
}

// MakeBasic turns v into a basic variable, dropping its column data.
func (v *TableauVar) MakeBasic(b Basic) {
	v.role = b
}

// MakeNonBasic turns v into a non-basic variable, dropping its row data.
func (v *TableauVar) MakeNonBasic(nb NonBasic) {
	v.role = nb
}

// Bounds returns the bound list of v.
func (v *TableauVar) Bounds() BoundListRef { return v.bounds }

// SetBounds sets the bound list of v and resets the current bounds to the
// given sentinel indices.
func (v *TableauVar) SetBounds(l BoundListRef, lb, ub int) {
	v.bounds = l
	v.lb = lb
	v.ub = ub
}

// LB returns the index of the current lower bound.
func (v *TableauVar) LB() int { return v.lb }

// UB returns the index of the current upper bound.
func (v *TableauVar) UB() int { return v.ub }

// TightenLower moves the lower bound to index i, the bound list being sorted
// by increasing value. If the current lower bound is already at least as
// tight, nothing happens. It returns the previous index and whether the
// bound changed.
func (v *TableauVar) TightenLower(i int) (prev int, changed bool) {
	prev = v.lb
	if i <= v.lb {
		return prev, false
	}
	v.lb = i
	return prev, true
}

// TightenUpper moves the upper bound to index i. See TightenLower.
func (v *TableauVar) TightenUpper(i int) (prev int, changed bool) {
	prev = v.ub
	if i >= v.ub {
		return prev, false
	}
	v.ub = i
	return prev, true
}

// LoosenLower restores a lower bound index previously returned by
// TightenLower.
func (v *TableauVar) LoosenLower(prev int) {
	v.lb = prev
}

// LoosenUpper restores an upper bound index previously returned by
// TightenUpper.
func (v *TableauVar) LoosenUpper(prev int) {
	v.ub = prev
}
