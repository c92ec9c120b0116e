package share

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Var is a propositional variable of a solver instance. DIMACS variable n
// is Var n-1.
type Var int32

// Lit is a literal in the solver's compact encoding: twice its variable,
// plus one when negated. DIMACS literal -3 is Lit 5.
type Lit int32

// IntToLit converts a DIMACS literal. It panics on 0, the clause
// terminator, and on math.MinInt32, whose variable is out of range.
func IntToLit(i int32) Lit {
	if !ValidLit(i) {
		panic(fmt.Sprintf("share: %d is not a literal", i))
	}
	if i < 0 {
		return Var(-i - 1).Lit(true)
	}
	return Var(i - 1).Lit(false)
}

// ValidLit is true iff i is the DIMACS form of a literal.
func ValidLit(i int32) bool {
	return i != 0 && i != math.MinInt32
}

// Lit returns the literal of v, negated iff neg.
func (v Var) Lit(neg bool) Lit {
	l := Lit(v) << 1
	if neg {
		l |= 1
	}
	return l
}

// Var returns the variable of l.
func (l Lit) Var() Var {
	return Var(l >> 1)
}

// IsPositive is true iff l is not negated.
func (l Lit) IsPositive() bool {
	return l&1 == 0
}

// Int returns the DIMACS form of l.
func (l Lit) Int() int32 {
	n := int32(l.Var()) + 1
	if l.IsPositive() {
		return n
	}
	return -n
}

// Negation returns the opposite literal.
func (l Lit) Negation() Lit {
	return l ^ 1
}

// A Clause is a disjunction of literals exchanged between instances.
type Clause struct {
	lits []Lit
}

// NewClause wraps lits without copying them.
func NewClause(lits []Lit) *Clause {
	return &Clause{lits: lits}
}

// Len returns the number of literals of c.
func (c *Clause) Len() int {
	return len(c.lits)
}

// Sort sorts the literals of c in ascending order, so that equal clauses
// have equal encodings.
func (c *Clause) Sort() {
	sort.Slice(c.lits, func(i, j int) bool { return c.lits[i] < c.lits[j] })
}

// CNF returns a DIMACS CNF representation of the clause.
func (c *Clause) CNF() string {
	var sb strings.Builder
	for _, lit := range c.lits {
		fmt.Fprintf(&sb, "%d ", lit.Int())
	}
	sb.WriteString("0")
	return sb.String()
}
