package term

import (
	"fmt"
	"math/big"
)

// Ref identifies a node of a Store. Two Refs from the same store are equal
// iff they denote structurally equal terms.
type Ref int32

// Undef is the Ref of no term at all.
const Undef = Ref(-1)

// Kind is the head symbol class of a term.
type Kind byte

const (
	// KindTrue is the boolean constant true.
	KindTrue = Kind(iota)
	// KindFalse is the boolean constant false.
	KindFalse
	// KindConst is a rational numeral.
	KindConst
	// KindVar is a free constant symbol, of any sort.
	KindVar
	// KindApp is the application of an uninterpreted function symbol.
	KindApp
	// KindSum is a linear combination of at least two arithmetic leaves,
	// or of one leaf with a coefficient other than 1.
	KindSum
	// KindLeq is the atom "c <= t", c being a numeral and t a linear term.
	KindLeq
	// KindEq is an equality between two terms of the same sort.
	KindEq
	// KindNot is a boolean negation.
	KindNot
	// KindAnd is an n-ary conjunction.
	KindAnd
	// KindOr is an n-ary disjunction.
	KindOr
)

func (k Kind) String() string {
	switch k {
	case KindTrue:
		return "true"
	case KindFalse:
		return "false"
	case KindConst:
		return "const"
	case KindVar:
		return "var"
	case KindApp:
		return "app"
	case KindSum:
		return "sum"
	case KindLeq:
		return "leq"
	case KindEq:
		return "eq"
	case KindNot:
		return "not"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	default:
		panic("invalid kind")
	}
}

// Sort is the type of a term.
type Sort byte

const (
	// Bool is the sort of formulas.
	Bool = Sort(iota)
	// Real is the sort of rational arithmetic terms.
	Real
	// Int is the sort of integer arithmetic terms.
	Int
	// U is the uninterpreted sort.
	U
)

func (s Sort) String() string {
	switch s {
	case Bool:
		return "Bool"
	case Real:
		return "Real"
	case Int:
		return "Int"
	case U:
		return "U"
	default:
		panic("invalid sort")
	}
}

// Arith is true iff s is Real or Int.
func (s Sort) Arith() bool {
	return s == Real || s == Int
}

// A Monomial is a coefficient applied to an arithmetic leaf (a variable or
// an application of arithmetic sort).
type Monomial struct {
	Coeff *big.Rat
	Var   Ref
}

type node struct {
	kind   Kind
	sort   Sort
	name   string     // symbol name for vars and apps
	value  *big.Rat   // numeral value, or the constant of a leq atom
	args   []Ref      // children; leaves of a sum in ascending order
	coeffs []*big.Rat // coefficients of a sum, aligned with args
}

// LBool is a three-valued boolean.
type LBool int8

const (
	// LUndef is the undefined value.
	LUndef = LBool(0)
	// LTrue is the true value.
	LTrue = LBool(1)
	// LFalse is the false value.
	LFalse = LBool(-1)
)

func (b LBool) String() string {
	switch b {
	case LTrue:
		return "true"
	case LFalse:
		return "false"
	default:
		return "undef"
	}
}

// Negation returns the opposite value, LUndef being its own opposite.
func (b LBool) Negation() LBool {
	return -b
}

// A Literal is a term asserted with a polarity.
type Literal struct {
	Term Ref
	Sign LBool
}

// Pos returns the positive literal of t.
func Pos(t Ref) Literal {
	return Literal{Term: t, Sign: LTrue}
}

// Neg returns the negative literal of t.
func Neg(t Ref) Literal {
	return Literal{Term: t, Sign: LFalse}
}

// Negation returns the literal with the opposite polarity.
func (l Literal) Negation() Literal {
	return Literal{Term: l.Term, Sign: l.Sign.Negation()}
}

func (l Literal) String() string {
	return fmt.Sprintf("%d:%s", l.Term, l.Sign)
}
