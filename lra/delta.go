package lra

import (
	"fmt"
	"math/big"
)

// A Delta is a value r + d*δ, δ being an infinitesimal positive quantity.
// Strict bounds are encoded with a non-null d part: x < c becomes x <= c - δ.
// Deltas are immutable: every operation allocates a fresh value.
type Delta struct {
	R *big.Rat
	D *big.Rat
}

// DeltaOf returns r + d*δ.
func DeltaOf(r, d *big.Rat) Delta {
	return Delta{R: new(big.Rat).Set(r), D: new(big.Rat).Set(d)}
}

// Rat returns r + 0*δ.
func Rat(r *big.Rat) Delta {
	return DeltaOf(r, new(big.Rat))
}

var zeroDelta = Delta{R: new(big.Rat), D: new(big.Rat)}

// Add returns a+b.
func (a Delta) Add(b Delta) Delta {
	return Delta{R: new(big.Rat).Add(a.R, b.R), D: new(big.Rat).Add(a.D, b.D)}
}

// Sub returns a-b.
func (a Delta) Sub(b Delta) Delta {
	return Delta{R: new(big.Rat).Sub(a.R, b.R), D: new(big.Rat).Sub(a.D, b.D)}
}

// Mul returns k*a.
func (a Delta) Mul(k *big.Rat) Delta {
	return Delta{R: new(big.Rat).Mul(a.R, k), D: new(big.Rat).Mul(a.D, k)}
}

// Quo returns a/k. k must not be null.
func (a Delta) Quo(k *big.Rat) Delta {
	return Delta{R: new(big.Rat).Quo(a.R, k), D: new(big.Rat).Quo(a.D, k)}
}

// Cmp compares a and b lexicographically, which is their order for any
// small enough positive δ.
func (a Delta) Cmp(b Delta) int {
	if c := a.R.Cmp(b.R); c != 0 {
		return c
	}
	return a.D.Cmp(b.D)
}

// Sign returns the sign of a.
func (a Delta) Sign() int {
	return a.Cmp(zeroDelta)
}

// Strict is true iff a has a non-null δ part.
func (a Delta) Strict() bool {
	return a.D.Sign() != 0
}

// Concrete returns r + d*delta.
func (a Delta) Concrete(delta *big.Rat) *big.Rat {
	res := new(big.Rat).Mul(a.D, delta)
	return res.Add(res, a.R)
}

func (a Delta) String() string {
	switch a.D.Sign() {
	case 0:
		return a.R.RatString()
	case 1:
		return fmt.Sprintf("%s+%sδ", a.R.RatString(), a.D.RatString())
	default:
		return fmt.Sprintf("%s-%sδ", a.R.RatString(), new(big.Rat).Neg(a.D).RatString())
	}
}
