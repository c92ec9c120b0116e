package interpolation

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"

	"github.com/crillab/gophersmt/term"
)

// Algorithm selects how an interpolant is built from a Farkas certificate.
type Algorithm byte

const (
	// Canonical sums the A part of the certificate.
	Canonical = Algorithm(iota)
	// Dual negates the sum of the B part of the certificate.
	Dual
	// Flexible picks a bound between the canonical and the dual ones.
	Flexible
	// Decomposed splits the A part into independent sums.
	Decomposed
	// DualDecomposed negates the decomposition of the B part.
	DualDecomposed
)

var algorithmNames = []string{"canonical", "dual", "flexible", "decomposed", "dual-decomposed"}

func (a Algorithm) String() string {
	if int(a) >= len(algorithmNames) {
		panic("invalid algorithm")
	}
	return algorithmNames[a]
}

// ParseAlgorithm returns the algorithm called name.
func ParseAlgorithm(name string) (Algorithm, error) {
	for i, n := range algorithmNames {
		if strings.EqualFold(n, name) {
			return Algorithm(i), nil
		}
	}
	return 0, errors.Errorf("unknown interpolation algorithm %q (expected one of %s)", name, strings.Join(algorithmNames, ", "))
}

// An Interpolator builds interpolants of an unsatisfiable conjunction of
// arithmetic literals.
type Interpolator interface {
	Interpolant() term.Ref
	DualInterpolant() term.Ref
	FlexibleInterpolant(alpha *big.Rat) (term.Ref, error)
	DecomposedInterpolant() term.Ref
	DualDecomposedInterpolant() term.Ref
}

// Compute returns the interpolant built by alg. alpha is only used by
// Flexible.
func Compute(itp Interpolator, alg Algorithm, alpha *big.Rat) (term.Ref, error) {
	switch alg {
	case Canonical:
		return itp.Interpolant(), nil
	case Dual:
		return itp.DualInterpolant(), nil
	case Flexible:
		return itp.FlexibleInterpolant(alpha)
	case Decomposed:
		return itp.DecomposedInterpolant(), nil
	case DualDecomposed:
		return itp.DualDecomposedInterpolant(), nil
	default:
		return term.Undef, errors.Errorf("invalid interpolation algorithm %d", alg)
	}
}
