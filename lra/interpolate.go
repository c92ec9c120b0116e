package lra

import (
	"github.com/pkg/errors"

	"github.com/crillab/gophersmt/interpolation"
	"github.com/crillab/gophersmt/term"
)

// ErrMixedConflict is returned when interpolating a conflict that mixes
// strengthened integer atoms and negated real atoms.
var ErrMixedConflict = errors.New("conflict mixes integer and real negated atoms")

// GetInterpolant returns an interpolant of the last conflict, the A part
// being the partitions of mask. Colors of the explanation atoms are derived
// from their occurrences. It is only valid right after Check or Assert
// returned a conflict.
func (s *Solver) GetInterpolant(mask interpolation.Mask, occ interpolation.Occurrences, alg interpolation.Algorithm) (term.Ref, error) {
	lits, coeffs, err := s.Explanation()
	if err != nil {
		return term.Undef, err
	}
	labels := occ.Labels(mask)
	var itp interpolation.Interpolator
	if s.strengthened {
		for _, l := range lits {
			if l.Sign == term.LFalse && !s.bs.get(s.atoms[l.Term].onFalse).Strengthened {
				return term.Undef, errors.Wrapf(ErrMixedConflict, "%s", s.store.LiteralString(l))
			}
		}
		itp, err = interpolation.NewLIA(s.store, lits, coeffs, labels)
	} else {
		itp, err = interpolation.NewFarkas(s.store, lits, coeffs, labels)
	}
	if err != nil {
		return term.Undef, errors.Wrap(err, "cannot interpolate arithmetic conflict")
	}
	res, err := interpolation.Compute(itp, alg, s.alpha)
	if err != nil {
		return term.Undef, err
	}
	s.log.WithField("algorithm", alg).Debugf("lra interpolant: %s", s.store.String(res))
	return res, nil
}
