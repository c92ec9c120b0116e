package interpolation

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/crillab/gophersmt/term"
)

// ErrDuplicateStrengthened is returned when two explanation literals are
// rewritten into the same strengthened atom.
var ErrDuplicateStrengthened = errors.New("duplicate strengthened atom")

// LIA builds interpolants of integer conflicts. Negated atoms over integer
// terms, not(c <= t), are first strengthened to -(c-1) <= -t; the rewritten
// explanation is then handed to a Farkas interpolator.
type LIA struct {
	*Farkas
	lits   []term.Literal
	labels Labels
}

// Strengthen returns lits where every negative literal is replaced by its
// integer strengthening, and labels where the color of each negative
// literal's atom is moved to its strengthened atom.
// Colors of terms that are not arithmetic atoms are kept.
func Strengthen(store *term.Store, lits []term.Literal, labels Labels) ([]term.Literal, Labels, error) {
	res := make([]term.Literal, len(lits))
	relabeled := make(Labels, len(labels))
	for t, c := range labels {
		if store.Kind(t) != term.KindLeq {
			relabeled[t] = c
		}
	}
	for i, l := range lits {
		c, ok := labels[l.Term]
		if !ok {
			return nil, nil, errors.Wrapf(ErrMissingLabel, "no color for %s", store.String(l.Term))
		}
		nl := l
		if l.Sign == term.LFalse {
			k, t := store.LeqParts(l.Term)
			k.Sub(big.NewRat(1, 1), k)
			nl = term.Pos(store.Leq(k, store.Negate(t)))
		}
		if _, dup := relabeled[nl.Term]; dup {
			return nil, nil, errors.Wrapf(ErrDuplicateStrengthened, "%s", store.String(nl.Term))
		}
		relabeled[nl.Term] = c
		res[i] = nl
	}
	return res, relabeled, nil
}

// NewLIA strengthens the explanation and returns an interpolator for it.
// coeffs is a Farkas certificate of the strengthened explanation.
func NewLIA(store *term.Store, lits []term.Literal, coeffs []*big.Rat, labels Labels) (*LIA, error) {
	strengthened, relabeled, err := Strengthen(store, lits, labels)
	if err != nil {
		return nil, err
	}
	f, err := NewFarkas(store, strengthened, coeffs, relabeled)
	if err != nil {
		return nil, errors.Wrap(err, "cannot interpolate strengthened explanation")
	}
	return &LIA{Farkas: f, lits: strengthened, labels: relabeled}, nil
}

// Literals returns the strengthened explanation.
func (l *LIA) Literals() []term.Literal {
	return l.lits
}

// Labels returns the colors of the strengthened explanation.
func (l *LIA) Labels() Labels {
	return l.labels
}
