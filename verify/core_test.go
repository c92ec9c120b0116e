package verify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crillab/gophersmt/term"
)

// x >= 1, x <= 0, y >= 0 and x <= 5: the first two form the only core.
func noisy(st *term.Store) (lits, core []term.Literal) {
	x, y := st.Var("x", term.Real), st.Var("y", term.Real)
	ge1 := term.Pos(st.Leq(r(1), x))
	le0 := term.Pos(st.Leq(r(0), st.Negate(x)))
	lits = []term.Literal{
		term.Pos(st.Leq(r(0), y)),
		ge1,
		term.Pos(st.Leq(r(-5), st.Negate(x))),
		le0,
	}
	return lits, []term.Literal{ge1, le0}
}

func TestCores(t *testing.T) {
	for name, method := range map[string]func(*Verifier, []term.Literal) ([]term.Literal, error){
		"deletion":  (*Verifier).CoreDeletion,
		"insertion": (*Verifier).CoreInsertion,
	} {
		t.Run(name, func(t *testing.T) {
			st := term.NewStore()
			v := New(st, nil)
			lits, want := noisy(st)
			core, err := method(v, lits)
			require.NoError(t, err)
			assert.ElementsMatch(t, want, core)
			assert.Positive(t, v.Stats.NbCoreChecks)

			_, err = method(v, lits[:2])
			assert.ErrorIs(t, err, ErrSatisfiable)
		})
	}
}

func TestCoreWithEqualities(t *testing.T) {
	st := term.NewStore()
	a, b, c, d := st.Var("a", term.U), st.Var("b", term.U), st.Var("c", term.U), st.Var("d", term.U)
	lits := []term.Literal{
		term.Pos(st.Eq(a, b)),
		term.Pos(st.Eq(c, d)),
		term.Pos(st.Eq(b, c)),
		term.Neg(st.Eq(a, d)),
		term.Neg(st.Eq(a, st.Var("e", term.U))),
	}
	core, err := New(st, nil).CoreDeletion(lits)
	require.NoError(t, err)
	assert.ElementsMatch(t, lits[:4], core)
}

func TestMinimalConflicts(t *testing.T) {
	st := term.NewStore()
	v := New(st, nil, WithMinimalConflicts())
	lits, _ := noisy(st)
	fs := make([]term.Ref, len(lits))
	for i, l := range lits {
		fs[i] = st.LiteralTerm(l)
	}
	sat, err := v.Satisfiable(st.And(fs...))
	require.NoError(t, err)
	assert.False(t, sat)
	assert.Equal(t, 1, v.Stats.NbConflicts)
}

func ExampleVerifier_CoreDeletion() {
	st := term.NewStore()
	lits, _ := noisy(st)
	core, err := New(st, nil).CoreDeletion(lits)
	if err != nil {
		fmt.Printf("could not compute core: %v", err)
		return
	}
	for _, l := range core {
		fmt.Println(st.String(st.LiteralTerm(l)))
	}
	// Output:
	// (<= 1 x)
	// (<= 0 (+ (* (- 1) x)))
}
