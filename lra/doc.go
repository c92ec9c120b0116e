/*
Package lra is a decision procedure for conjunctions of linear arithmetic
constraints over the rationals, based on an incremental Simplex method.

Atoms have the form c <= t, c being a rational constant and t a linear term
(see package term). Once registered, an atom can be asserted positively or
negatively; each assertion tightens a bound of a tableau variable. Check
then looks for an assignment satisfying every bound, pivoting with Bland's
rule.

Strict inequalities are handled with delta-rationals: t < c is the bound
t <= c - δ for an infinitesimal δ > 0, which is given a concrete value when
a model is built.

When an atom over integer variables with an integer constant is asserted
negatively, not(c <= t) is strengthened into t <= c-1. Nothing else is done
for integers: the procedure is incomplete for them.

When the constraints are contradictory, Explanation returns a subset of the
asserted literals along with Farkas coefficients proving the contradiction.
They can be turned into interpolants with GetInterpolant.

Assertions are undone with Push and Pop:

    s := lra.New(store)
    s.Assert(term.Pos(store.Leq(big.NewRat(1, 1), x)))
    s.Push()
    s.Assert(term.Neg(store.Leq(big.NewRat(1, 1), x)))
    // s.Check() == lra.Unsat
    s.Pop()
    // s.Check() == lra.Sat

Tableau variables live in an Arena and are named by stable handles.
*/
package lra
