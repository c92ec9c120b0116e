/*
Package interpolation computes Craig interpolants of unsatisfiable
conjunctions of linear arithmetic literals.

A problem is split into partitions; a Mask selects the partitions forming
the A part, the other ones forming B. Terms are colored A, B or AB depending
on the parts they occur in (see Collect and Occurrences.Labels).

Given an explanation, i.e an unsatisfiable conjunction of literals, and a
Farkas certificate for it, a Farkas interpolator builds a formula I such
that A implies I and I and B are contradictory. Several interpolants can be
built from the same certificate:

    canonical        the weighted sum of the A literals
    dual             the negation of the weighted sum of the B literals
    flexible         a bound chosen between the two previous ones
    decomposed       a conjunction of independent sums of A literals
    dual-decomposed  the negation of a conjunction of sums of B literals

Literals colored AB are always counted in A.

Integer conflicts rely on strengthened negated atoms: not(c <= t) is read
as -(c-1) <= -t. LIA rewrites such explanations before interpolating them.
*/
package interpolation
