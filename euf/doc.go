// Package euf decides conjunctions of equalities between uninterpreted terms
// by congruence closure, and interpolates their conflicts.
package euf
