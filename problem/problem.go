// Package problem reads partitioned conjunctions of constraints from YAML.
//
// A problem declares sorted variables and a list of partitions, each being
// a list of constraints:
//
//	variables:
//	  x: real
//	  n: int
//	  a: u
//	partitions:
//	  - - {terms: {x: "1", n: "-2"}, op: "<=", bound: "3"}
//	    - {equal: [a, b]}
//	  - - {terms: {x: "1"}, op: ">", bound: "7/2"}
//	    - {distinct: [a, b]}
package problem

import (
	"io"
	"math/big"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/crillab/gophersmt/term"
)

// A Constraint is either a linear constraint "terms op bound", or an
// equality or disequality between two uninterpreted variables.
type Constraint struct {
	Terms    map[string]string `yaml:"terms"`
	Op       string            `yaml:"op"`
	Bound    string            `yaml:"bound"`
	Equal    []string          `yaml:"equal"`
	Distinct []string          `yaml:"distinct"`
}

// A Problem is a sequence of partitions of constraints.
type Problem struct {
	Variables  map[string]string `yaml:"variables"`
	Partitions [][]Constraint    `yaml:"partitions"`
}

// Parse reads a problem from YAML content.
func Parse(r io.Reader) (*Problem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read problem")
	}
	var pb Problem
	if err := yaml.UnmarshalStrict(data, &pb); err != nil {
		return nil, errors.Wrap(err, "invalid problem")
	}
	if len(pb.Partitions) == 0 {
		return nil, errors.New("problem has no partition")
	}
	return &pb, nil
}

// Load reads the problem file at path.
func Load(path string) (*Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open problem")
	}
	defer f.Close()
	return Parse(f)
}

func parseSort(s string) (term.Sort, error) {
	switch strings.ToLower(s) {
	case "real":
		return term.Real, nil
	case "int":
		return term.Int, nil
	case "u":
		return term.U, nil
	default:
		return term.Bool, errors.Errorf("unknown sort %q", s)
	}
}

func parseRat(s string) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, errors.Errorf("%q is not a rational", s)
	}
	return r, nil
}

// Instance is a problem built in a term store.
type Instance struct {
	// Partitions holds the conjunction of each partition.
	Partitions []term.Ref
	// Literals holds the literals of each partition.
	Literals [][]term.Literal
}

// All returns the literals of every partition.
func (in *Instance) All() []term.Literal {
	var res []term.Literal
	for _, lits := range in.Literals {
		res = append(res, lits...)
	}
	return res
}

type builder struct {
	store *term.Store
	vars  map[string]term.Ref
}

func (b *builder) variable(name string, arith bool) (term.Ref, error) {
	v, ok := b.vars[name]
	if !ok {
		return term.Undef, errors.Errorf("undeclared variable %q", name)
	}
	if b.store.Sort(v).Arith() != arith {
		return term.Undef, errors.Errorf("variable %q has sort %s", name, b.store.Sort(v))
	}
	return v, nil
}

func (b *builder) pair(names []string) (term.Ref, error) {
	if len(names) != 2 {
		return term.Undef, errors.Errorf("expected 2 variables, got %d", len(names))
	}
	x, err := b.variable(names[0], false)
	if err != nil {
		return term.Undef, err
	}
	y, err := b.variable(names[1], false)
	if err != nil {
		return term.Undef, err
	}
	eq := b.store.Eq(x, y)
	if b.store.Kind(eq) != term.KindEq {
		return term.Undef, errors.Errorf("%s and %s are the same variable", names[0], names[1])
	}
	return eq, nil
}

func (b *builder) linear(c Constraint) ([]term.Literal, error) {
	names := make([]string, 0, len(c.Terms))
	for name := range c.Terms {
		names = append(names, name)
	}
	sort.Strings(names)
	ms := make([]term.Monomial, 0, len(names))
	for _, name := range names {
		v, err := b.variable(name, true)
		if err != nil {
			return nil, err
		}
		k, err := parseRat(c.Terms[name])
		if err != nil {
			return nil, err
		}
		ms = append(ms, term.Monomial{Coeff: k, Var: v})
	}
	k, err := parseRat(c.Bound)
	if err != nil {
		return nil, err
	}
	t := b.store.Sum(ms...)
	if b.store.Kind(t) == term.KindConst {
		return nil, errors.New("constraint has no variable")
	}
	minusK := new(big.Rat).Neg(k)
	le := b.store.Leq(minusK, b.store.Negate(t)) // t <= k
	ge := b.store.Leq(k, t)                      // t >= k
	switch c.Op {
	case "<=":
		return []term.Literal{term.Pos(le)}, nil
	case ">=":
		return []term.Literal{term.Pos(ge)}, nil
	case "<":
		return []term.Literal{term.Neg(ge)}, nil
	case ">":
		return []term.Literal{term.Neg(le)}, nil
	case "=":
		return []term.Literal{term.Pos(ge), term.Pos(le)}, nil
	default:
		return nil, errors.Errorf("unknown operator %q", c.Op)
	}
}

func (b *builder) constraint(c Constraint) ([]term.Literal, error) {
	switch {
	case len(c.Equal) != 0:
		eq, err := b.pair(c.Equal)
		return []term.Literal{term.Pos(eq)}, err
	case len(c.Distinct) != 0:
		eq, err := b.pair(c.Distinct)
		return []term.Literal{term.Neg(eq)}, err
	default:
		return b.linear(c)
	}
}

// Build creates the terms of the problem in store.
func (pb *Problem) Build(store *term.Store) (*Instance, error) {
	b := &builder{store: store, vars: make(map[string]term.Ref, len(pb.Variables))}
	names := make([]string, 0, len(pb.Variables))
	for name := range pb.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		srt, err := parseSort(pb.Variables[name])
		if err != nil {
			return nil, errors.Wrapf(err, "variable %q", name)
		}
		b.vars[name] = store.Var(name, srt)
	}
	in := &Instance{}
	for i, part := range pb.Partitions {
		var lits []term.Literal
		for j, c := range part {
			ls, err := b.constraint(c)
			if err != nil {
				return nil, errors.Wrapf(err, "constraint %d of partition %d", j, i)
			}
			lits = append(lits, ls...)
		}
		fs := make([]term.Ref, len(lits))
		for k, l := range lits {
			fs[k] = store.LiteralTerm(l)
		}
		in.Partitions = append(in.Partitions, store.And(fs...))
		in.Literals = append(in.Literals, lits)
	}
	return in, nil
}
