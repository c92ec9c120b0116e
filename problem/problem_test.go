package problem

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crillab/gophersmt/term"
)

const sample = `
variables:
  x: real
  y: real
  a: u
  b: u
partitions:
  - - {terms: {x: "1"}, op: ">=", bound: "1"}
    - {terms: {x: "-1", y: "1"}, op: ">=", bound: "0"}
    - {equal: [a, b]}
  - - {terms: {y: "1"}, op: "<", bound: "1/2"}
    - {distinct: [b, a]}
`

func TestBuild(t *testing.T) {
	pb, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	st := term.NewStore()
	in, err := pb.Build(st)
	require.NoError(t, err)
	require.Len(t, in.Partitions, 2)
	require.Len(t, in.Literals[0], 3)
	require.Len(t, in.Literals[1], 2)
	assert.Len(t, in.All(), 5)

	x, y := st.Var("x", term.Real), st.Var("y", term.Real)
	a, b := st.Var("a", term.U), st.Var("b", term.U)
	assert.Equal(t, term.Pos(st.Leq(big.NewRat(1, 1), x)), in.Literals[0][0])
	assert.Equal(t, term.Pos(st.Eq(a, b)), in.Literals[0][2])
	assert.Equal(t, term.Neg(st.Leq(big.NewRat(1, 2), y)), in.Literals[1][0])
	assert.Equal(t, term.Neg(st.Eq(a, b)), in.Literals[1][1])
	assert.Equal(t, term.KindAnd, st.Kind(in.Partitions[1]))
}

func TestOperators(t *testing.T) {
	st := term.NewStore()
	x := st.Var("x", term.Real)
	k, minusK := big.NewRat(2, 1), big.NewRat(-2, 1)
	ge := st.Leq(k, x)
	le := st.Leq(minusK, st.Negate(x))
	for op, want := range map[string][]term.Literal{
		"<=": {term.Pos(le)},
		">=": {term.Pos(ge)},
		"<":  {term.Neg(ge)},
		">":  {term.Neg(le)},
		"=":  {term.Pos(ge), term.Pos(le)},
	} {
		pb := Problem{
			Variables:  map[string]string{"x": "real"},
			Partitions: [][]Constraint{{{Terms: map[string]string{"x": "1"}, Op: op, Bound: "2"}}},
		}
		in, err := pb.Build(st)
		require.NoError(t, err, op)
		assert.Equal(t, want, in.Literals[0], op)
	}
}

func TestErrors(t *testing.T) {
	for name, content := range map[string]string{
		"no partition":   "variables: {x: real}\n",
		"unknown field":  "variables: {x: real}\npartitions: [[{size: 3}]]\n",
		"unknown sort":   "variables: {x: bool}\npartitions: [[{terms: {x: \"1\"}, op: \"<=\", bound: \"0\"}]]\n",
		"undeclared":     "variables: {x: real}\npartitions: [[{terms: {z: \"1\"}, op: \"<=\", bound: \"0\"}]]\n",
		"bad op":         "variables: {x: real}\npartitions: [[{terms: {x: \"1\"}, op: \"!=\", bound: \"0\"}]]\n",
		"bad bound":      "variables: {x: real}\npartitions: [[{terms: {x: \"1\"}, op: \"<=\", bound: \"zero\"}]]\n",
		"no variable":    "variables: {x: real}\npartitions: [[{terms: {x: \"0\"}, op: \"<=\", bound: \"0\"}]]\n",
		"arith equality": "variables: {x: real, y: real}\npartitions: [[{equal: [x, y]}]]\n",
		"same variable":  "variables: {a: u}\npartitions: [[{distinct: [a, a]}]]\n",
		"bad pair":       "variables: {a: u, b: u}\npartitions: [[{equal: [a]}]]\n",
	} {
		pb, err := Parse(strings.NewReader(content))
		if err == nil {
			_, err = pb.Build(term.NewStore())
		}
		assert.Error(t, err, name)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	pb, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, pb.Partitions, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
