package term

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// RatString returns the SMT-LIB2 notation of a rational: "3", "(- 3)",
// "(/ 1 2)" or "(- (/ 1 2))".
func RatString(r *big.Rat) string {
	abs := new(big.Rat).Abs(r)
	var res string
	if abs.IsInt() {
		res = abs.Num().String()
	} else {
		res = fmt.Sprintf("(/ %s %s)", abs.Num(), abs.Denom())
	}
	if r.Sign() < 0 {
		return fmt.Sprintf("(- %s)", res)
	}
	return res
}

// String returns the SMT-LIB2 notation of r.
func (s *Store) String(r Ref) string {
	var sb strings.Builder
	s.write(&sb, r)
	return sb.String()
}

// LiteralString returns the SMT-LIB2 notation of the formula denoted by l.
func (s *Store) LiteralString(l Literal) string {
	if l.Sign == LFalse {
		return fmt.Sprintf("(not %s)", s.String(l.Term))
	}
	return s.String(l.Term)
}

func (s *Store) write(sb *strings.Builder, r Ref) {
	n := s.node(r)
	switch n.kind {
	case KindTrue:
		sb.WriteString("true")
	case KindFalse:
		sb.WriteString("false")
	case KindConst:
		sb.WriteString(RatString(n.value))
	case KindVar:
		sb.WriteString(n.name)
	case KindApp:
		if len(n.args) == 0 {
			sb.WriteString(n.name)
			return
		}
		s.writeApp(sb, n.name, n.args)
	case KindSum:
		sb.WriteString("(+")
		for i, v := range n.args {
			sb.WriteByte(' ')
			if n.coeffs[i].Cmp(big.NewRat(1, 1)) == 0 {
				s.write(sb, v)
				continue
			}
			fmt.Fprintf(sb, "(* %s ", RatString(n.coeffs[i]))
			s.write(sb, v)
			sb.WriteByte(')')
		}
		sb.WriteByte(')')
	case KindLeq:
		fmt.Fprintf(sb, "(<= %s ", RatString(n.value))
		s.write(sb, n.args[0])
		sb.WriteByte(')')
	case KindEq:
		s.writeApp(sb, "=", n.args)
	case KindNot:
		s.writeApp(sb, "not", n.args)
	case KindAnd:
		s.writeApp(sb, "and", n.args)
	case KindOr:
		s.writeApp(sb, "or", n.args)
	}
}

func (s *Store) writeApp(sb *strings.Builder, head string, args []Ref) {
	sb.WriteByte('(')
	sb.WriteString(head)
	for _, a := range args {
		sb.WriteByte(' ')
		s.write(sb, a)
	}
	sb.WriteByte(')')
}

// Script returns an SMT-LIB2 script declaring every symbol occurring in the
// given formulas and asserting each of them, followed by (check-sat).
// It is meant to be fed to an external solver.
func (s *Store) Script(formulas ...Ref) string {
	var sb strings.Builder
	decls := make(map[string]string)
	usesU := false
	for _, f := range formulas {
		s.Leaves(f, func(r Ref) {
			n := s.node(r)
			if n.sort == U {
				usesU = true
			}
			if _, ok := decls[n.name]; ok {
				return
			}
			if n.kind == KindVar {
				decls[n.name] = fmt.Sprintf("(declare-fun %s () %s)", n.name, n.sort)
				return
			}
			argSorts := make([]string, len(n.args))
			for i, a := range n.args {
				argSorts[i] = s.node(a).sort.String()
			}
			decls[n.name] = fmt.Sprintf("(declare-fun %s (%s) %s)", n.name, strings.Join(argSorts, " "), n.sort)
		})
	}
	names := make([]string, 0, len(decls))
	for name := range decls {
		names = append(names, name)
	}
	sort.Strings(names)
	if usesU {
		sb.WriteString("(declare-sort U 0)\n")
	}
	for _, name := range names {
		sb.WriteString(decls[name])
		sb.WriteByte('\n')
	}
	for _, f := range formulas {
		fmt.Fprintf(&sb, "(assert %s)\n", s.String(f))
	}
	sb.WriteString("(check-sat)\n")
	return sb.String()
}
