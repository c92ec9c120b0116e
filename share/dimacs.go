package share

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ReadDIMACS reads the clauses of a DIMACS CNF file. Clauses may span
// several lines; each one ends with 0.
func ReadDIMACS(f io.Reader) (clauses []*Clause, nbVars int, err error) {
	sc := bufio.NewScanner(f)
	var (
		lits   []Lit
		header bool
		lineNb int
	)
	for sc.Scan() {
		lineNb++
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "" || line[0] == 'c':
			continue
		case line[0] == 'p':
			fields := strings.Fields(line)
			if len(fields) < 4 || fields[1] != "cnf" {
				return nil, 0, errors.Errorf("line %d: invalid header %q", lineNb, line)
			}
			if nbVars, err = strconv.Atoi(fields[2]); err != nil || nbVars < 0 {
				return nil, 0, errors.Errorf("line %d: nbvars not an int: %q", lineNb, fields[2])
			}
			nbClauses, err := strconv.Atoi(fields[3])
			if err != nil || nbClauses < 0 {
				return nil, 0, errors.Errorf("line %d: nbClauses not an int: %q", lineNb, fields[3])
			}
			clauses = make([]*Clause, 0, nbClauses)
			header = true
			continue
		}
		if !header {
			return nil, 0, errors.Errorf("line %d: clause before header", lineNb)
		}
		for _, field := range strings.Fields(line) {
			val, err := strconv.ParseInt(field, 10, 32)
			if err != nil {
				return nil, 0, errors.Errorf("line %d: %q is not a literal", lineNb, field)
			}
			if val == 0 {
				clauses = append(clauses, NewClause(lits))
				lits = nil
				continue
			}
			if val > int64(nbVars) || -val > int64(nbVars) || !ValidLit(int32(val)) {
				return nil, 0, errors.Errorf("line %d: invalid literal %d for problem with %d vars only", lineNb, val, nbVars)
			}
			lits = append(lits, IntToLit(int32(val)))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "cannot read CNF")
	}
	if len(lits) != 0 {
		return nil, 0, errors.New("unfinished clause while EOF found")
	}
	return clauses, nbVars, nil
}
