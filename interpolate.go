package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/crillab/gophersmt/interpolation"
	"github.com/crillab/gophersmt/lra"
	"github.com/crillab/gophersmt/problem"
	"github.com/crillab/gophersmt/term"
	"github.com/crillab/gophersmt/theory"
	"github.com/crillab/gophersmt/verify"
)

// load reads a problem file and builds it in a fresh store.
func load(path string) (*term.Store, *problem.Instance, error) {
	pb, err := problem.Load(path)
	if err != nil {
		return nil, nil, err
	}
	st := term.NewStore()
	in, err := pb.Build(st)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot build %s", path)
	}
	return st, in, nil
}

// solve asserts every literal of in and checks the result.
func solve(th theory.Theory, in *problem.Instance) lra.Status {
	for _, l := range in.All() {
		if !th.Assert(l) {
			return lra.Unsat
		}
	}
	return th.Check()
}

func printModel(w io.Writer, st *term.Store, s *lra.Solver) error {
	model, err := s.Model()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(model))
	values := make(map[string]string, len(model))
	for leaf, v := range model {
		name := st.String(leaf)
		names = append(names, name)
		values[name] = term.RatString(v)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s: %s\n", name, values[name])
	}
	return nil
}

// overrideString sets *dst to the value of the named flag if it was given.
func overrideString(flags *pflag.FlagSet, name string, dst *string) {
	if flags.Changed(name) {
		*dst, _ = flags.GetString(name)
	}
}

func newCheckCmd(a *app) *cobra.Command {
	var core bool
	cmd := &cobra.Command{
		Use:   "check problem.yaml",
		Short: "Decide whether the conjunction of all partitions is satisfiable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, in, err := load(args[0])
			if err != nil {
				return err
			}
			th, err := theory.Build(st, a.cfg.Interpolation, theory.WithLogger(a.log))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if solve(th, in) == lra.Sat {
				fmt.Fprintln(out, "SATISFIABLE")
				return nil
			}
			fmt.Fprintln(out, "UNSATISFIABLE")
			conflict, err := th.Conflict()
			if err != nil {
				return err
			}
			if core {
				v := verify.New(st, in.Partitions, verify.WithLogger(a.log))
				if conflict, err = v.CoreDeletion(conflict); err != nil {
					return err
				}
			}
			for _, l := range conflict {
				fmt.Fprintf(out, "c %s\n", st.String(st.LiteralTerm(l)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&core, "core", false, "shrink the conflict to a minimal one")
	return cmd
}

func newInterpolateCmd(a *app) *cobra.Command {
	var (
		split  int
		check  bool
		smtlib bool
	)
	cmd := &cobra.Command{
		Use:   "interpolate problem.yaml",
		Short: "Compute an interpolant between the first partitions and the other ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrideString(cmd.Flags(), "algorithm", &a.cfg.Interpolation.Algorithm)
			overrideString(cmd.Flags(), "alpha", &a.cfg.Interpolation.Alpha)
			a.cfg.Interpolation.Produce = true
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			st, in, err := load(args[0])
			if err != nil {
				return err
			}
			if split < 1 || split >= len(in.Partitions) {
				return errors.Errorf("split must be in [1,%d]", len(in.Partitions)-1)
			}
			h, err := theory.NewInterpolating(st, a.cfg.Interpolation, theory.WithLogger(a.log))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if solve(h, in) == lra.Sat {
				fmt.Fprintln(out, "SATISFIABLE")
				return printModel(out, st, h.LRA())
			}
			fmt.Fprintln(out, "UNSATISFIABLE")

			mask := interpolation.NewMask()
			for i := 0; i < split; i++ {
				mask = mask.With(i)
			}
			itp, err := h.GetInterpolant(mask, interpolation.Collect(st, in.Partitions))
			if err != nil {
				return err
			}
			a.log.WithField("algorithm", h.Algorithm()).Debug("interpolant computed")
			fmt.Fprintln(out, st.String(itp))

			v := verify.New(st, in.Partitions, verify.WithLogger(a.log))
			if check {
				ok, err := v.VerifyInterpolant(itp, mask)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("interpolant is not valid")
				}
				fmt.Fprintln(out, "c interpolant verified")
			}
			if smtlib {
				pa, pb := v.Parts(mask)
				fmt.Fprint(out, v.SMTLIB(pa, st.Not(itp)))
				fmt.Fprint(out, v.SMTLIB(itp, pb))
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.String("algorithm", "", "arithmetic interpolation algorithm: canonical, dual, flexible, decomposed or dual-decomposed")
	flags.String("alpha", "", "strength of flexible interpolants, in [0,1]")
	flags.IntVar(&split, "split", 1, "number of leading partitions forming the A part")
	flags.BoolVar(&check, "verify", false, "check the interpolant")
	flags.BoolVar(&smtlib, "smtlib", false, "print SMT-LIB scripts whose unsatisfiability proves the interpolant valid")
	return cmd
}
