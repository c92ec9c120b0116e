package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/crillab/gophersmt/share"
)

func newShareCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Share learned clauses between solver instances through Redis",
	}
	var workers int
	flags := cmd.PersistentFlags()
	flags.String("addr", "", "address of the Redis server")
	flags.String("channel", "", "name of the sharing channel")
	flags.IntVar(&workers, "workers", 0, "number of solver instances to serve")

	override := func(cmd *cobra.Command) {
		flags := cmd.Flags()
		overrideString(flags, "addr", &a.cfg.Share.Addr)
		overrideString(flags, "channel", &a.cfg.Share.Channel)
		if flags.Changed("workers") && workers > 0 {
			a.cfg.Share.Workers = workers
		}
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Move the clauses published by each instance to the shared clause set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			override(cmd)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWorkers(ctx, a)
		},
	}
	publish := &cobra.Command{
		Use:   "publish file.cnf",
		Short: "Publish the clauses of a DIMACS file on the sharing channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			override(cmd)
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrapf(err, "could not open %q", args[0])
			}
			defer f.Close()
			clauses, _, err := share.ReadDIMACS(f)
			if err != nil {
				return errors.Wrapf(err, "could not parse DIMACS file %q", args[0])
			}
			w, err := share.NewWorker(cmd.Context(), a.cfg.Share, a.log)
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.Publish(cmd.Context(), map[string]string{"source": args[0]}, clauses); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "c %d clauses published on %s\n", len(clauses), w.Out())
			return nil
		},
	}
	cmd.AddCommand(run, publish)
	return cmd
}

// channelName returns the channel of the ith instance.
func channelName(base string, i, n int) string {
	if n == 1 {
		return base
	}
	return fmt.Sprintf("%s%d", base, i)
}

// runWorkers runs one worker per solver instance until ctx is done or one
// of them fails.
func runWorkers(ctx context.Context, a *app) error {
	n := a.cfg.Share.Workers
	ws := make([]*share.Worker, 0, n)
	defer func() {
		for _, w := range ws {
			w.Close()
		}
	}()
	for i := 0; i < n; i++ {
		cfg := a.cfg.Share
		cfg.Channel = channelName(cfg.Channel, i, n)
		w, err := share.NewWorker(ctx, cfg, a.log)
		if err != nil {
			return err
		}
		ws = append(ws, w)
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range ws {
		w := w
		g.Go(func() error {
			return w.Run(ctx)
		})
	}
	return g.Wait()
}
