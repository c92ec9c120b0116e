package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/crillab/gophersmt/config"
	"github.com/crillab/gophersmt/share"
)

// app holds what every command needs once flags are parsed.
type app struct {
	configPath  string
	debug       bool
	metricsAddr string

	cfg    *config.Config
	log    *logrus.Logger
	reg    *prometheus.Registry
	server *http.Server
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{log: logrus.New()}
	cmd := &cobra.Command{
		Use:          "gophersmt",
		Short:        "Linear arithmetic and uninterpreted functions solver with interpolation",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path of the YAML configuration file")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9090")

	cmd.AddCommand(newCheckCmd(a), newInterpolateCmd(a), newShareCmd(a))
	return cmd
}

// setup loads the configuration, lets flags override it and starts the
// metrics server if asked to.
func (a *app) setup(cmd *cobra.Command) error {
	a.cfg = config.Default()
	if a.configPath != "" {
		cfg, err := config.LoadConfig(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	flags := cmd.Flags()
	if flags.Changed("debug") {
		a.cfg.Debug = a.debug
	}
	if flags.Changed("metrics-addr") {
		a.cfg.MetricsAddr = a.metricsAddr
	}
	if a.cfg.Debug {
		a.log.SetLevel(logrus.DebugLevel)
	}
	a.log.SetOutput(cmd.ErrOrStderr())

	a.reg = prometheus.NewRegistry()
	share.RegisterMetrics(a.reg)
	if a.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{}))
		a.server = &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			a.log.WithField("addr", a.cfg.MetricsAddr).Info("serving metrics")
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.log.WithError(err).Error("metrics server stopped")
			}
		}()
	}
	return nil
}

func (a *app) teardown() error {
	if a.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Wrap(a.server.Shutdown(ctx), "cannot stop metrics server")
}
