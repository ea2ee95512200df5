package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/baxromumarov/logmap"
	"github.com/baxromumarov/logmap/config"
	"github.com/baxromumarov/logmap/metrics"
)

// app is the state shared by every subcommand.
type app struct {
	out io.Writer

	configPath  string
	envFiles    []string
	level       string
	format      string
	quiet       bool
	workers     int
	metricsAddr string

	lg     *logmap.Logger
	server *http.Server
}

func newRootCmd(out io.Writer) *cobra.Command {
	return (&app{out: out}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "logmap",
		Short:         "Nested timed logging, progress bars and parallel maps",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.shutdown()
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "config file (.toml, .yaml or .yml)")
	f.StringSliceVar(&a.envFiles, "env-file", nil, "dotenv files to load (default .env, .env.local)")
	f.StringVarP(&a.level, "level", "l", "", "minimum level: TRACE, DEBUG, INFO, WARNING or ERROR")
	f.StringVar(&a.format, "format", "", "log format: text, pretty or json")
	f.BoolVarP(&a.quiet, "quiet", "q", false, "suppress log lines and progress bars")
	f.IntVarP(&a.workers, "workers", "w", 0, "default worker count (0 picks from the CPU count)")
	f.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")

	root.AddCommand(
		newDemoCmd(a),
		newNapCmd(a),
		newLevelsCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadEnv(a.envFiles...); err != nil {
		return err
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("level") {
		cfg.Level = a.level
	}
	if flags.Changed("format") {
		cfg.Format = a.format
	}
	if flags.Changed("quiet") {
		cfg.Quiet = a.quiet
	}
	if flags.Changed("workers") {
		cfg.Workers = a.workers
	}

	var (
		opts []logmap.Option
		reg  *prom.Registry
	)
	if a.metricsAddr != "" {
		reg = prom.NewRegistry()
		opts = append(opts, logmap.WithRecorder(metrics.NewPrometheusRecorder(reg)))
	}

	lg, err := logmap.FromConfig(cfg, a.out, opts...)
	if err != nil {
		return err
	}
	if reg != nil {
		if err := a.serveMetrics(reg); err != nil {
			return err
		}
	}
	a.lg = lg
	logmap.SetDefault(lg)
	return nil
}

func (a *app) serveMetrics(reg *prom.Registry) error {
	ln, err := net.Listen("tcp", a.metricsAddr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintln(a.out, "metrics server:", err)
		}
	}()
	return nil
}

func (a *app) shutdown() error {
	if a.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.server.Shutdown(ctx)
}
