package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pieme/nzpoints/internal/httpapi"
	"github.com/pieme/nzpoints/internal/metrics"
)

type serveFlags struct {
	tableFlags
	addr    string
	verbose bool
}

func newServeCmd() *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.addr, "addr", "", "Listen address (default: NZPOINTS_HTTP_ADDR or :8080)")
	flags.StringVar(&f.rules, "rules", "", "Built-in rule table name")
	flags.StringVar(&f.rulesFile, "rules-file", "", "Custom rule table file")
	flags.BoolVar(&f.verbose, "verbose", false, "Log at debug level")

	return cmd
}

func runServe(ctx context.Context, f *serveFlags) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	a, err := loadApp(f.tableFlags, f.verbose, m)
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()

	svc, st, err := a.openSessions(m)
	if err != nil {
		return err
	}
	defer st.Close()

	if !f.verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	h := httpapi.NewHandler(a.log, a.engine, svc, time.Now)
	router := httpapi.NewRouter(a.log, h, m, reg)

	addr := f.addr
	if addr == "" {
		addr = a.cfg.HTTPAddr
	}
	a.log.Info("serving points API",
		zap.String("rule_table", a.table.Name),
		zap.Int("rule_version", a.table.Version),
		zap.String("data_dir", a.cfg.DataDir),
	)
	if err := httpapi.Serve(ctx, addr, router, a.log); err != nil {
		return exitError(4, "server failed: %v", err)
	}
	return nil
}
