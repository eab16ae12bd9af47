package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/pieme/nzpoints/internal/config"
	"github.com/pieme/nzpoints/internal/engine"
	"github.com/pieme/nzpoints/internal/logging"
	"github.com/pieme/nzpoints/internal/metrics"
	"github.com/pieme/nzpoints/internal/questionnaire"
	"github.com/pieme/nzpoints/internal/rules"
	"github.com/pieme/nzpoints/internal/session"
	"github.com/pieme/nzpoints/internal/store"
)

// tableFlags selects a rule table. Empty values fall back to the
// NZPOINTS_RULES and NZPOINTS_RULES_FILE settings.
type tableFlags struct {
	rules     string
	rulesFile string
}

// app is what every command shares once configuration is loaded.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	table  *rules.Table
	engine *engine.Engine
}

func loadApp(tf tableFlags, verbose bool, rec engine.Recorder) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, exitError(3, "failed to load configuration: %v", err)
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log, err := logging.New(level, cfg.LogFormat)
	if err != nil {
		return nil, exitError(3, "failed to build logger: %v", err)
	}

	name, path := tf.rules, tf.rulesFile
	if name == "" {
		name = cfg.Rules
	}
	if path == "" && tf.rules == "" {
		path = cfg.RulesFile
	}
	table, err := rules.Resolve(name, path)
	if err != nil {
		return nil, exitError(3, "failed to load rule table: %v", err)
	}

	opts := []engine.Option{engine.WithLogger(log)}
	if rec != nil {
		opts = append(opts, engine.WithRecorder(rec))
	}
	return &app{cfg: cfg, log: log, table: table, engine: engine.New(table, opts...)}, nil
}

// openSessions opens the session store under the configured data dir.
// The caller closes the returned store.
func (a *app) openSessions(m *metrics.Metrics) (*session.Service, *store.Store, error) {
	st, err := store.New(a.cfg.Store())
	if err != nil {
		return nil, nil, exitError(4, "failed to open session store: %v", err)
	}
	return session.NewService(st, a.engine, time.Now, a.log, m), st, nil
}

// parseNow turns a --now value into an evaluation instant. Empty means
// the current time.
func parseNow(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	d, err := questionnaire.ParseDate(raw)
	if err != nil {
		return time.Time{}, exitError(3, "invalid --now: %v", err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
}
