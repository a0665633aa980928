package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mohammad-safakhou/careergraph/config"
	"github.com/mohammad-safakhou/careergraph/internal/agent/core"
	"github.com/mohammad-safakhou/careergraph/internal/helpers"
	"github.com/mohammad-safakhou/careergraph/internal/logger"
	cgruntime "github.com/mohammad-safakhou/careergraph/internal/runtime"
	"github.com/mohammad-safakhou/careergraph/provider"
	"github.com/mohammad-safakhou/careergraph/tools/discovery"
	"github.com/mohammad-safakhou/careergraph/tools/web_search"
)

// app is the wired process: config, observability and the pipeline.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	metrics   *cgruntime.Metrics
	telemetry *cgruntime.Telemetry
	orch      *core.Orchestrator
	closers   []func() error
}

// buildApp loads configuration and wires every collaborator. spanWriter
// receives spans when tracing is enabled without an OTLP endpoint.
func buildApp(ctx context.Context, cfgPath string, spanWriter io.Writer) (*app, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.General.LogMode, cfg.General.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, metrics: cgruntime.NewMetrics()}

	a.telemetry, err = cgruntime.SetupTelemetry(ctx, cfg.Telemetry, cgruntime.TelemetryOptions{ServiceVersion: version, Writer: spanWriter})
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	completer, err := provider.New(cfg.LLM)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	var discoverer core.Discoverer
	if cfg.Sources.WebSearch.Enabled {
		ws := cfg.Sources.WebSearch
		searcher, err := web_search.New(web_search.Provider(ws.Provider), ws.APIKey(), helpers.NewHTTPClient(ws.Timeout, ws.MaxRetries, 0))
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("web search: %w", err)
		}
		opts := []discovery.Option{discovery.WithLogger(log.With("component", "discovery")), discovery.WithMetrics(a.metrics)}
		if rc := cfg.Storage.Redis; rc.Enabled {
			client, err := discovery.Conn(ctx, rc.Addr(), rc.Password, rc.DB, rc.Timeout)
			if err != nil {
				// the cache is an optimisation; run without it
				log.Warn("redis unavailable, discovery cache disabled", "addr", rc.Addr(), "error", err)
			} else {
				a.closers = append(a.closers, client.Close)
				opts = append(opts, discovery.WithCache(discovery.NewRedisCache(client, rc.TTL)))
			}
		}
		discoverer = discovery.NewService(searcher, opts...)
	}

	a.orch, err = core.NewOrchestrator(completer, discoverer, core.OptionsFromConfig(cfg),
		core.WithLogger(log.With("component", "pipeline")),
		core.WithMetrics(a.metrics),
	)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	log.Info("pipeline ready",
		"llm_provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"discovery", cfg.Sources.WebSearch.Enabled,
		"search_provider", cfg.Sources.WebSearch.Provider,
	)
	return a, nil
}

// Close flushes telemetry and releases connections.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	if a.telemetry != nil {
		errs = append(errs, a.telemetry.Shutdown(ctx))
	}
	a.log.Sync()
	return errors.Join(errs...)
}
