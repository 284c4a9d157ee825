// cmd/minwonscrapexter/app.go
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/valpere/MinwonScrapexter/internal/analysis"
	"github.com/valpere/MinwonScrapexter/internal/browser"
	"github.com/valpere/MinwonScrapexter/internal/config"
	"github.com/valpere/MinwonScrapexter/internal/monitoring"
	"github.com/valpere/MinwonScrapexter/internal/output"
	"github.com/valpere/MinwonScrapexter/internal/pipeline"
	"github.com/valpere/MinwonScrapexter/internal/scraper"
)

// app holds the wired crawl components of one command invocation
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	metrics  *monitoring.Metrics
	renderer *browser.Renderer
	fetcher  *scraper.Fetcher
	engine   *scraper.Engine
	output   *output.Manager
}

// newApp wires fetch strategies, extractors, validator, engine and output.
// withSinks opens the configured database sinks.
func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger, withSinks bool) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: monitoring.NewMetrics(),
	}

	var render scraper.Strategy
	renderer, err := browser.NewRenderer(&cfg.Browser, logger)
	switch {
	case err == nil:
		a.renderer = renderer
		render = renderer
	case errors.Is(err, browser.ErrDisabled):
		logger.Info("browser rendering disabled, using the lightweight strategy only")
	default:
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	client := scraper.NewHTTPClient(cfg.ClientConfig())
	a.fetcher = scraper.NewFetcher(client, render, cfg.FetcherConfig(), logger).WithMetrics(a.metrics)

	var analyzer analysis.Analyzer = analysis.Disabled{}
	if cfg.Analysis.Enabled {
		analyzer = analysis.NewKeywordAnalyzer(cfg.Analysis.KeywordLimit)
	}

	details := scraper.NewDetailExtractor(a.fetcher, analyzer, logger)
	if len(cfg.Crawl.PortalDomains) > 0 {
		details.PortalDomains = cfg.Crawl.PortalDomains
	}
	validator := scraper.NewValidator(details, a.fetcher, analyzer, logger)

	a.output, err = output.NewManager(cfg.Output, cfg.Dedupe.SimilarityThreshold, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if withSinks {
		sinks, err := output.OpenSinks(ctx, cfg.Sinks, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open output sinks: %w", err)
		}
		a.output.WithSinks(sinks...)
	}

	a.engine = scraper.NewEngine(cfg.EngineConfig(), a.fetcher, details, validator, logger).
		WithPersister(a.output).
		WithRecorder(a.metrics).
		WithDeduplicator(&pipeline.RecordDeduplicator{Strict: cfg.Dedupe.Strict})
	return a, nil
}

// serveMetrics starts the monitoring server in the background when an
// address is configured
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.Metrics.Addr == "" {
		return
	}
	srv := monitoring.NewServer(a.cfg.Metrics.Addr, a.metrics, a.engine.Tracker(), a.logger)
	go func() {
		if err := srv.Start(ctx); err != nil {
			a.logger.WithError(err).Error("monitoring server failed")
		}
	}()
}

// departments loads the portal department list, falling back to the
// built-in list
func (a *app) departments(ctx context.Context) scraper.Departments {
	deps, err := scraper.FetchDepartments(ctx, a.fetcher)
	if err != nil {
		a.logger.WithError(err).Warn("department page unavailable, using the built-in list")
	}
	return deps
}

func (a *app) Close() error {
	var errs []error
	if a.renderer != nil {
		if err := a.renderer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.output != nil {
		if err := a.output.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
