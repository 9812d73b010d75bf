// Package app assembles the classification services from configuration. It
// is shared by the HTTP server and the operator CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"instaguard/internal/classifier"
	"instaguard/internal/config"
	"instaguard/internal/db"
	"instaguard/internal/events"
	"instaguard/internal/extract"
	"instaguard/internal/metrics"
	"instaguard/internal/override"
	"instaguard/internal/pipeline"
)

// App holds the wired services.
type App struct {
	Cfg       *config.Config
	Store     db.Store
	Model     *classifier.Adapter
	Extractor *extract.Extractor
	Primary   *extract.PrimaryClient
	Pipeline  *pipeline.Service

	closers []func() error
}

// SetupLogging installs the default slog handler: JSON in production, text
// otherwise.
func SetupLogging(cfg *config.Config) {
	var h slog.Handler
	if cfg.IsDev() {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		h = slog.NewJSONHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(h))
}

// New connects the store and builds the pipeline. A model that fails to load
// is logged and left unavailable; classification then answers 503.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a := &App{Cfg: cfg, Store: store}
	a.closers = append(a.closers, func() error { store.Close(); return nil })

	a.Model = classifier.NewAdapter(cfg.ModelPath, cfg.ModelVersion)
	if err := a.Model.Load(); err != nil {
		log.Printf("WARNING: classifier unavailable, classification requests will fail: %v", err)
	}

	httpClient := &http.Client{Timeout: cfg.CollectorTimeout}

	sessions := a.sessionCache()
	a.Primary = extract.NewPrimaryClient(extract.PrimaryConfig{
		BaseURL:    cfg.PrimaryBaseURL,
		LoginURL:   cfg.PrimaryLoginURL,
		AppID:      cfg.PrimaryAppID,
		UserAgent:  cfg.UserAgent,
		Accounts:   primaryAccounts(cfg.Accounts),
		SessionTTL: cfg.SessionTTL,
	}, &http.Client{Timeout: cfg.PrimaryTimeout}, sessions)

	deps := extract.CollectorDeps{
		HTTPClient: httpClient,
		BaseURL:    cfg.PrimaryBaseURL,
		UserAgent:  cfg.UserAgent,
		CurlPath:   cfg.CurlPath,
	}
	if cfg.BrowserEnabled {
		browser := extract.NewBrowser(extract.BrowserConfig{
			ControlURL: cfg.BrowserControlURL,
			Bin:        cfg.BrowserBin,
			MaxPages:   int64(cfg.BrowserMaxPages),
		})
		deps.Browser = browser
		a.closers = append(a.closers, browser.Close)
	}

	order := cfg.CollectorOrder
	if len(order) == 0 {
		order = extract.DefaultOrder
	}
	chain, err := extract.BuildChain(order, deps)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("invalid collector order: %w", err)
	}

	var primary extract.Primary
	if len(cfg.Accounts) > 0 {
		primary = a.Primary
	} else {
		log.Println("WARNING: no primary source accounts configured, using fallback collectors only")
	}
	a.Extractor = extract.NewExtractor(primary, chain,
		extract.WithPrimaryTimeout(cfg.PrimaryTimeout),
		extract.WithCollectorTimeout(cfg.CollectorTimeout),
	)

	var opts []pipeline.Option
	if len(cfg.KafkaBrokers) > 0 {
		pub, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, pipeline.WithPublisher(pub))
		a.closers = append(a.closers, pub.Close)
	}

	a.Pipeline = pipeline.NewService(override.Default(), a.Extractor, a.Model, store, opts...)
	metrics.Init(store)

	slog.Info("pipeline ready",
		"collectors", a.Extractor.Collectors(),
		"primary_accounts", len(cfg.Accounts),
		"events", len(cfg.KafkaBrokers) > 0,
	)
	return a, nil
}

func (a *App) sessionCache() extract.SessionCache {
	if a.Cfg.RedisURL == "" {
		return extract.NewMemoryCache()
	}
	cache := extract.NewRedisSessionCache(a.Cfg.RedisURL)
	if c, ok := cache.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}
	return cache
}

// Close releases everything New opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func primaryAccounts(accounts []config.Account) []extract.Account {
	out := make([]extract.Account, len(accounts))
	for i, acc := range accounts {
		out[i] = extract.Account{Username: acc.Username, Password: acc.Password}
	}
	return out
}
