package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/tres-passos/marketplace/internal/catalog"
	"github.com/tres-passos/marketplace/internal/matching"
	"github.com/tres-passos/marketplace/internal/metrics"
	"github.com/tres-passos/marketplace/internal/resilience"
	"github.com/tres-passos/marketplace/internal/store"
	"github.com/tres-passos/marketplace/internal/users"
	"github.com/tres-passos/marketplace/pkg/geocode"
)

// app bundles the services every command works with.
type app struct {
	store   store.Store
	catalog *catalog.Service
	matcher *matching.Matcher
	users   *users.Service
}

// newApp validates cfg for mode, opens the store and wires the services.
func newApp(ctx context.Context, mode string) (*app, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	retry := resilience.DefaultRetryConfig()
	if cfg.Geocode.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.Geocode.MaxAttempts
	}
	geoOpts := []geocode.Option{
		geocode.WithGoogleAPIKey(cfg.Geocode.GoogleKey),
		geocode.WithRegion(cfg.Geocode.Region),
		geocode.WithRateLimit(cfg.Geocode.RateLimit),
		geocode.WithCacheTTL(cfg.Geocode.CacheTTL),
		geocode.WithRetry(retry),
		geocode.WithOutcomeHook(metrics.RecordGeocode),
	}
	if cfg.Geocode.Timeout > 0 {
		geoOpts = append(geoOpts, geocode.WithHTTPClient(&http.Client{Timeout: cfg.Geocode.Timeout}))
	}
	if cfg.Geocode.GoogleKey == "" {
		zap.L().Warn("MARKETPLACE_GEOCODE_GOOGLE_API_KEY not set, client locations will be unknown")
	}
	geocoder := geocode.NewClient(geoOpts...)

	return &app{
		store:   st,
		catalog: catalog.New(st, cfg.Catalog.CacheTTL, catalog.WithCacheHook(metrics.RecordCatalogCache)),
		matcher: matching.New(st, geocoder, matching.Config{
			DefaultRadiusKM: cfg.Matching.DefaultRadiusKM,
			Concurrency:     cfg.Matching.Concurrency,
		},
			matching.WithMatchObserver(metrics.RecordMatch),
			matching.WithSendObserver(metrics.RecordQuoteSent),
		),
		users: users.New(st),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
