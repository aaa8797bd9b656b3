package matching

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/tres-passos/marketplace/internal/model"
	"github.com/tres-passos/marketplace/internal/store"
)

// GetProviderDetails assembles the provider page. It reports false when the
// provider does not exist or cannot be loaded. Distance and price are left
// zero; they depend on a quote.
func (m *Matcher) GetProviderDetails(ctx context.Context, providerID string) (*model.ProviderDetails, bool) {
	log := zap.L().With(zap.String("provider_id", providerID))

	profile, err := m.store.GetProfile(ctx, providerID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error("matching: provider details profile", zap.Error(err))
		}
		return nil, false
	}

	settings, err := m.store.GetProviderSettings(ctx, providerID)
	if err != nil {
		log.Error("matching: provider details settings", zap.Error(err))
		return nil, false
	}

	portfolio, err := m.store.ListPortfolio(ctx, providerID)
	if err != nil {
		log.Warn("matching: provider portfolio", zap.Error(err))
	}
	if portfolio == nil {
		portfolio = []model.PortfolioItem{}
	}

	ratings, err := m.store.ListRatings(ctx, providerID)
	if err != nil {
		log.Warn("matching: provider ratings", zap.Error(err))
	}
	rating := AverageRating(ratings)

	return &model.ProviderDetails{
		ProviderMatch: model.ProviderMatch{
			Provider: buildProvider(profile, settings, rating),
		},
		PortfolioItems: portfolio,
		Rating:         rating,
	}, true
}
