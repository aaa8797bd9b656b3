// Package store provides data access to the marketplace's relational backend.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/tres-passos/marketplace/internal/model"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = eris.New("store: not found")

// CatalogStore reads the service catalog.
type CatalogStore interface {
	ListServices(ctx context.Context) ([]model.Service, error)
	ListSubServices(ctx context.Context) ([]model.SubService, error)
	ListSpecialties(ctx context.Context) ([]model.Specialty, error)
	ListQuestions(ctx context.Context, level model.CatalogLevel, id string) ([]model.Question, error)
	ListQuestionOptions(ctx context.Context, questionIDs []string) ([]model.QuestionOption, error)
	ListServiceItems(ctx context.Context, level model.CatalogLevel, id string) ([]model.ServiceItem, error)
}

// ProviderStore reads provider offerings, settings and history.
type ProviderStore interface {
	ListOfferings(ctx context.Context, level model.CatalogLevel, id string) ([]model.ProviderOffering, error)
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	// GetProviderSettings returns nil, nil when the provider has no settings row.
	GetProviderSettings(ctx context.Context, providerID string) (*model.ProviderSettings, error)
	ListItemPrices(ctx context.Context, providerIDs, itemIDs []string) ([]model.ItemPrice, error)
	ListRatings(ctx context.Context, providerID string) ([]float64, error)
	ListPortfolio(ctx context.Context, providerID string) ([]model.PortfolioItem, error)
	AddQuoteProvider(ctx context.Context, quoteID, providerID string, status model.QuoteProviderStatus) error
}

// UserStore reads and updates user profiles.
type UserStore interface {
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	// GetUserEmail returns "", nil when the user has no email on record.
	GetUserEmail(ctx context.Context, userID string) (string, error)
	UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) error
}

// Store is the full persistence interface.
type Store interface {
	CatalogStore
	ProviderStore
	UserStore

	Ping(ctx context.Context) error
	Close() error
}

// levelColumn validates level and returns its column name.
func levelColumn(level model.CatalogLevel) (string, error) {
	col := level.Column()
	if col == "" {
		return "", eris.Errorf("store: invalid catalog level %d", int(level))
	}
	return col, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
