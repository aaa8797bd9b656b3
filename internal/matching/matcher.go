// Package matching finds, prices and ranks providers for a quote request
// and forwards quotes to the chosen provider.
package matching

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tres-passos/marketplace/internal/model"
	"github.com/tres-passos/marketplace/internal/store"
	"github.com/tres-passos/marketplace/pkg/geocode"
)

// Config tunes matching.
type Config struct {
	// DefaultRadiusKM applies to providers without a settings row or radius.
	DefaultRadiusKM float64
	// Concurrency bounds per-provider lookups.
	Concurrency int
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithMatchObserver is called after every FindMatchingProviders call.
func WithMatchObserver(fn func(returned int, elapsed time.Duration)) Option {
	return func(m *Matcher) { m.onMatch = fn }
}

// WithSendObserver is called with the outcome of every SendQuoteToProvider call.
func WithSendObserver(fn func(outcome string)) Option {
	return func(m *Matcher) { m.onSend = fn }
}

// Matcher ranks providers against quotes.
type Matcher struct {
	store    store.ProviderStore
	geocoder geocode.Client
	cfg      Config

	onMatch func(int, time.Duration)
	onSend  func(string)
}

// New returns a Matcher. geocoder may be nil, in which case client
// locations are always unknown.
func New(st store.ProviderStore, geocoder geocode.Client, cfg Config, opts ...Option) *Matcher {
	if cfg.DefaultRadiusKM < 0 {
		cfg.DefaultRadiusKM = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	m := &Matcher{store: st, geocoder: geocoder, cfg: cfg}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FindMatchingProviders returns the ranked providers able to serve quote.
// It never fails: lookup errors for a single provider drop that provider,
// and any other error yields an empty list.
func (m *Matcher) FindMatchingProviders(ctx context.Context, quote model.QuoteDetails) []model.ProviderMatch {
	start := time.Now()
	matches, err := m.match(ctx, quote)
	if err != nil {
		zap.L().Error("matching: find providers",
			zap.String("service_id", quote.ServiceID),
			zap.String("sub_service_id", quote.SubServiceID),
			zap.String("specialty_id", quote.SpecialtyID),
			zap.Error(err),
		)
		matches = []model.ProviderMatch{}
	}
	if m.onMatch != nil {
		m.onMatch(len(matches), time.Since(start))
	}
	return matches
}

// candidate is one provider under consideration with its best offering.
type candidate struct {
	offering  model.ProviderOffering
	relevance model.Relevance
}

func (m *Matcher) match(ctx context.Context, quote model.QuoteDetails) ([]model.ProviderMatch, error) {
	offerings, err := m.offerings(ctx, quote.Scope())
	if err != nil {
		return nil, err
	}
	candidates := dedupe(offerings, quote)
	if len(candidates) == 0 {
		zap.L().Info("matching: no offerings",
			zap.String("service_id", quote.ServiceID),
			zap.String("sub_service_id", quote.SubServiceID),
			zap.String("specialty_id", quote.SpecialtyID),
		)
		return []model.ProviderMatch{}, nil
	}

	client, located := m.locate(ctx, quote.Address)

	providerIDs := make([]string, len(candidates))
	for i, c := range candidates {
		providerIDs[i] = c.offering.ProviderID
	}
	prices := m.itemPrices(ctx, providerIDs, quote)

	results := make([]*model.ProviderMatch, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			pm, err := m.evaluate(gctx, c, quote, client, located, prices)
			if err != nil {
				zap.L().Warn("matching: skipping provider",
					zap.String("provider_id", c.offering.ProviderID),
					zap.Error(err),
				)
				return nil
			}
			results[i] = pm
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "matching: cancelled")
	}

	matches := make([]model.ProviderMatch, 0, len(results))
	for _, pm := range results {
		if pm != nil {
			matches = append(matches, *pm)
		}
	}
	Sort(matches)

	zap.L().Debug("matching: ranked providers",
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(matches)),
		zap.Bool("client_located", located),
	)
	return matches, nil
}

// offerings queries the scope's levels from narrowest to broadest and
// returns the first non-empty result. Results are never merged across levels.
func (m *Matcher) offerings(ctx context.Context, scope model.CatalogScope) ([]model.ProviderOffering, error) {
	order := scope.SearchOrder()
	if len(order) == 0 {
		return nil, eris.New("matching: quote names no service, sub-service or specialty")
	}
	for _, l := range order {
		offerings, err := m.store.ListOfferings(ctx, l.Level, l.ID)
		if err != nil {
			return nil, eris.Wrapf(err, "matching: list offerings by %s", l.Level)
		}
		if len(offerings) > 0 {
			zap.L().Debug("matching: offerings found", zap.Stringer("level", l.Level), zap.Int("count", len(offerings)))
			return offerings, nil
		}
	}
	return nil, nil
}

// dedupe keeps one offering per provider, preferring the most relevant and
// then the first seen.
func dedupe(offerings []model.ProviderOffering, quote model.QuoteDetails) []candidate {
	pos := make(map[string]int, len(offerings))
	var out []candidate
	for _, o := range offerings {
		rel := RelevanceOf(o, quote)
		if i, ok := pos[o.ProviderID]; ok {
			if rel > out[i].relevance {
				out[i] = candidate{offering: o, relevance: rel}
			}
			continue
		}
		pos[o.ProviderID] = len(out)
		out = append(out, candidate{offering: o, relevance: rel})
	}
	return out
}

// locate geocodes the client address. Failures leave the location unknown.
func (m *Matcher) locate(ctx context.Context, addr model.Address) (Point, bool) {
	if m.geocoder == nil || addr.IsZero() {
		return Point{}, false
	}
	res, err := m.geocoder.Geocode(ctx, geocode.AddressInput{Line: addr.OneLine(), PostalCode: addr.ZipCode})
	if err != nil {
		zap.L().Warn("matching: geocode client address", zap.Error(err))
		return Point{}, false
	}
	if !res.Matched {
		zap.L().Info("matching: client address not found", zap.String("city", addr.City))
		return Point{}, false
	}
	return Point{Lat: res.Latitude, Lng: res.Longitude}, true
}

// itemPrices loads the provider-declared prices for the requested items.
// On error every item falls back to the base price.
func (m *Matcher) itemPrices(ctx context.Context, providerIDs []string, quote model.QuoteDetails) priceIndex {
	if len(quote.Items) == 0 {
		return priceIndex{}
	}
	itemIDs := make([]string, 0, len(quote.Items))
	for id := range quote.Items {
		itemIDs = append(itemIDs, id)
	}
	prices, err := m.store.ListItemPrices(ctx, providerIDs, itemIDs)
	if err != nil {
		zap.L().Warn("matching: item prices unavailable, using base prices", zap.Error(err))
		return priceIndex{}
	}
	return indexPrices(prices)
}

func (m *Matcher) evaluate(ctx context.Context, c candidate, quote model.QuoteDetails, client Point, located bool, prices priceIndex) (*model.ProviderMatch, error) {
	providerID := c.offering.ProviderID

	profile, err := m.store.GetProfile(ctx, providerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, eris.Errorf("matching: provider %s has no profile", providerID)
		}
		return nil, eris.Wrap(err, "matching: get profile")
	}
	settings, err := m.store.GetProviderSettings(ctx, providerID)
	if err != nil {
		return nil, eris.Wrap(err, "matching: get settings")
	}
	ratings, err := m.store.ListRatings(ctx, providerID)
	if err != nil {
		return nil, eris.Wrap(err, "matching: list ratings")
	}

	pm := &model.ProviderMatch{
		Provider:   buildProvider(profile, settings, AverageRating(ratings)),
		TotalPrice: totalPrice(c.offering, quote, prices),
		Relevance:  c.relevance,
	}
	if c.relevance == model.RelevanceSpecialty {
		pm.Provider.Specialties = []model.Specialty{{
			ID:           quote.SpecialtyID,
			Name:         quote.SpecialtyName,
			SubServiceID: quote.SubServiceID,
		}}
	}

	if located && settings.HasCoordinates() {
		pm.DistanceKM = HaversineKM(client, Point{Lat: *settings.Latitude, Lng: *settings.Longitude})
		pm.DistanceKnown = true
	}
	pm.IsWithinRadius = m.withinRadius(settings, pm.DistanceKM, pm.DistanceKnown)
	return pm, nil
}

// withinRadius applies the eligibility rules: a zero radius or a provider
// without coordinates serves everywhere; otherwise the distance must be
// known and not exceed the radius.
func (m *Matcher) withinRadius(settings *model.ProviderSettings, distance float64, known bool) bool {
	radius := m.cfg.DefaultRadiusKM
	if settings != nil && settings.ServiceRadiusKM != nil {
		radius = *settings.ServiceRadiusKM
	}
	switch {
	case radius == 0:
		return true
	case !settings.HasCoordinates():
		return true
	case !known:
		return false
	default:
		return distance <= radius
	}
}

func buildProvider(profile *model.Profile, settings *model.ProviderSettings, rating float64) model.Provider {
	p := model.Provider{
		UserID:        profile.ID,
		Name:          profile.Name,
		Phone:         profile.Phone,
		AverageRating: rating,
		Specialties:   []model.Specialty{},
	}
	if settings != nil {
		p.Bio = settings.Bio
		p.City = settings.City
		p.Neighborhood = settings.Neighborhood
	}
	return p
}
