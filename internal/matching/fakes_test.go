package matching

import (
	"context"
	"sync"

	"github.com/tres-passos/marketplace/internal/model"
	"github.com/tres-passos/marketplace/internal/store"
	"github.com/tres-passos/marketplace/pkg/geocode"
)

type fakeProviderStore struct {
	mu sync.Mutex

	// offerings is the provider_services table; ListOfferings filters it
	// by the requested column.
	offerings   []model.ProviderOffering
	offeringErr error
	profiles    map[string]model.Profile
	profileErr  map[string]error
	settings    map[string]model.ProviderSettings
	prices      []model.ItemPrice
	pricesErr   error
	ratings     map[string][]float64
	portfolio   map[string][]model.PortfolioItem
	portfolioEr error
	addErr      error

	queried []model.LevelID
	added   [][3]string
}

func newFakeStore() *fakeProviderStore {
	return &fakeProviderStore{
		profiles:   map[string]model.Profile{},
		profileErr: map[string]error{},
		settings:   map[string]model.ProviderSettings{},
		ratings:    map[string][]float64{},
		portfolio:  map[string][]model.PortfolioItem{},
	}
}

func (f *fakeProviderStore) ListOfferings(_ context.Context, level model.CatalogLevel, id string) ([]model.ProviderOffering, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried = append(f.queried, model.LevelID{Level: level, ID: id})
	if f.offeringErr != nil {
		return nil, f.offeringErr
	}
	var out []model.ProviderOffering
	for _, o := range f.offerings {
		var v string
		switch level {
		case model.LevelService:
			v = o.ServiceID
		case model.LevelSubService:
			v = o.SubServiceID
		case model.LevelSpecialty:
			v = o.SpecialtyID
		}
		if v != "" && v == id {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeProviderStore) GetProfile(_ context.Context, id string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.profileErr[id]; err != nil {
		return nil, err
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProviderStore) GetProviderSettings(_ context.Context, id string) (*model.ProviderSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.settings[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeProviderStore) ListItemPrices(context.Context, []string, []string) ([]model.ItemPrice, error) {
	return f.prices, f.pricesErr
}

func (f *fakeProviderStore) ListRatings(_ context.Context, id string) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ratings[id], nil
}

func (f *fakeProviderStore) ListPortfolio(_ context.Context, id string) ([]model.PortfolioItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.portfolio[id], f.portfolioEr
}

func (f *fakeProviderStore) AddQuoteProvider(_ context.Context, quoteID, providerID string, status model.QuoteProviderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, [3]string{quoteID, providerID, string(status)})
	return nil
}

// addProvider registers a provider profile with optional coordinates and radius.
func (f *fakeProviderStore) addProvider(id, name string, lat, lng, radius *float64) {
	f.profiles[id] = model.Profile{ID: id, Name: name, Role: model.RoleProvider}
	if lat != nil || lng != nil || radius != nil {
		f.settings[id] = model.ProviderSettings{
			ProviderID:      id,
			Latitude:        lat,
			Longitude:       lng,
			ServiceRadiusKM: radius,
			City:            "São Paulo",
		}
	}
}

type fakeGeocoder struct {
	result *geocode.Result
	err    error
	calls  int
	last   geocode.AddressInput
}

func (g *fakeGeocoder) Geocode(_ context.Context, addr geocode.AddressInput) (*geocode.Result, error) {
	g.calls++
	g.last = addr
	return g.result, g.err
}

func f64(v float64) *float64 { return &v }

// Reference points around São Paulo.
var (
	se        = Point{Lat: -23.5505, Lng: -46.6333} // Praça da Sé
	paulista  = Point{Lat: -23.5614, Lng: -46.6559} // ~2.6 km from Sé
	guarulhos = Point{Lat: -23.4538, Lng: -46.5333} // ~14.8 km from Sé
	campinas  = Point{Lat: -22.9056, Lng: -47.0608} // ~84 km from Sé
)

func locatedAt(p Point) *fakeGeocoder {
	return &fakeGeocoder{result: &geocode.Result{Latitude: p.Lat, Longitude: p.Lng, Matched: true}}
}

func quoteAt(specialty string) model.QuoteDetails {
	return model.QuoteDetails{
		ServiceID:     "s1",
		SubServiceID:  "ss1",
		SpecialtyID:   specialty,
		SpecialtyName: "Pintura externa",
		Address: model.Address{
			Street: "Praça da Sé", Number: "1", Neighborhood: "Sé",
			City: "São Paulo", State: "SP", ZipCode: "01001-000",
		},
	}
}
