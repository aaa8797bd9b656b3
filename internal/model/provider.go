package model

import "encoding/json"

// ProviderOffering is a provider's priced entry for a catalog position.
type ProviderOffering struct {
	ID           string  `json:"id"`
	ProviderID   string  `json:"providerId"`
	ServiceID    string  `json:"serviceId,omitempty"`
	SubServiceID string  `json:"subServiceId,omitempty"`
	SpecialtyID  string  `json:"specialtyId,omitempty"`
	BasePrice    float64 `json:"basePrice"`
}

// ProviderSettings holds the provider's public settings. Nil pointers mean
// the column is NULL.
type ProviderSettings struct {
	ProviderID      string   `json:"providerId"`
	Bio             string   `json:"bio"`
	ServiceRadiusKM *float64 `json:"serviceRadiusKm,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	City            string   `json:"city"`
	Neighborhood    string   `json:"neighborhood"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (s *ProviderSettings) HasCoordinates() bool {
	return s != nil && s.Latitude != nil && s.Longitude != nil
}

// ItemPrice is the provider-declared unit price for a service item.
type ItemPrice struct {
	ProviderID   string  `json:"providerId"`
	ItemID       string  `json:"itemId"`
	PricePerUnit float64 `json:"pricePerUnit"`
}

// PortfolioItem is an image a provider shows on their page.
type PortfolioItem struct {
	ID          string `json:"id"`
	ImageURL    string `json:"imageUrl"`
	Description string `json:"description"`
}

// Provider is the public view of a provider shown to clients.
type Provider struct {
	UserID        string      `json:"userId"`
	Name          string      `json:"name"`
	Phone         string      `json:"phone"`
	Bio           string      `json:"bio"`
	AverageRating float64     `json:"averageRating"`
	Specialties   []Specialty `json:"specialties"`
	City          string      `json:"city"`
	Neighborhood  string      `json:"neighborhood"`
}

// Relevance ranks how specifically an offering matches a request.
type Relevance int

const (
	RelevanceService    Relevance = 1
	RelevanceSubService Relevance = 2
	RelevanceSpecialty  Relevance = 3
)

// ProviderMatch is one ranked candidate for a quote. DistanceKM is only
// meaningful when DistanceKnown is set; otherwise it encodes as null.
type ProviderMatch struct {
	Provider       Provider  `json:"provider"`
	DistanceKM     float64   `json:"distance"`
	DistanceKnown  bool      `json:"distanceKnown"`
	TotalPrice     float64   `json:"totalPrice"`
	IsWithinRadius bool      `json:"isWithinRadius"`
	Relevance      Relevance `json:"relevance"`
}

// ProviderDetails is the full provider page.
type ProviderDetails struct {
	ProviderMatch
	PortfolioItems []PortfolioItem `json:"portfolioItems"`
	Rating         float64         `json:"rating"`
}

type providerMatchJSON struct {
	Provider       Provider  `json:"provider"`
	DistanceKM     *float64  `json:"distance"`
	DistanceKnown  bool      `json:"distanceKnown"`
	TotalPrice     float64   `json:"totalPrice"`
	IsWithinRadius bool      `json:"isWithinRadius"`
	Relevance      Relevance `json:"relevance"`
}

func (m ProviderMatch) wire() providerMatchJSON {
	out := providerMatchJSON{
		Provider:       m.Provider,
		DistanceKnown:  m.DistanceKnown,
		TotalPrice:     m.TotalPrice,
		IsWithinRadius: m.IsWithinRadius,
		Relevance:      m.Relevance,
	}
	if m.DistanceKnown {
		d := m.DistanceKM
		out.DistanceKM = &d
	}
	return out
}

// MarshalJSON writes a null distance when the distance is unknown.
func (m ProviderMatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.wire())
}

// MarshalJSON is declared so the embedded ProviderMatch encoder does not
// swallow the page fields.
func (d ProviderDetails) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		providerMatchJSON
		PortfolioItems []PortfolioItem `json:"portfolioItems"`
		Rating         float64         `json:"rating"`
	}{
		providerMatchJSON: d.ProviderMatch.wire(),
		PortfolioItems:    d.PortfolioItems,
		Rating:            d.Rating,
	})
}
