package model

import "strings"

// Address is the structured location where a service is requested.
type Address struct {
	Street       string `json:"street" yaml:"street"`
	Number       string `json:"number" yaml:"number"`
	Neighborhood string `json:"neighborhood" yaml:"neighborhood"`
	City         string `json:"city" yaml:"city"`
	State        string `json:"state" yaml:"state"`
	ZipCode      string `json:"zipCode" yaml:"zip_code"`
}

// OneLine joins the non-empty address parts with ", " for geocoding.
func (a Address) OneLine() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Street, a.Number, a.Neighborhood, a.City, a.State, a.ZipCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// IsZero reports whether no address part is set.
func (a Address) IsZero() bool {
	return a.OneLine() == ""
}

// Measurement is a surface declared by the client, either as an area or as
// width × length.
type Measurement struct {
	Width  float64 `json:"width,omitempty" yaml:"width"`
	Length float64 `json:"length,omitempty" yaml:"length"`
	Area   float64 `json:"area,omitempty" yaml:"area"`
}

// SquareMeters returns Area when set, otherwise Width × Length.
func (m Measurement) SquareMeters() float64 {
	if m.Area > 0 {
		return m.Area
	}
	return m.Width * m.Length
}

// QuoteDetails is a client's quote request.
type QuoteDetails struct {
	ServiceID      string             `json:"serviceId" yaml:"service_id"`
	ServiceName    string             `json:"serviceName,omitempty" yaml:"service_name"`
	SubServiceID   string             `json:"subServiceId,omitempty" yaml:"sub_service_id"`
	SubServiceName string             `json:"subServiceName,omitempty" yaml:"sub_service_name"`
	SpecialtyID    string             `json:"specialtyId,omitempty" yaml:"specialty_id"`
	SpecialtyName  string             `json:"specialtyName,omitempty" yaml:"specialty_name"`
	Address        Address            `json:"address" yaml:"address"`
	Items          map[string]float64 `json:"items,omitempty" yaml:"items"`
	Measurements   []Measurement      `json:"measurements,omitempty" yaml:"measurements"`
	QuoteID        string             `json:"quoteId,omitempty" yaml:"quote_id"`
	ClientID       string             `json:"clientId,omitempty" yaml:"client_id"`
}

// Scope returns the catalog position requested by the quote.
func (q QuoteDetails) Scope() CatalogScope {
	return CatalogScope{
		ServiceID:    q.ServiceID,
		SubServiceID: q.SubServiceID,
		SpecialtyID:  q.SpecialtyID,
	}
}

// QuoteProviderStatus is the state of a quote forwarded to a provider.
type QuoteProviderStatus string

const (
	QuoteProviderPending QuoteProviderStatus = "pending"
)

// SendResult reports the outcome of forwarding a quote to a provider.
type SendResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	QuoteID       string `json:"quoteId,omitempty"`
	RequiresLogin bool   `json:"requiresLogin,omitempty"`
}
