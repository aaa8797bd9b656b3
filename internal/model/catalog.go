package model

// Service is a top-level catalog entry (e.g. "Limpeza").
type Service struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	SubServices []SubService `json:"subServices"`
}

// SubService groups specialties under a Service.
type SubService struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	ServiceID   string      `json:"serviceId"`
	Specialties []Specialty `json:"specialties"`
}

// Specialty is the most specific level of the catalog.
type Specialty struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SubServiceID string `json:"subServiceId"`
}

// QuestionOption is one selectable answer to a Question.
type QuestionOption struct {
	ID         string `json:"id"`
	QuestionID string `json:"questionId"`
	OptionText string `json:"optionText"`
}

// Question is asked to the client while describing a request.
type Question struct {
	ID           string           `json:"id"`
	Question     string           `json:"question"`
	ServiceID    string           `json:"serviceId,omitempty"`
	SubServiceID string           `json:"subServiceId,omitempty"`
	SpecialtyID  string           `json:"specialtyId,omitempty"`
	Options      []QuestionOption `json:"options"`
}

// ItemType describes how a ServiceItem is measured.
type ItemType string

const (
	ItemTypeQuantity    ItemType = "quantity"
	ItemTypeSquareMeter ItemType = "square_meter"
	ItemTypeLinearMeter ItemType = "linear_meter"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeQuantity, ItemTypeSquareMeter, ItemTypeLinearMeter:
		return true
	default:
		return false
	}
}

// ServiceItem is a priced unit a client can request in a quote.
type ServiceItem struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         ItemType `json:"type"`
	ServiceID    string   `json:"serviceId,omitempty"`
	SubServiceID string   `json:"subServiceId,omitempty"`
	SpecialtyID  string   `json:"specialtyId,omitempty"`
}

// CatalogLevel identifies which catalog column a lookup filters on.
type CatalogLevel int

const (
	LevelNone CatalogLevel = iota
	LevelService
	LevelSubService
	LevelSpecialty
)

// Column returns the database column holding identifiers of this level.
func (l CatalogLevel) Column() string {
	switch l {
	case LevelService:
		return "service_id"
	case LevelSubService:
		return "sub_service_id"
	case LevelSpecialty:
		return "specialty_id"
	default:
		return ""
	}
}

func (l CatalogLevel) String() string {
	switch l {
	case LevelService:
		return "service"
	case LevelSubService:
		return "sub_service"
	case LevelSpecialty:
		return "specialty"
	default:
		return "none"
	}
}

// CatalogScope names a position in the catalog by any of its identifiers.
type CatalogScope struct {
	ServiceID    string `json:"serviceId,omitempty"`
	SubServiceID string `json:"subServiceId,omitempty"`
	SpecialtyID  string `json:"specialtyId,omitempty"`
}

// Lookup returns the level and id used for question and item lookups.
// The service id takes precedence, then sub-service, then specialty.
func (s CatalogScope) Lookup() (CatalogLevel, string) {
	switch {
	case s.ServiceID != "":
		return LevelService, s.ServiceID
	case s.SubServiceID != "":
		return LevelSubService, s.SubServiceID
	case s.SpecialtyID != "":
		return LevelSpecialty, s.SpecialtyID
	default:
		return LevelNone, ""
	}
}

// LevelID is a catalog level paired with the identifier to look up.
type LevelID struct {
	Level CatalogLevel
	ID    string
}

// SearchOrder returns the levels set on the scope from narrowest to
// broadest: specialty, sub-service, service. Blank identifiers are skipped.
// Provider matching tries them in this order.
func (s CatalogScope) SearchOrder() []LevelID {
	out := make([]LevelID, 0, 3)
	if s.SpecialtyID != "" {
		out = append(out, LevelID{LevelSpecialty, s.SpecialtyID})
	}
	if s.SubServiceID != "" {
		out = append(out, LevelID{LevelSubService, s.SubServiceID})
	}
	if s.ServiceID != "" {
		out = append(out, LevelID{LevelService, s.ServiceID})
	}
	return out
}

// MostSpecific returns the narrowest level set on the scope, or LevelNone.
func (s CatalogScope) MostSpecific() (CatalogLevel, string) {
	if order := s.SearchOrder(); len(order) > 0 {
		return order[0].Level, order[0].ID
	}
	return LevelNone, ""
}
