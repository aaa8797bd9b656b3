package matching

import (
	"sort"

	"github.com/tres-passos/marketplace/internal/model"
)

// RelevanceOf scores how specifically offering answers the quote.
func RelevanceOf(offering model.ProviderOffering, quote model.QuoteDetails) model.Relevance {
	switch {
	case quote.SpecialtyID != "" && offering.SpecialtyID == quote.SpecialtyID:
		return model.RelevanceSpecialty
	case quote.SubServiceID != "" && offering.SubServiceID == quote.SubServiceID:
		return model.RelevanceSubService
	default:
		return model.RelevanceService
	}
}

// Sort orders matches in place: providers within radius first, then higher
// relevance, then nearer. Unknown distances sort after known ones.
func Sort(matches []model.ProviderMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.IsWithinRadius != b.IsWithinRadius {
			return a.IsWithinRadius
		}
		if a.Relevance != b.Relevance {
			return a.Relevance > b.Relevance
		}
		if a.DistanceKnown != b.DistanceKnown {
			return a.DistanceKnown
		}
		return a.DistanceKM < b.DistanceKM
	})
}
