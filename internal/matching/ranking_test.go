package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tres-passos/marketplace/internal/model"
)

func TestHaversineKM(t *testing.T) {
	assert.InDelta(t, 0.0, HaversineKM(se, se), 1e-9)
	assert.InDelta(t, 2.6, HaversineKM(se, paulista), 0.3)
	// São Paulo to Rio de Janeiro.
	assert.InDelta(t, 360.0, HaversineKM(se, Point{Lat: -22.9068, Lng: -43.1729}), 5)
	assert.InDelta(t, HaversineKM(se, campinas), HaversineKM(campinas, se), 1e-9)
}

func TestRelevanceOf(t *testing.T) {
	q := model.QuoteDetails{ServiceID: "s1", SubServiceID: "ss1", SpecialtyID: "sp1"}

	assert.Equal(t, model.RelevanceSpecialty, RelevanceOf(model.ProviderOffering{SpecialtyID: "sp1"}, q))
	assert.Equal(t, model.RelevanceSubService, RelevanceOf(model.ProviderOffering{SubServiceID: "ss1", SpecialtyID: "sp2"}, q))
	assert.Equal(t, model.RelevanceService, RelevanceOf(model.ProviderOffering{ServiceID: "s1"}, q))

	// Empty identifiers on both sides never count as a match.
	assert.Equal(t, model.RelevanceService, RelevanceOf(model.ProviderOffering{}, model.QuoteDetails{ServiceID: "s1"}))
}

func TestSort(t *testing.T) {
	mk := func(id string, within bool, rel model.Relevance, dist float64, known bool) model.ProviderMatch {
		return model.ProviderMatch{
			Provider:       model.Provider{UserID: id},
			IsWithinRadius: within,
			Relevance:      rel,
			DistanceKM:     dist,
			DistanceKnown:  known,
		}
	}
	matches := []model.ProviderMatch{
		mk("out-spec-near", false, model.RelevanceSpecialty, 1, true),
		mk("in-svc-near", true, model.RelevanceService, 1, true),
		mk("in-spec-unknown", true, model.RelevanceSpecialty, 0, false),
		mk("in-spec-far", true, model.RelevanceSpecialty, 90, true),
		mk("in-sub-near", true, model.RelevanceSubService, 2, true),
		mk("in-spec-near", true, model.RelevanceSpecialty, 3, true),
	}

	Sort(matches)
	assert.Equal(t, []string{
		"in-spec-near",
		"in-spec-far",
		"in-spec-unknown",
		"in-sub-near",
		"in-svc-near",
		"out-spec-near",
	}, ids(matches))
}

func TestAverageRating(t *testing.T) {
	assert.Zero(t, AverageRating(nil))
	assert.Zero(t, AverageRating([]float64{}))
	assert.InDelta(t, 4.5, AverageRating([]float64{4, 5}), 1e-9)
}

func TestTotalPrice(t *testing.T) {
	offering := model.ProviderOffering{ProviderID: "p1", BasePrice: 100}

	assert.Equal(t, 100.0, totalPrice(offering, model.QuoteDetails{}, priceIndex{}))

	q := model.QuoteDetails{
		Items:        map[string]float64{"a": 1, "b": 2},
		Measurements: []model.Measurement{{Width: 1.5, Length: 2}},
	}
	idx := indexPrices([]model.ItemPrice{
		{ProviderID: "p1", ItemID: "a", PricePerUnit: 7},
		{ProviderID: "p2", ItemID: "b", PricePerUnit: 1},
	})
	// 100 + 7*1 + 100*2 + 100*3
	assert.InDelta(t, 607.0, totalPrice(offering, q, idx), 1e-9)
}
