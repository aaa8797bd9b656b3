package matching

import (
	"sort"

	"github.com/tres-passos/marketplace/internal/model"
)

// priceIndex maps provider id → item id → unit price.
type priceIndex map[string]map[string]float64

func indexPrices(prices []model.ItemPrice) priceIndex {
	idx := make(priceIndex)
	for _, p := range prices {
		if idx[p.ProviderID] == nil {
			idx[p.ProviderID] = make(map[string]float64)
		}
		idx[p.ProviderID][p.ItemID] = p.PricePerUnit
	}
	return idx
}

func (idx priceIndex) lookup(providerID, itemID string) (float64, bool) {
	p, ok := idx[providerID][itemID]
	return p, ok
}

// totalPrice prices a quote for one offering: the base price, plus each
// requested item at the provider's unit price (or the base price when the
// provider declared none), plus the base price per square metre of every
// measurement.
func totalPrice(offering model.ProviderOffering, quote model.QuoteDetails, prices priceIndex) float64 {
	total := offering.BasePrice

	itemIDs := make([]string, 0, len(quote.Items))
	for id := range quote.Items {
		itemIDs = append(itemIDs, id)
	}
	sort.Strings(itemIDs)

	for _, id := range itemIDs {
		qty := quote.Items[id]
		if unit, ok := prices.lookup(offering.ProviderID, id); ok {
			total += unit * qty
		} else {
			total += offering.BasePrice * qty
		}
	}

	for _, m := range quote.Measurements {
		total += offering.BasePrice * m.SquareMeters()
	}
	return total
}
