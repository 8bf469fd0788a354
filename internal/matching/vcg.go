package matching

import "sort"

// PricedCandidate is one candidate pairing with the prices and
// orientations VCG pricing needs: Buyer* fields describe the buy/rent/
// service-request side, Seller* the sell/lease/service-offer side.
type PricedCandidate struct {
	BuyerNode   string
	SellerNode  string
	BuyerPrice  float64
	SellerPrice float64
	// Reversed is true when, in the original candidate's (resource1,
	// resource2) orientation, resource1 was the seller — DetermineVCGPrices
	// uses it to pick the seller-receipt rule.
	Reversed bool
}

// VCGPrice is the determined (buyerPays, sellerReceives) pair for one
// selected candidate.
type VCGPrice struct {
	BuyerPays      float64
	SellerReceives float64
}

// DetermineVCGPrices implements determine_vcg_prices_for_tier (§4.4 step
// 3): for each selected candidate, the buyer pays min(bid,
// secondBestSeller) (their own bid if no second seller exists in the
// tier pool); the seller receives their own ask, except that for a
// Reversed candidate with a second buyer price in the pool the seller
// receives max(bid, secondBestBuyer). Both quantities are
// computed from the *entire* available tier pool, not just the selected
// matches.
func DetermineVCGPrices(selected []PricedCandidate, tierPool []PricedCandidate) map[string]VCGPrice {
	result := make(map[string]VCGPrice, len(selected))
	if len(selected) == 0 {
		return result
	}

	secondBestBuyer, secondBestSeller := secondBestPrices(tierPool)

	for _, c := range selected {
		buyerPays := c.BuyerPrice
		if secondBestSeller != nil {
			buyerPays = min(c.BuyerPrice, *secondBestSeller)
		}

		sellerReceives := c.SellerPrice
		if c.Reversed && secondBestBuyer != nil {
			sellerReceives = max(c.BuyerPrice, *secondBestBuyer)
		}

		result[edgeKey(c.BuyerNode, c.SellerNode)] = VCGPrice{
			BuyerPays:      buyerPays,
			SellerReceives: sellerReceives,
		}
	}
	return result
}

// secondBestPrices returns the second-largest unique buyer price and the
// second-smallest unique seller price across the tier pool, or nil if
// fewer than two distinct prices exist on that side.
func secondBestPrices(pool []PricedCandidate) (secondBestBuyer, secondBestSeller *float64) {
	buyerSet := map[float64]bool{}
	sellerSet := map[float64]bool{}
	for _, c := range pool {
		buyerSet[c.BuyerPrice] = true
		sellerSet[c.SellerPrice] = true
	}

	buyers := make([]float64, 0, len(buyerSet))
	for p := range buyerSet {
		buyers = append(buyers, p)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(buyers))) // descending
	if len(buyers) > 1 {
		v := buyers[1]
		secondBestBuyer = &v
	}

	sellers := make([]float64, 0, len(sellerSet))
	for p := range sellerSet {
		sellers = append(sellers, p)
	}
	sort.Float64s(sellers) // ascending
	if len(sellers) > 1 {
		v := sellers[1]
		secondBestSeller = &v
	}

	return secondBestBuyer, secondBestSeller
}
