// Package scoring implements C3: the name+spec compatibility score between
// two resources, price compatibility, and (in errandscore.go) the
// service-request/service-offer errand score.
package scoring

import (
	"encoding/json"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
	"github.com/neptunehub/campus-errand-engine/internal/similarity"
)

// Score computes the total score between two resources per §4.3: name
// score (semantic cosine * weight + levenshtein bonus) plus spec score (2
// points per spec key whose canonical JSON value matches).
func Score(aName string, aVec []float64, aSpecs map[string]any, bName string, bVec []float64, bSpecs map[string]any) int {
	name := similarity.WeightedNameScore(aVec, bVec) + float64(similarity.LevenshteinBonus(aName, bName))
	spec := SpecScore(aSpecs, bSpecs)
	return int(name) + spec
}

// SpecScore returns 2 points per key present in both spec maps whose
// canonical (sorted-key) JSON serialization is identical.
func SpecScore(a, b map[string]any) int {
	score := 0
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			continue
		}
		aj, err1 := json.Marshal(av)
		bj, err2 := json.Marshal(bv)
		if err1 != nil || err2 != nil {
			continue
		}
		if string(aj) == string(bj) {
			score += 2
		}
	}
	return score
}

// PriceCompatible reports whether buyerPrice/sellerPrice are compatible
// under §4.3: buyerPrice >= sellerPrice + ERRAND_FEE. Nil/non-numeric
// prices are never compatible.
func PriceCompatible(buyerPrice, sellerPrice *float64) bool {
	if buyerPrice == nil || sellerPrice == nil {
		return false
	}
	return *buyerPrice >= *sellerPrice+domain.ErrandFee
}

// SuggestedPrices computes the unique-winner-rule suggested prices (§4.4):
// the requester (buyer side) is suggested the owner's original price plus
// the errand fee; the owner is suggested the requester's original price
// minus the errand fee.
func SuggestedPrices(originalRequesterPrice, originalOwnerPrice float64) (suggestedRequester, suggestedOwner float64) {
	return originalOwnerPrice + domain.ErrandFee, originalRequesterPrice - domain.ErrandFee
}
