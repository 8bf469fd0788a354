package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpecScore(t *testing.T) {
	a := map[string]any{"subject": "高等数学", "edition": "三"}
	b := map[string]any{"subject": "高等数学", "edition": "五"}
	assert.Equal(t, 2, SpecScore(a, b), "only subject matches")
}

func TestSpecScore_NoOverlap(t *testing.T) {
	assert.Equal(t, 0, SpecScore(map[string]any{"a": 1}, map[string]any{"b": 1}))
}

func TestPriceCompatible(t *testing.T) {
	buyer := 50.0
	seller := 40.0
	assert.True(t, PriceCompatible(&buyer, &seller))

	seller2 := 49.0
	assert.False(t, PriceCompatible(&buyer, &seller2), "fails when under the errand fee margin")

	assert.False(t, PriceCompatible(nil, &seller))
	assert.False(t, PriceCompatible(&buyer, nil))
}

func TestSuggestedPrices_S1Scenario(t *testing.T) {
	// S1 literal scenario: requester original 50, owner original 40.
	suggestedRequester, suggestedOwner := SuggestedPrices(50, 40)
	assert.Equal(t, 42.0, suggestedRequester)
	assert.Equal(t, 48.0, suggestedOwner)
}
