package domain

import "time"

// Thresholds shared across components, at their documented default
// values (see §6.4). These are compile-time constants: internal/config
// has no environment variable that overrides any of them.
const (
	// ErrandFee is the fixed offset added between suggested buyer and
	// seller prices (§4.3, §4.4).
	ErrandFee = 2.0
	// MinMatchScore gates match creation (§4.4) and runner eligibility
	// (§4.6).
	MinMatchScore = 5
	// MatchBatchSize bounds per-pass work in the goods-match engine (§4.4)
	// and the populator/assigner batches (§4.5, §4.6).
	MatchBatchSize = 1000
	// MinRequiredCredits is carried from §6.4 though unused by any C1-C11
	// algorithm in scope here; external callers (out of scope) gate on it.
	MinRequiredCredits = 60
	// AutoCompleteTimeWindow is both lifecycle timeout windows' duration
	// and the auto-completer's staleness threshold (§4.7, §4.8).
	AutoCompleteTimeWindow = 24 * time.Hour
)

// CompatibleTypePairs is the §4.3 compatibility table: resource type A is
// compatible with resource type B (order-independent) only for these pairs.
var CompatibleTypePairs = map[ResourceType]ResourceType{
	ResourceTypeBuy:            ResourceTypeSell,
	ResourceTypeSell:           ResourceTypeBuy,
	ResourceTypeRent:           ResourceTypeLease,
	ResourceTypeLease:          ResourceTypeRent,
	ResourceTypeServiceRequest: ResourceTypeServiceOffer,
	ResourceTypeServiceOffer:   ResourceTypeServiceRequest,
}

// TypesCompatible reports whether a and b may be matched against each
// other under the §4.3 compatibility table.
func TypesCompatible(a, b ResourceType) bool {
	return CompatibleTypePairs[a] == b
}

// IsBuyerSide reports whether t is the "buyer" orientation of a
// compatible pair (buy, rent, service-request); the complementary
// "seller" orientation is sell/lease/service-offer.
func IsBuyerSide(t ResourceType) bool {
	switch t {
	case ResourceTypeBuy, ResourceTypeRent, ResourceTypeServiceRequest:
		return true
	default:
		return false
	}
}
