package scoring

import (
	"strings"
	"time"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
)

// TimeWindow is a closed availability interval [Start, End], as carried in a
// service-offer's specifications under the "availability_windows" key.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether w and o share any instant.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return !w.End.Before(o.Start) && !o.End.Before(w.Start)
}

// ErrandRequestSpecs is the subset of a service-request's Specifications
// consumed by ErrandScore.
type ErrandRequestSpecs struct {
	PickupBuilding   string
	PickupZone       string
	DropoffBuilding  string
	DropoffZone      string
	Window           TimeWindow
	RequireDoorDrop  bool
	RequiredEquipment []string
}

// ErrandOfferSpecs is the subset of a service-offer's Specifications
// consumed by ErrandScore.
type ErrandOfferSpecs struct {
	AvailabilityZone    string
	AvailabilityWindows []TimeWindow
}

// ParseRequestSpecs reads the well-known keys a service-request's
// Specifications carries. Missing keys zero-value their field; ErrandScore
// degrades gracefully rather than failing.
func ParseRequestSpecs(specs map[string]any) ErrandRequestSpecs {
	return ErrandRequestSpecs{
		PickupBuilding:    str(specs, "pickup_building"),
		PickupZone:        str(specs, "pickup_zone"),
		DropoffBuilding:   str(specs, "dropoff_building"),
		DropoffZone:       str(specs, "dropoff_zone"),
		Window:            timeWindow(specs, "expected_start_time", "expected_end_time"),
		RequireDoorDrop:   boolean(specs, "is_delivery_to_door"),
		RequiredEquipment: stringSlice(specs, "required_equipment"),
	}
}

// ParseOfferSpecs reads the well-known keys a service-offer's
// Specifications carries.
func ParseOfferSpecs(specs map[string]any) ErrandOfferSpecs {
	out := ErrandOfferSpecs{AvailabilityZone: str(specs, "availability_zone")}
	raw, _ := specs["availability_windows"].([]any)
	for _, w := range raw {
		wm, ok := w.(map[string]any)
		if !ok {
			continue
		}
		out.AvailabilityWindows = append(out.AvailabilityWindows, timeWindow(wm, "start", "end"))
	}
	return out
}

// ErrandScore implements calculate_match_score (§4.5): the compatibility
// score between a service-request, a service-offer, and the candidate
// runner's profile. Clamped to >= 0.
func ErrandScore(req ErrandRequestSpecs, offer ErrandOfferSpecs, profile *domain.RunnerProfile, requestDescription string) int {
	score := 0
	score += locationScore(req, offer, profile)
	if len(offer.AvailabilityWindows) > 0 && !req.Window.Start.IsZero() && req.Window.Overlaps(offer.AvailabilityWindows[0]) {
		score += 20
	}
	if req.RequireDoorDrop {
		if hasDoorDeliveryCapability(profile) {
			score += 15
		} else {
			score -= 10
		}
	}
	if requestDescription != "" && profile.CargoCapacityDescription != "" &&
		strings.Contains(strings.ToLower(profile.CargoCapacityDescription), strings.ToLower(requestDescription)) {
		score += 5
	}
	if len(req.RequiredEquipment) > 0 {
		if hasAllEquipment(profile, req.RequiredEquipment) {
			score += 10
		} else {
			score -= 5
		}
	}
	if score < 0 {
		return 0
	}
	return score
}

// locationScore implements the tiered location rule (§4.5). The top tier
// compares the offer's availability zone against the request's pickup or
// dropoff *building* name — a zone-vs-building comparison that is
// semantically dubious, but preserved verbatim per §9 design note 3.
func locationScore(req ErrandRequestSpecs, offer ErrandOfferSpecs, profile *domain.RunnerProfile) int {
	if offer.AvailabilityZone != "" &&
		((req.PickupBuilding != "" && offer.AvailabilityZone == req.PickupBuilding) ||
			(req.DropoffBuilding != "" && offer.AvailabilityZone == req.DropoffBuilding)) {
		return 50
	}
	inRunnerZone := func(zone string) bool {
		for _, z := range profile.OperatingCampusZones {
			if z == zone {
				return true
			}
		}
		return false
	}
	pickupInZone := inRunnerZone(req.PickupZone)
	dropoffInZone := inRunnerZone(req.DropoffZone)
	if (pickupInZone || dropoffInZone) && offer.AvailabilityZone != "" &&
		(offer.AvailabilityZone == req.PickupZone || offer.AvailabilityZone == req.DropoffZone) {
		return 30
	}
	if pickupInZone || dropoffInZone {
		return 20
	}
	return 0
}

func hasDoorDeliveryCapability(p *domain.RunnerProfile) bool {
	for _, eq := range p.SpecialEquipment {
		if strings.EqualFold(eq, "door_delivery") {
			return true
		}
	}
	return strings.EqualFold(p.VehicleType, "foot") || strings.EqualFold(p.VehicleType, "bicycle")
}

func hasAllEquipment(p *domain.RunnerProfile, required []string) bool {
	held := make(map[string]bool, len(p.SpecialEquipment))
	for _, eq := range p.SpecialEquipment {
		held[strings.ToLower(eq)] = true
	}
	for _, req := range required {
		if !held[strings.ToLower(req)] {
			return false
		}
	}
	return true
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolean(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func stringSlice(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func timeWindow(m map[string]any, startKey, endKey string) TimeWindow {
	return TimeWindow{Start: parseTime(m[startKey]), End: parseTime(m[endKey])}
}

func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}
		}
		return parsed
	default:
		return time.Time{}
	}
}
