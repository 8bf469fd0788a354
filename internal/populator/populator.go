// Package populator implements C5: scoring (service-request, service-offer)
// pairs against runner profiles and upserting the winning candidacies into
// each profile's potential-errand-requests sequence.
package populator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
	"github.com/neptunehub/campus-errand-engine/internal/scoring"
)

// Window is how far back "recently touched" looks (§4.5: 10 minutes).
const Window = 10 * time.Minute

// Populator runs the periodic C5 pass.
type Populator struct {
	resources domain.ResourceRepository
	profiles  domain.RunnerProfileRepository
	log       *slog.Logger
}

// New constructs a Populator.
func New(resources domain.ResourceRepository, profiles domain.RunnerProfileRepository, log *slog.Logger) *Populator {
	return &Populator{resources: resources, profiles: profiles, log: log}
}

// Run implements the §4.5 pass: fetch recently-touched requests/offers,
// score every (request, offer, runner) triple, and upsert qualifying
// candidacies.
func (p *Populator) Run(ctx context.Context) error {
	cutoff := timeNow().Add(-Window)

	requests, err := p.resources.List(ctx, domain.ResourceFilter{
		Status:          []domain.ResourceStatus{domain.ResourceStatusSubmitted, domain.ResourceStatusMatching},
		Types:           []domain.ResourceType{domain.ResourceTypeServiceRequest},
		UpdatedAfter:    &cutoff,
		ExcludeAssigned: true,
		Limit:           domain.MatchBatchSize,
	})
	if err != nil {
		return fmt.Errorf("op=populator.run.list_requests: %w", err)
	}

	offers, err := p.resources.List(ctx, domain.ResourceFilter{
		Status:       []domain.ResourceStatus{domain.ResourceStatusActive, domain.ResourceStatusAvailable},
		Types:        []domain.ResourceType{domain.ResourceTypeServiceOffer},
		UpdatedAfter: &cutoff,
		Limit:        domain.MatchBatchSize,
	})
	if err != nil {
		return fmt.Errorf("op=populator.run.list_offers: %w", err)
	}

	profiles, err := p.profiles.ListAll(ctx, domain.MatchBatchSize)
	if err != nil {
		return fmt.Errorf("op=populator.run.list_profiles: %w", err)
	}
	profileByOfferUser := make(map[domain.ObjectID]*domain.RunnerProfile, len(profiles))
	for _, prof := range profiles {
		profileByOfferUser[prof.UserID] = prof
	}

	for _, req := range requests {
		reqSpecs := scoring.ParseRequestSpecs(req.Specifications)
		for _, offer := range offers {
			profile, ok := profileByOfferUser[offer.UserID]
			if !ok {
				continue
			}
			offerSpecs := scoring.ParseOfferSpecs(offer.Specifications)
			score := scoring.ErrandScore(reqSpecs, offerSpecs, profile, req.Description)
			if score < domain.MinMatchScore {
				continue
			}
			entry := domain.PotentialErrandRequest{
				RequestID: req.ID,
				OfferID:   offer.ID,
				Score:     score,
				MatchedAt: timeNow(),
			}
			if err := p.profiles.UpsertPotentialMatch(ctx, profile.ID, entry); err != nil {
				p.log.Error("populator: upsert potential match failed",
					"op", "populator.run.upsert", "request_id", req.ID.String(), "profile_id", profile.ID.String(), "err", err)
				continue
			}
		}
	}
	return nil
}

// timeNow is a seam for deterministic tests.
var timeNow = time.Now
