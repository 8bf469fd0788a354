// Package assigner implements C6: picking the best standing runner
// candidacy for each unassigned service-request and creating its Errand
// in one transaction.
package assigner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
	"github.com/neptunehub/campus-errand-engine/internal/scoring"
)

// Assigner runs the periodic C6 pass.
type Assigner struct {
	store     domain.Store
	resources domain.ResourceRepository
	errands   domain.ErrandRepository
	profiles  domain.RunnerProfileRepository
	notifier  domain.Notifier
	log       *slog.Logger
}

// New constructs an Assigner.
func New(store domain.Store, resources domain.ResourceRepository, errands domain.ErrandRepository, profiles domain.RunnerProfileRepository, notifier domain.Notifier, log *slog.Logger) *Assigner {
	return &Assigner{store: store, resources: resources, errands: errands, profiles: profiles, notifier: notifier, log: log}
}

// Run implements §4.6: batched, oldest-first, over every service-request
// in status=matching with no assigned errand.
func (a *Assigner) Run(ctx context.Context) error {
	var after domain.ObjectID
	for {
		page, err := a.resources.List(ctx, domain.ResourceFilter{
			Status:          []domain.ResourceStatus{domain.ResourceStatusMatching},
			Types:           []domain.ResourceType{domain.ResourceTypeServiceRequest},
			ExcludeAssigned: true,
			Limit:           domain.MatchBatchSize,
			After:           after,
		})
		if err != nil {
			return fmt.Errorf("op=assigner.run.list: %w", err)
		}
		for _, req := range page {
			a.assignOne(ctx, req)
		}
		if len(page) < domain.MatchBatchSize {
			return nil
		}
		after = page[len(page)-1].ID
	}
}

// assignOne implements steps 1-5 for a single request. Failures never
// abort the pass: they increment matchAttempts so the request is not
// starved, are logged, and the loop proceeds to the next request.
func (a *Assigner) assignOne(ctx context.Context, req *domain.Resource) {
	candidate, ok, err := a.pickRunner(ctx, req)
	if err != nil {
		a.failAttempt(ctx, req, "pick_runner", err)
		return
	}
	if !ok {
		return
	}

	errand := buildErrand(req, candidate.profile)

	err = a.store.WithTx(ctx, func(ctx context.Context) error {
		if err := a.errands.Insert(ctx, errand); err != nil {
			return fmt.Errorf("op=assigner.run.insert_errand: %w", err)
		}
		if err := a.resources.AssignErrand(ctx, req.ID, errand.ID, domain.ResourceStatusMatching); err != nil {
			return fmt.Errorf("op=assigner.run.assign_resource: %w", err)
		}
		if err := a.profiles.AssignErrandTx(ctx, candidate.profile.ID, req.ID, errand.ID); err != nil {
			return fmt.Errorf("op=assigner.run.assign_profile: %w", err)
		}
		return nil
	})
	if err != nil {
		a.failAttempt(ctx, req, "assign_tx", err)
		return
	}

	a.notifier.Notify(ctx, domain.Notification{
		UserID:  req.UserID,
		Message: "Your errand has been assigned to a runner",
		Data: map[string]any{
			"errandId":   errand.ID.String(),
			"resourceId": req.ID.String(),
			"pickup":     errand.PickupLocation,
			"dropoff":    errand.DropoffLocation,
			"expected":   errand.ExpectedTimeframeString,
		},
	})
}

type rankedCandidate struct {
	profile *domain.RunnerProfile
	entry   domain.PotentialErrandRequest
}

// pickRunner implements steps 1-3: gather assignable profiles carrying a
// qualifying candidacy for req, then rank by (score desc, matchedAt desc,
// profile id asc).
func (a *Assigner) pickRunner(ctx context.Context, req *domain.Resource) (rankedCandidate, bool, error) {
	profiles, err := a.profiles.ListAssignableWithPotentialRequest(ctx, req.ID)
	if err != nil {
		return rankedCandidate{}, false, err
	}

	var candidates []rankedCandidate
	for _, p := range profiles {
		if !p.IsAssignable() {
			continue
		}
		entry, ok := entryForRequest(p, req.ID)
		if !ok || entry.Score < domain.MinMatchScore {
			continue
		}
		candidates = append(candidates, rankedCandidate{profile: p, entry: entry})
	}
	if len(candidates) == 0 {
		return rankedCandidate{}, false, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.entry.Score != b.entry.Score {
			return a.entry.Score > b.entry.Score
		}
		if !a.entry.MatchedAt.Equal(b.entry.MatchedAt) {
			return a.entry.MatchedAt.After(b.entry.MatchedAt)
		}
		return a.profile.ID.String() < b.profile.ID.String()
	})
	return candidates[0], true, nil
}

func entryForRequest(p *domain.RunnerProfile, requestID domain.ObjectID) (domain.PotentialErrandRequest, bool) {
	for _, e := range p.PotentialErrandRequests {
		if e.RequestID == requestID {
			return e, true
		}
	}
	return domain.PotentialErrandRequest{}, false
}

// buildErrand derives the new Errand from the request's specs, the way
// §4.6 step 4a describes.
func buildErrand(req *domain.Resource, profile *domain.RunnerProfile) *domain.Errand {
	specs := scoring.ParseRequestSpecs(req.Specifications)
	return &domain.Errand{
		ID:                domain.NewObjectID(),
		ResourceRequestID: req.ID,
		ErrandRunner:      profile.UserID,
		CurrentStatus:     domain.ErrandStatusPending,
		PickupLocation:    domain.Location{Building: specs.PickupBuilding, Zone: specs.PickupZone},
		DropoffLocation:   domain.Location{Building: specs.DropoffBuilding, Zone: specs.DropoffZone},
		IsDeliveryToDoor:  specs.RequireDoorDrop,
		ExpectedStartTime: timeOrNil(specs.Window.Start),
		ExpectedEndTime:   timeOrNil(specs.Window.End),
		RunnerAssignedAt:  timeNow(),
	}
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (a *Assigner) failAttempt(ctx context.Context, req *domain.Resource, step string, err error) {
	a.log.Error("assigner: step failed, request not assigned this pass",
		"op", "assigner.run."+step, "request_id", req.ID.String(), "err", err)
	if incErr := a.resources.IncrementMatchAttempts(ctx, req.ID); incErr != nil {
		a.log.Error("assigner: failed to increment match attempts",
			"op", "assigner.run.inc_attempts", "request_id", req.ID.String(), "err", incErr)
	}
}

// timeNow is a seam for deterministic tests.
var timeNow = time.Now
