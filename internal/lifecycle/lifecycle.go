// Package lifecycle implements C7: the two timeout sweeps over pending
// matches described in §4.7.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
)

// Sweeper runs the periodic cleanup-timed-out-matches pass.
type Sweeper struct {
	matches domain.MatchRepository
	users   domain.UserRepository
	notifier domain.Notifier
	log     *slog.Logger
	window  time.Duration
}

// New constructs a Sweeper using domain.AutoCompleteTimeWindow as both
// timeout windows' duration (§4.7: both 24h, configurable).
func New(matches domain.MatchRepository, users domain.UserRepository, notifier domain.Notifier, log *slog.Logger) *Sweeper {
	return &Sweeper{matches: matches, users: users, notifier: notifier, log: log, window: domain.AutoCompleteTimeWindow}
}

// NewWithWindow lets callers override the timeout window (used by tests).
func NewWithWindow(matches domain.MatchRepository, users domain.UserRepository, notifier domain.Notifier, log *slog.Logger, window time.Duration) *Sweeper {
	return &Sweeper{matches: matches, users: users, notifier: notifier, log: log, window: window}
}

// Run implements §4.7: sweep every pending match and apply whichever
// timeout rule, if any, applies.
func (s *Sweeper) Run(ctx context.Context) error {
	pending, err := s.matches.ListByStatus(ctx, domain.MatchStatusPending, domain.MatchBatchSize)
	if err != nil {
		return fmt.Errorf("op=lifecycle.run.list: %w", err)
	}

	now := timeNow()
	for _, m := range pending {
		switch {
		case m.FirstAcceptanceTime != nil && now.Sub(*m.FirstAcceptanceTime) > s.window:
			s.applyAcceptanceTimeout(ctx, m)
		case m.FirstAcceptanceTime == nil && now.Sub(m.CreatedAt) > s.window:
			s.applyPendingTimeout(ctx, m)
		}
	}
	return nil
}

// applyAcceptanceTimeout implements Timeout A: the side that never
// accepted is penalized 5 points, and both users are notified.
func (s *Sweeper) applyAcceptanceTimeout(ctx context.Context, m *domain.Match) {
	err := s.matches.CompareAndSwapStatus(ctx, m.ID, domain.MatchStatusPending, domain.MatchStatusCancelled, func(mm *domain.Match) {
		mm.CancellationReason = "Acceptance window expired"
		if mm.RequesterAcceptedSuggestedPrice {
			mm.TimeoutPenaltyAppliedTo = mm.Owner
		} else {
			mm.TimeoutPenaltyAppliedTo = mm.Requester
		}
	})
	if err != nil {
		s.log.Error("lifecycle: acceptance timeout transition failed",
			"op", "lifecycle.run.acceptance_timeout", "match_id", m.ID.String(), "err", err)
		return
	}

	penalized := m.Requester
	if m.RequesterAcceptedSuggestedPrice {
		penalized = m.Owner
	}
	if err := s.users.AdjustPoints(ctx, penalized, -5); err != nil {
		s.log.Error("lifecycle: points penalty failed",
			"op", "lifecycle.run.acceptance_timeout.penalty", "match_id", m.ID.String(), "user_id", penalized.String(), "err", err)
	}

	s.notifier.Notify(ctx, domain.Notification{
		RecipientUserIDs: []domain.ObjectID{m.Requester, m.Owner},
		MessageKey:       "match_timed_out_penalty",
		Data:             map[string]any{"matchId": m.ID.String(), "penalizedUserId": penalized.String()},
	})
}

// applyPendingTimeout implements Timeout B: no penalty, different
// notification key.
func (s *Sweeper) applyPendingTimeout(ctx context.Context, m *domain.Match) {
	err := s.matches.CompareAndSwapStatus(ctx, m.ID, domain.MatchStatusPending, domain.MatchStatusCancelled, func(mm *domain.Match) {
		mm.CancellationReason = "Initial pending window expired"
	})
	if err != nil {
		s.log.Error("lifecycle: pending timeout transition failed",
			"op", "lifecycle.run.pending_timeout", "match_id", m.ID.String(), "err", err)
		return
	}

	s.notifier.Notify(ctx, domain.Notification{
		RecipientUserIDs: []domain.ObjectID{m.Requester, m.Owner},
		MessageKey:       "match_cancelled_no_action",
		Data:             map[string]any{"matchId": m.ID.String()},
	})
}

// timeNow is a seam for deterministic tests.
var timeNow = time.Now
