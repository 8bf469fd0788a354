// Package autocomplete implements C8: crediting the owner's wallet and
// awarding points/credits once an erranding match's linked errand has
// sat completed past the auto-complete window.
package autocomplete

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
)

// Completer runs the daily auto-complete pass (§4.8).
type Completer struct {
	store   domain.Store
	matches domain.MatchRepository
	users   domain.UserRepository
	wallets domain.WalletRepository
	log     *slog.Logger
	window  time.Duration
}

// New constructs a Completer using domain.AutoCompleteTimeWindow.
func New(store domain.Store, matches domain.MatchRepository, users domain.UserRepository, wallets domain.WalletRepository, log *slog.Logger) *Completer {
	return &Completer{store: store, matches: matches, users: users, wallets: wallets, log: log, window: domain.AutoCompleteTimeWindow}
}

// NewWithWindow lets callers override the window (used by tests).
func NewWithWindow(store domain.Store, matches domain.MatchRepository, users domain.UserRepository, wallets domain.WalletRepository, log *slog.Logger, window time.Duration) *Completer {
	return &Completer{store: store, matches: matches, users: users, wallets: wallets, log: log, window: window}
}

// Run joins matches(status=erranding) against their linked errand's
// completedAt (via MatchRepository.ListErrandingPastThreshold) and
// completes every row past the window, idempotent by status check.
func (c *Completer) Run(ctx context.Context) error {
	cutoff := timeNow().Add(-c.window)
	due, err := c.matches.ListErrandingPastThreshold(ctx, cutoff, domain.MatchBatchSize)
	if err != nil {
		return fmt.Errorf("op=autocomplete.run.list: %w", err)
	}
	for _, m := range due {
		c.completeOne(ctx, m)
	}
	return nil
}

// completeOne implements the four-step transaction: credit the owner's
// wallet, award points, bump credits (capped), and flip status. The
// conditional status check (performed inside CompareAndSwapStatus) keeps
// re-runs a no-op.
func (c *Completer) completeOne(ctx context.Context, m *domain.Match) {
	if m.FinalAmount == nil {
		c.log.Error("autocomplete: match has no finalAmount, skipping",
			"op", "autocomplete.run.complete", "match_id", m.ID.String())
		return
	}
	amount := *m.FinalAmount

	tx := domain.WalletTransaction{
		ID:             domain.NewObjectID(),
		UserID:         m.Owner,
		Type:           domain.WalletTransactionCredit,
		Amount:         amount,
		Description:    "Errand completion payout",
		ReferenceID:    m.ID,
		ReferenceModel: "Match",
		ProcessedBy:    "System",
	}

	err := c.store.WithTx(ctx, func(ctx context.Context) error {
		if err := c.wallets.Credit(ctx, m.Owner, amount, tx); err != nil {
			return fmt.Errorf("op=autocomplete.run.credit: %w", err)
		}
		if err := c.users.AdjustPoints(ctx, m.Owner, int(math.Floor(amount))); err != nil {
			return fmt.Errorf("op=autocomplete.run.points: %w", err)
		}
		if err := c.users.IncrementCreditsCapped(ctx, m.Owner); err != nil {
			return fmt.Errorf("op=autocomplete.run.credits: %w", err)
		}
		if err := c.matches.CompareAndSwapStatus(ctx, m.ID, domain.MatchStatusErranding, domain.MatchStatusCompleted, func(*domain.Match) {}); err != nil {
			return fmt.Errorf("op=autocomplete.run.cas: %w", err)
		}
		return nil
	})
	if err != nil {
		c.log.Error("autocomplete: transaction failed",
			"op", "autocomplete.run.complete_tx", "match_id", m.ID.String(), "owner_id", m.Owner.String(), "err", err)
	}
}

// timeNow is a seam for deterministic tests.
var timeNow = time.Now
