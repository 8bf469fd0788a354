package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CleanupService prunes completed/cancelled matches and their errands past
// the configured retention window.
type CleanupService struct {
	Pool          *pgxpool.Pool
	RetentionDays int
}

// NewCleanupService creates a new cleanup service.
func NewCleanupService(pool *pgxpool.Pool, retentionDays int) *CleanupService {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &CleanupService{Pool: pool, RetentionDays: retentionDays}
}

// CleanupOldData removes completed/cancelled matches (and their linked
// errands) whose updated_at is older than the retention window.
func (s *CleanupService) CleanupOldData(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -s.RetentionDays)

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("op=cleanup.begin_tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var deletedErrands int64
	err = tx.QueryRow(ctx, `
		WITH old_matches AS (
			SELECT resource1, resource2 FROM matches
			WHERE status IN ('completed','cancelled') AND updated_at < $1
		), deleted AS (
			DELETE FROM errands
			WHERE resource_request_id IN (SELECT resource1 FROM old_matches UNION SELECT resource2 FROM old_matches)
			RETURNING 1
		)
		SELECT count(*) FROM deleted
	`, cutoff).Scan(&deletedErrands)
	if err != nil {
		slog.Debug("no errands to delete", slog.Any("error", err))
	}

	var deletedMatches int64
	err = tx.QueryRow(ctx, `
		WITH deleted AS (
			DELETE FROM matches
			WHERE status IN ('completed','cancelled') AND updated_at < $1
			RETURNING 1
		)
		SELECT count(*) FROM deleted
	`, cutoff).Scan(&deletedMatches)
	if err != nil {
		slog.Debug("no matches to delete", slog.Any("error", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=cleanup.commit: %w", err)
	}

	slog.Info("data cleanup completed",
		slog.Int64("deleted_matches", deletedMatches),
		slog.Int64("deleted_errands", deletedErrands),
		slog.Time("cutoff", cutoff),
	)

	return nil
}

// RunPeriodic starts a periodic cleanup job; it runs once immediately, then
// on every tick of interval until ctx is cancelled.
func (s *CleanupService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.CleanupOldData(ctx); err != nil {
		slog.Error("initial cleanup failed", slog.Any("error", err))
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup service stopping")
			return
		case <-ticker.C:
			if err := s.CleanupOldData(ctx); err != nil {
				slog.Error("periodic cleanup failed", slog.Any("error", err))
			}
		}
	}
}
