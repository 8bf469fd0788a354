package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
)

// MatchRepo persists and loads matches from PostgreSQL.
type MatchRepo struct{ Pool PgxPool }

// NewMatchRepo constructs a MatchRepo with the given pool.
func NewMatchRepo(p PgxPool) *MatchRepo { return &MatchRepo{Pool: p} }

var _ domain.MatchRepository = (*MatchRepo)(nil)

const matchColumns = `id, resource1, resource2, requester, owner, score,
	original_price_requester, original_price_owner,
	suggested_price_requester, suggested_price_owner,
	resource1_payment, resource2_receipt, final_amount,
	status, first_acceptance_time,
	requester_accepted_suggested_price, owner_accepted_suggested_price,
	rejected_by, timeout_penalty_applied_to, cancellation_reason,
	created_at, updated_at`

func scanMatch(row pgx.Row) (*domain.Match, error) {
	var m domain.Match
	var id, resource1, resource2, requester, owner string
	var rejectedBy, penaltyAppliedTo *string
	if err := row.Scan(&id, &resource1, &resource2, &requester, &owner, &m.Score,
		&m.OriginalPriceRequester, &m.OriginalPriceOwner,
		&m.SuggestedPriceRequester, &m.SuggestedPriceOwner,
		&m.Resource1Payment, &m.Resource2Receipt, &m.FinalAmount,
		&m.Status, &m.FirstAcceptanceTime,
		&m.RequesterAcceptedSuggestedPrice, &m.OwnerAcceptedSuggestedPrice,
		&rejectedBy, &penaltyAppliedTo, &m.CancellationReason,
		&m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if m.ID, err = domain.ParseObjectID(id); err != nil {
		return nil, fmt.Errorf("op=match.scan.id: %w", err)
	}
	if m.Resource1, err = domain.ParseObjectID(resource1); err != nil {
		return nil, fmt.Errorf("op=match.scan.resource1: %w", err)
	}
	if m.Resource2, err = domain.ParseObjectID(resource2); err != nil {
		return nil, fmt.Errorf("op=match.scan.resource2: %w", err)
	}
	if m.Requester, err = domain.ParseObjectID(requester); err != nil {
		return nil, fmt.Errorf("op=match.scan.requester: %w", err)
	}
	if m.Owner, err = domain.ParseObjectID(owner); err != nil {
		return nil, fmt.Errorf("op=match.scan.owner: %w", err)
	}
	if m.RejectedBy, err = scanID(rejectedBy); err != nil {
		return nil, err
	}
	if m.TimeoutPenaltyAppliedTo, err = scanID(penaltyAppliedTo); err != nil {
		return nil, err
	}
	return &m, nil
}

// Get loads a match by id.
func (r *MatchRepo) Get(ctx domain.Context, id domain.ObjectID) (*domain.Match, error) {
	tracer := otel.Tracer("repo.matches")
	ctx, span := tracer.Start(ctx, "matches.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "matches"),
	)
	q := `SELECT ` + matchColumns + ` FROM matches WHERE id=$1`
	m, err := scanMatch(r.Pool.QueryRow(ctx, q, id.String()))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("op=match.get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("op=match.get: %w", err)
	}
	return m, nil
}

// Insert creates a single match.
func (r *MatchRepo) Insert(ctx domain.Context, m *domain.Match) error {
	tracer := otel.Tracer("repo.matches")
	ctx, span := tracer.Start(ctx, "matches.Insert")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "matches"),
	)
	return r.insertOne(ctx, r.Pool, m)
}

// InsertBatch creates many matches in a single transaction.
func (r *MatchRepo) InsertBatch(ctx domain.Context, matches []*domain.Match) error {
	tracer := otel.Tracer("repo.matches")
	ctx, span := tracer.Start(ctx, "matches.InsertBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "matches"),
	)
	if len(matches) == 0 {
		return nil
	}
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("op=match.insert_batch.begin_tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()
	for _, m := range matches {
		if err := r.insertOne(ctx, tx, m); err != nil {
			return fmt.Errorf("op=match.insert_batch: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=match.insert_batch.commit: %w", err)
	}
	committed = true
	return nil
}

// execer is the subset of PgxPool/pgx.Tx that insertOne needs, so it can
// run either standalone or inside InsertBatch's transaction.
type execer interface {
	Exec(ctx domain.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *MatchRepo) insertOne(ctx domain.Context, exec execer, m *domain.Match) error {
	if m.ID.IsZero() {
		m.ID = domain.NewObjectID()
	}
	q := `INSERT INTO matches (` + matchColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`
	_, err := exec.Exec(ctx, q,
		m.ID.String(), m.Resource1.String(), m.Resource2.String(), m.Requester.String(), m.Owner.String(), m.Score,
		m.OriginalPriceRequester, m.OriginalPriceOwner,
		m.SuggestedPriceRequester, m.SuggestedPriceOwner,
		m.Resource1Payment, m.Resource2Receipt, m.FinalAmount,
		m.Status, m.FirstAcceptanceTime,
		m.RequesterAcceptedSuggestedPrice, m.OwnerAcceptedSuggestedPrice,
		idOrNil(m.RejectedBy), idOrNil(m.TimeoutPenaltyAppliedTo), m.CancellationReason,
		m.CreatedAt, m.UpdatedAt)
	return err
}

// ListByStatus returns matches in the given status, oldest first.
func (r *MatchRepo) ListByStatus(ctx domain.Context, status domain.MatchStatus, limit int) ([]*domain.Match, error) {
	tracer := otel.Tracer("repo.matches")
	ctx, span := tracer.Start(ctx, "matches.ListByStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "matches"),
	)
	q := `SELECT ` + matchColumns + ` FROM matches WHERE status=$1 ORDER BY created_at ASC LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, status, limit)
	if err != nil {
		return nil, fmt.Errorf("op=match.list_by_status: %w", err)
	}
	defer rows.Close()

	var out []*domain.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("op=match.list_by_status_scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=match.list_by_status_rows: %w", err)
	}
	return out, nil
}

// ListErrandingPastThreshold joins matches(status=erranding) with their
// linked errand and returns those whose errand.completedAt is at or before
// the cutoff.
func (r *MatchRepo) ListErrandingPastThreshold(ctx domain.Context, cutoff time.Time, limit int) ([]*domain.Match, error) {
	tracer := otel.Tracer("repo.matches")
	ctx, span := tracer.Start(ctx, "matches.ListErrandingPastThreshold")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "matches"),
	)
	cols := make([]string, 0)
	for _, c := range []string{"id", "resource1", "resource2", "requester", "owner", "score",
		"original_price_requester", "original_price_owner",
		"suggested_price_requester", "suggested_price_owner",
		"resource1_payment", "resource2_receipt", "final_amount",
		"status", "first_acceptance_time",
		"requester_accepted_suggested_price", "owner_accepted_suggested_price",
		"rejected_by", "timeout_penalty_applied_to", "cancellation_reason",
		"created_at", "updated_at"} {
		cols = append(cols, "m."+c)
	}
	q := `SELECT ` + joinCols(cols) + ` FROM matches m
		JOIN errands e ON e.resource_request_id = m.resource1 OR e.resource_request_id = m.resource2
		WHERE m.status=$1 AND e.completed_at IS NOT NULL AND e.completed_at <= $2
		ORDER BY e.completed_at ASC LIMIT $3`
	rows, err := r.Pool.Query(ctx, q, domain.MatchStatusErranding, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("op=match.list_erranding_past_threshold: %w", err)
	}
	defer rows.Close()

	var out []*domain.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("op=match.list_erranding_past_threshold_scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=match.list_erranding_past_threshold_rows: %w", err)
	}
	return out, nil
}

func joinCols(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

// CompareAndSwapStatus performs the conditional {id, status=from} write used
// by the lifecycle cleanup to stay idempotent under races: it loads the
// match, applies mutate, then updates conditioned on status still being
// from, all inside one transaction.
func (r *MatchRepo) CompareAndSwapStatus(ctx domain.Context, id domain.ObjectID, from, to domain.MatchStatus, mutate func(*domain.Match)) error {
	tracer := otel.Tracer("repo.matches")
	ctx, span := tracer.Start(ctx, "matches.CompareAndSwapStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "matches"),
	)

	return runInTx(ctx, r.Pool, func(ctx context.Context, tx pgx.Tx) error {
		q := `SELECT ` + matchColumns + ` FROM matches WHERE id=$1 AND status=$2 FOR UPDATE`
		m, err := scanMatch(tx.QueryRow(ctx, q, id.String(), from))
		if err != nil {
			if err == pgx.ErrNoRows {
				return fmt.Errorf("op=match.cas_status: %w", domain.ErrConflict)
			}
			return fmt.Errorf("op=match.cas_status: %w", err)
		}

		mutate(m)
		m.Status = to

		update := `UPDATE matches SET
			resource1_payment=$2, resource2_receipt=$3, final_amount=$4, status=$5,
			first_acceptance_time=$6, requester_accepted_suggested_price=$7,
			owner_accepted_suggested_price=$8, rejected_by=$9,
			timeout_penalty_applied_to=$10, cancellation_reason=$11, updated_at=now()
			WHERE id=$1 AND status=$12`
		tag, err := tx.Exec(ctx, update, id.String(),
			m.Resource1Payment, m.Resource2Receipt, m.FinalAmount, m.Status,
			m.FirstAcceptanceTime, m.RequesterAcceptedSuggestedPrice,
			m.OwnerAcceptedSuggestedPrice, idOrNil(m.RejectedBy),
			idOrNil(m.TimeoutPenaltyAppliedTo), m.CancellationReason, from)
		if err != nil {
			return fmt.Errorf("op=match.cas_status.update: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("op=match.cas_status: %w", domain.ErrConflict)
		}
		return nil
	})
}
