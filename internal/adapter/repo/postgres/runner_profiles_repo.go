package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
)

// RunnerProfileRepo persists and loads runner profiles, plus their
// normalized runner_potential_errand_requests child rows, from PostgreSQL.
type RunnerProfileRepo struct{ Pool PgxPool }

// NewRunnerProfileRepo constructs a RunnerProfileRepo with the given pool.
func NewRunnerProfileRepo(p PgxPool) *RunnerProfileRepo { return &RunnerProfileRepo{Pool: p} }

var _ domain.RunnerProfileRepository = (*RunnerProfileRepo)(nil)

const runnerProfileColumns = `id, user_id, operating_campus_zones, vehicle_type,
	special_equipment, cargo_capacity_description, current_active_errand`

func scanRunnerProfile(row pgx.Row) (*domain.RunnerProfile, error) {
	var p domain.RunnerProfile
	var id, userID string
	var currentActiveErrand *string
	if err := row.Scan(&id, &userID, &p.OperatingCampusZones, &p.VehicleType,
		&p.SpecialEquipment, &p.CargoCapacityDescription, &currentActiveErrand); err != nil {
		return nil, err
	}
	var err error
	if p.ID, err = domain.ParseObjectID(id); err != nil {
		return nil, fmt.Errorf("op=runner_profile.scan.id: %w", err)
	}
	if p.UserID, err = domain.ParseObjectID(userID); err != nil {
		return nil, fmt.Errorf("op=runner_profile.scan.user_id: %w", err)
	}
	if p.CurrentActiveErrand, err = scanID(currentActiveErrand); err != nil {
		return nil, err
	}
	return &p, nil
}

// loadPotentialRequests populates p.PotentialErrandRequests from the child
// table. Called after scanRunnerProfile since it needs p.ID and a live ctx.
func (r *RunnerProfileRepo) loadPotentialRequests(ctx domain.Context, p *domain.RunnerProfile) error {
	q := `SELECT request_id, offer_id, score, matched_at
		FROM runner_potential_errand_requests WHERE profile_id=$1 ORDER BY matched_at ASC`
	rows, err := r.Pool.Query(ctx, q, p.ID.String())
	if err != nil {
		return fmt.Errorf("op=runner_profile.load_potential_requests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var requestID, offerID string
		var entry domain.PotentialErrandRequest
		if err := rows.Scan(&requestID, &offerID, &entry.Score, &entry.MatchedAt); err != nil {
			return fmt.Errorf("op=runner_profile.load_potential_requests_scan: %w", err)
		}
		if entry.RequestID, err = domain.ParseObjectID(requestID); err != nil {
			return fmt.Errorf("op=runner_profile.load_potential_requests.request_id: %w", err)
		}
		if entry.OfferID, err = domain.ParseObjectID(offerID); err != nil {
			return fmt.Errorf("op=runner_profile.load_potential_requests.offer_id: %w", err)
		}
		p.PotentialErrandRequests = append(p.PotentialErrandRequests, entry)
	}
	return rows.Err()
}

// Get loads a runner profile, with its potential-request candidacies, by id.
func (r *RunnerProfileRepo) Get(ctx domain.Context, id domain.ObjectID) (*domain.RunnerProfile, error) {
	tracer := otel.Tracer("repo.runner_profiles")
	ctx, span := tracer.Start(ctx, "runner_profiles.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "runner_profiles"),
	)
	q := `SELECT ` + runnerProfileColumns + ` FROM runner_profiles WHERE id=$1`
	p, err := scanRunnerProfile(r.Pool.QueryRow(ctx, q, id.String()))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("op=runner_profile.get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("op=runner_profile.get: %w", err)
	}
	if err := r.loadPotentialRequests(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListAssignableWithPotentialRequest returns assignable profiles
// (CurrentActiveErrand zero) carrying a potential-request entry for
// requestID.
func (r *RunnerProfileRepo) ListAssignableWithPotentialRequest(ctx domain.Context, requestID domain.ObjectID) ([]*domain.RunnerProfile, error) {
	tracer := otel.Tracer("repo.runner_profiles")
	ctx, span := tracer.Start(ctx, "runner_profiles.ListAssignableWithPotentialRequest")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "runner_profiles"),
	)
	cols := make([]string, 0, 7)
	for _, c := range []string{"id", "user_id", "operating_campus_zones", "vehicle_type",
		"special_equipment", "cargo_capacity_description", "current_active_errand"} {
		cols = append(cols, "rp."+c)
	}
	q := `SELECT ` + joinCols(cols) + ` FROM runner_profiles rp
		JOIN runner_potential_errand_requests per ON per.profile_id = rp.id
		WHERE per.request_id=$1 AND rp.current_active_errand IS NULL
		ORDER BY per.score DESC`
	rows, err := r.Pool.Query(ctx, q, requestID.String())
	if err != nil {
		return nil, fmt.Errorf("op=runner_profile.list_assignable: %w", err)
	}
	defer rows.Close()

	var out []*domain.RunnerProfile
	for rows.Next() {
		p, err := scanRunnerProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("op=runner_profile.list_assignable_scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=runner_profile.list_assignable_rows: %w", err)
	}
	for _, p := range out {
		if err := r.loadPotentialRequests(ctx, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListAll returns up to limit runner profiles eligible for scoring against
// freshly-touched service-offers/requests.
func (r *RunnerProfileRepo) ListAll(ctx domain.Context, limit int) ([]*domain.RunnerProfile, error) {
	tracer := otel.Tracer("repo.runner_profiles")
	ctx, span := tracer.Start(ctx, "runner_profiles.ListAll")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "runner_profiles"),
	)
	q := `SELECT ` + runnerProfileColumns + ` FROM runner_profiles ORDER BY id ASC LIMIT $1`
	rows, err := r.Pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("op=runner_profile.list_all: %w", err)
	}
	defer rows.Close()

	var out []*domain.RunnerProfile
	for rows.Next() {
		p, err := scanRunnerProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("op=runner_profile.list_all_scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=runner_profile.list_all_rows: %w", err)
	}
	for _, p := range out {
		if err := r.loadPotentialRequests(ctx, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpsertPotentialMatch updates the entry for entry.RequestID if present,
// else appends it, replacing the two-pass $set/$push sequence a
// document-store implementation would need with a single statement.
func (r *RunnerProfileRepo) UpsertPotentialMatch(ctx domain.Context, profileID domain.ObjectID, entry domain.PotentialErrandRequest) error {
	tracer := otel.Tracer("repo.runner_profiles")
	ctx, span := tracer.Start(ctx, "runner_profiles.UpsertPotentialMatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPSERT"),
		attribute.String("db.sql.table", "runner_potential_errand_requests"),
	)
	q := `INSERT INTO runner_potential_errand_requests (profile_id, request_id, offer_id, score, matched_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (profile_id, request_id) DO UPDATE SET
			offer_id = $3, score = $4, matched_at = $5`
	if _, err := r.Pool.Exec(ctx, q, profileID.String(), entry.RequestID.String(), entry.OfferID.String(),
		entry.Score, entry.MatchedAt); err != nil {
		return fmt.Errorf("op=runner_profile.upsert_potential_match: %w", err)
	}
	return nil
}

// AssignErrandTx removes the potential-request entry for requestID and sets
// CurrentActiveErrand, conditioned on the profile still being assignable.
func (r *RunnerProfileRepo) AssignErrandTx(ctx domain.Context, profileID domain.ObjectID, requestID domain.ObjectID, errandID domain.ObjectID) error {
	tracer := otel.Tracer("repo.runner_profiles")
	ctx, span := tracer.Start(ctx, "runner_profiles.AssignErrandTx")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "runner_profiles"),
	)

	return runInTx(ctx, r.Pool, func(ctx context.Context, tx pgx.Tx) error {
		update := `UPDATE runner_profiles SET current_active_errand=$2
			WHERE id=$1 AND current_active_errand IS NULL`
		tag, err := tx.Exec(ctx, update, profileID.String(), errandID.String())
		if err != nil {
			return fmt.Errorf("op=runner_profile.assign_errand_tx.update: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("op=runner_profile.assign_errand_tx: %w", domain.ErrConflict)
		}

		del := `DELETE FROM runner_potential_errand_requests WHERE profile_id=$1 AND request_id=$2`
		if _, err := tx.Exec(ctx, del, profileID.String(), requestID.String()); err != nil {
			return fmt.Errorf("op=runner_profile.assign_errand_tx.delete: %w", err)
		}
		return nil
	})
}
