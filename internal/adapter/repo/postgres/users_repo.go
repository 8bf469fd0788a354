package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
)

// UserRepo persists and loads users from PostgreSQL.
type UserRepo struct{ Pool PgxPool }

// NewUserRepo constructs a UserRepo with the given pool.
func NewUserRepo(p PgxPool) *UserRepo { return &UserRepo{Pool: p} }

var _ domain.UserRepository = (*UserRepo)(nil)

// Get loads a user by id.
func (r *UserRepo) Get(ctx domain.Context, id domain.ObjectID) (*domain.User, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
	)
	q := `SELECT id, points, credits, created_at, updated_at FROM users WHERE id=$1`
	var u domain.User
	var idStr string
	err := r.Pool.QueryRow(ctx, q, id.String()).Scan(&idStr, &u.Points, &u.Credits, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("op=user.get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("op=user.get: %w", err)
	}
	if u.ID, err = domain.ParseObjectID(idStr); err != nil {
		return nil, fmt.Errorf("op=user.get.scan_id: %w", err)
	}
	return &u, nil
}

// AdjustPoints applies a signed delta to a user's points.
func (r *UserRepo) AdjustPoints(ctx domain.Context, id domain.ObjectID, delta int) error {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.AdjustPoints")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
	)
	q := `UPDATE users SET points=points+$2, updated_at=now() WHERE id=$1`
	tag, err := querier(ctx, r.Pool).Exec(ctx, q, id.String(), delta)
	if err != nil {
		return fmt.Errorf("op=user.adjust_points: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=user.adjust_points: %w", domain.ErrNotFound)
	}
	return nil
}

// IncrementCreditsCapped increments credits by 1 unless already at
// domain.MaxCredits, in which case it is a no-op.
func (r *UserRepo) IncrementCreditsCapped(ctx domain.Context, id domain.ObjectID) error {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.IncrementCreditsCapped")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
	)
	q := `UPDATE users SET credits=credits+1, updated_at=now() WHERE id=$1 AND credits < $2`
	tag, err := querier(ctx, r.Pool).Exec(ctx, q, id.String(), domain.MaxCredits)
	if err != nil {
		return fmt.Errorf("op=user.increment_credits_capped: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the user doesn't exist or is already at the cap; only the
		// former is an error, so check existence before reporting success.
		if _, err := r.Get(ctx, id); err != nil {
			return fmt.Errorf("op=user.increment_credits_capped: %w", err)
		}
	}
	return nil
}
