package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
)

// ResourceRepo persists and loads resources from PostgreSQL.
type ResourceRepo struct{ Pool PgxPool }

// NewResourceRepo constructs a ResourceRepo with the given pool.
func NewResourceRepo(p PgxPool) *ResourceRepo { return &ResourceRepo{Pool: p} }

var _ domain.ResourceRepository = (*ResourceRepo)(nil)

const resourceColumns = `id, user_id, name, description, type, category, specifications, price, status, assigned_errand_id, match_attempts, created_at, updated_at`

func scanResource(row pgx.Row) (*domain.Resource, error) {
	var r domain.Resource
	var id, userID string
	var assignedErrandID *string
	var specs []byte
	if err := row.Scan(&id, &userID, &r.Name, &r.Description, &r.Type, &r.Category, &specs,
		&r.Price, &r.Status, &assignedErrandID, &r.MatchAttempts, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	parsedID, err := domain.ParseObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("op=resource.scan.id: %w", err)
	}
	parsedUserID, err := domain.ParseObjectID(userID)
	if err != nil {
		return nil, fmt.Errorf("op=resource.scan.user_id: %w", err)
	}
	r.ID = parsedID
	r.UserID = parsedUserID
	if r.AssignedErrandID, err = scanID(assignedErrandID); err != nil {
		return nil, err
	}
	if r.Specifications, err = unmarshalJSONMap(specs); err != nil {
		return nil, err
	}
	return &r, nil
}

// Get loads a resource by id.
func (r *ResourceRepo) Get(ctx domain.Context, id domain.ObjectID) (*domain.Resource, error) {
	tracer := otel.Tracer("repo.resources")
	ctx, span := tracer.Start(ctx, "resources.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "resources"),
	)
	q := `SELECT ` + resourceColumns + ` FROM resources WHERE id=$1`
	res, err := scanResource(r.Pool.QueryRow(ctx, q, id.String()))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("op=resource.get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("op=resource.get: %w", err)
	}
	return res, nil
}

// List returns resources matching filter, oldest-created first, with
// keyset pagination on filter.After.
func (r *ResourceRepo) List(ctx domain.Context, filter domain.ResourceFilter) ([]*domain.Resource, error) {
	tracer := otel.Tracer("repo.resources")
	ctx, span := tracer.Start(ctx, "resources.List")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "resources"),
	)

	var where []string
	var args []any
	argIdx := 1
	nextArg := func(v any) string {
		args = append(args, v)
		p := "$" + strconv.Itoa(argIdx)
		argIdx++
		return p
	}

	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		where = append(where, "status = ANY("+nextArg(statuses)+")")
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		where = append(where, "type = ANY("+nextArg(types)+")")
	}
	if filter.Category != "" {
		where = append(where, "category = "+nextArg(filter.Category))
	}
	if filter.UpdatedAfter != nil {
		where = append(where, "updated_at > "+nextArg(*filter.UpdatedAfter))
	}
	if filter.ExcludeAssigned {
		where = append(where, "assigned_errand_id IS NULL")
	}
	if !filter.After.IsZero() {
		where = append(where, "id > "+nextArg(filter.After.String()))
	}

	q := `SELECT ` + resourceColumns + ` FROM resources`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id ASC"
	if filter.Limit > 0 {
		q += " LIMIT " + nextArg(filter.Limit)
	}

	rows, err := r.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("op=resource.list: %w", err)
	}
	defer rows.Close()

	var out []*domain.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("op=resource.list_scan: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=resource.list_rows: %w", err)
	}
	return out, nil
}

// Insert creates a new resource, assigning an id if r.ID is zero.
func (r *ResourceRepo) Insert(ctx domain.Context, res *domain.Resource) error {
	tracer := otel.Tracer("repo.resources")
	ctx, span := tracer.Start(ctx, "resources.Insert")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "resources"),
	)
	if res.ID.IsZero() {
		res.ID = domain.NewObjectID()
	}
	specs, err := marshalJSON(res.Specifications)
	if err != nil {
		return fmt.Errorf("op=resource.insert.marshal: %w", err)
	}
	q := `INSERT INTO resources (` + resourceColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err = r.Pool.Exec(ctx, q, res.ID.String(), res.UserID.String(), res.Name, res.Description,
		res.Type, res.Category, specs, res.Price, res.Status, idOrNil(res.AssignedErrandID),
		res.MatchAttempts, res.CreatedAt, res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("op=resource.insert: %w", err)
	}
	return nil
}

// UpdateClassification persists the classifier's output for a resource.
func (r *ResourceRepo) UpdateClassification(ctx domain.Context, id domain.ObjectID, category string, specs map[string]any, status domain.ResourceStatus) error {
	tracer := otel.Tracer("repo.resources")
	ctx, span := tracer.Start(ctx, "resources.UpdateClassification")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "resources"),
	)
	specsJSON, err := marshalJSON(specs)
	if err != nil {
		return fmt.Errorf("op=resource.update_classification.marshal: %w", err)
	}
	q := `UPDATE resources SET category=$2, specifications=$3, status=$4, updated_at=now() WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, id.String(), category, specsJSON, status)
	if err != nil {
		return fmt.Errorf("op=resource.update_classification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=resource.update_classification: %w", domain.ErrNotFound)
	}
	return nil
}

// MarkMatched flips status=matched for every id in one statement.
func (r *ResourceRepo) MarkMatched(ctx domain.Context, ids []domain.ObjectID) error {
	tracer := otel.Tracer("repo.resources")
	ctx, span := tracer.Start(ctx, "resources.MarkMatched")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "resources"),
	)
	if len(ids) == 0 {
		return nil
	}
	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = id.String()
	}
	q := `UPDATE resources SET status=$2, updated_at=now() WHERE id = ANY($1)`
	if _, err := r.Pool.Exec(ctx, q, idStrs, domain.ResourceStatusMatched); err != nil {
		return fmt.Errorf("op=resource.mark_matched: %w", err)
	}
	return nil
}

// AssignErrand conditionally sets assignedErrandId + status=matched and
// increments matchAttempts; fails with ErrConflict if the expected status
// no longer holds.
func (r *ResourceRepo) AssignErrand(ctx domain.Context, id domain.ObjectID, errandID domain.ObjectID, expectedStatus domain.ResourceStatus) error {
	tracer := otel.Tracer("repo.resources")
	ctx, span := tracer.Start(ctx, "resources.AssignErrand")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "resources"),
	)
	q := `UPDATE resources SET assigned_errand_id=$2, status=$3, match_attempts=match_attempts+1, updated_at=now()
		WHERE id=$1 AND status=$4`
	tag, err := querier(ctx, r.Pool).Exec(ctx, q, id.String(), errandID.String(), domain.ResourceStatusMatched, expectedStatus)
	if err != nil {
		return fmt.Errorf("op=resource.assign_errand: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=resource.assign_errand: %w", domain.ErrConflict)
	}
	return nil
}

// IncrementMatchAttempts increments matchAttempts by one.
func (r *ResourceRepo) IncrementMatchAttempts(ctx domain.Context, id domain.ObjectID) error {
	tracer := otel.Tracer("repo.resources")
	ctx, span := tracer.Start(ctx, "resources.IncrementMatchAttempts")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "resources"),
	)
	q := `UPDATE resources SET match_attempts=match_attempts+1, updated_at=now() WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, id.String())
	if err != nil {
		return fmt.Errorf("op=resource.increment_match_attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=resource.increment_match_attempts: %w", domain.ErrNotFound)
	}
	return nil
}
