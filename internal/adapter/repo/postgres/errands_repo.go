package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
)

// ErrandRepo persists and loads errands from PostgreSQL.
type ErrandRepo struct{ Pool PgxPool }

// NewErrandRepo constructs an ErrandRepo with the given pool.
func NewErrandRepo(p PgxPool) *ErrandRepo { return &ErrandRepo{Pool: p} }

var _ domain.ErrandRepository = (*ErrandRepo)(nil)

const errandColumns = `id, resource_request_id, errand_runner, current_status,
	pickup_location, dropoff_location, is_delivery_to_door, delivery_fee,
	door_delivery_units, expected_start_time, expected_end_time,
	expected_timeframe_string, completed_at, runner_assigned_at,
	created_at, updated_at`

func scanErrand(row pgx.Row) (*domain.Errand, error) {
	var e domain.Errand
	var id, requestID string
	var runner *string
	var pickup, dropoff []byte
	if err := row.Scan(&id, &requestID, &runner, &e.CurrentStatus,
		&pickup, &dropoff, &e.IsDeliveryToDoor, &e.DeliveryFee,
		&e.DoorDeliveryUnits, &e.ExpectedStartTime, &e.ExpectedEndTime,
		&e.ExpectedTimeframeString, &e.CompletedAt, &e.RunnerAssignedAt,
		&e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if e.ID, err = domain.ParseObjectID(id); err != nil {
		return nil, fmt.Errorf("op=errand.scan.id: %w", err)
	}
	if e.ResourceRequestID, err = domain.ParseObjectID(requestID); err != nil {
		return nil, fmt.Errorf("op=errand.scan.resource_request_id: %w", err)
	}
	if e.ErrandRunner, err = scanID(runner); err != nil {
		return nil, err
	}
	if err := unmarshalLocation(pickup, &e.PickupLocation); err != nil {
		return nil, fmt.Errorf("op=errand.scan.pickup_location: %w", err)
	}
	if err := unmarshalLocation(dropoff, &e.DropoffLocation); err != nil {
		return nil, fmt.Errorf("op=errand.scan.dropoff_location: %w", err)
	}
	return &e, nil
}

// Get loads an errand by id.
func (r *ErrandRepo) Get(ctx domain.Context, id domain.ObjectID) (*domain.Errand, error) {
	tracer := otel.Tracer("repo.errands")
	ctx, span := tracer.Start(ctx, "errands.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "errands"),
	)
	q := `SELECT ` + errandColumns + ` FROM errands WHERE id=$1`
	e, err := scanErrand(r.Pool.QueryRow(ctx, q, id.String()))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("op=errand.get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("op=errand.get: %w", err)
	}
	return e, nil
}

// GetByResourceRequestID loads the errand created against a given
// service-request resource.
func (r *ErrandRepo) GetByResourceRequestID(ctx domain.Context, requestID domain.ObjectID) (*domain.Errand, error) {
	tracer := otel.Tracer("repo.errands")
	ctx, span := tracer.Start(ctx, "errands.GetByResourceRequestID")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "errands"),
	)
	q := `SELECT ` + errandColumns + ` FROM errands WHERE resource_request_id=$1`
	e, err := scanErrand(r.Pool.QueryRow(ctx, q, requestID.String()))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("op=errand.get_by_resource_request_id: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("op=errand.get_by_resource_request_id: %w", err)
	}
	return e, nil
}

// Insert creates a new errand, assigning an id if e.ID is zero.
func (r *ErrandRepo) Insert(ctx domain.Context, e *domain.Errand) error {
	tracer := otel.Tracer("repo.errands")
	ctx, span := tracer.Start(ctx, "errands.Insert")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "errands"),
	)
	if e.ID.IsZero() {
		e.ID = domain.NewObjectID()
	}
	pickup, err := marshalJSON(e.PickupLocation)
	if err != nil {
		return fmt.Errorf("op=errand.insert.marshal_pickup: %w", err)
	}
	dropoff, err := marshalJSON(e.DropoffLocation)
	if err != nil {
		return fmt.Errorf("op=errand.insert.marshal_dropoff: %w", err)
	}
	q := `INSERT INTO errands (` + errandColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`
	_, err = querier(ctx, r.Pool).Exec(ctx, q, e.ID.String(), e.ResourceRequestID.String(), idOrNil(e.ErrandRunner), e.CurrentStatus,
		pickup, dropoff, e.IsDeliveryToDoor, e.DeliveryFee,
		e.DoorDeliveryUnits, e.ExpectedStartTime, e.ExpectedEndTime,
		e.ExpectedTimeframeString, e.CompletedAt, e.RunnerAssignedAt,
		e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("op=errand.insert: %w", err)
	}
	return nil
}
