package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neptunehub/campus-errand-engine/internal/adapter/repo/postgres"
	"github.com/neptunehub/campus-errand-engine/internal/domain"
)

func TestRunnerProfileRepo_Get(t *testing.T) {
	t.Parallel()
	m, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer m.Close()
	repo := postgres.NewRunnerProfileRepo(m)
	ctx := context.Background()

	id := domain.NewObjectID()
	userID := domain.NewObjectID()
	profileRows := m.NewRows([]string{"id", "user_id", "operating_campus_zones", "vehicle_type",
		"special_equipment", "cargo_capacity_description", "current_active_errand"}).
		AddRow(id.String(), userID.String(), []string{"North"}, "bike", []string{}, "small backpack", (*string)(nil))
	m.ExpectQuery(`SELECT .* FROM runner_profiles WHERE id=\$1`).
		WithArgs(id.String()).
		WillReturnRows(profileRows)

	requestID := domain.NewObjectID()
	offerID := domain.NewObjectID()
	now := time.Now().UTC()
	potentialRows := m.NewRows([]string{"request_id", "offer_id", "score", "matched_at"}).
		AddRow(requestID.String(), offerID.String(), 9, now)
	m.ExpectQuery(`SELECT request_id, offer_id, score, matched_at FROM runner_potential_errand_requests WHERE profile_id=\$1`).
		WithArgs(id.String()).
		WillReturnRows(potentialRows)

	p, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	require.Len(t, p.PotentialErrandRequests, 1)
	assert.Equal(t, requestID, p.PotentialErrandRequests[0].RequestID)
	assert.True(t, p.IsAssignable())
	require.NoError(t, m.ExpectationsWereMet())
}

func TestRunnerProfileRepo_UpsertPotentialMatch(t *testing.T) {
	t.Parallel()
	m, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer m.Close()
	repo := postgres.NewRunnerProfileRepo(m)
	ctx := context.Background()

	m.ExpectExec(`INSERT INTO runner_potential_errand_requests`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.UpsertPotentialMatch(ctx, domain.NewObjectID(), domain.PotentialErrandRequest{
		RequestID: domain.NewObjectID(),
		OfferID:   domain.NewObjectID(),
		Score:     6,
		MatchedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, m.ExpectationsWereMet())
}

func TestRunnerProfileRepo_AssignErrandTx_Conflict(t *testing.T) {
	t.Parallel()
	m, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer m.Close()
	repo := postgres.NewRunnerProfileRepo(m)
	ctx := context.Background()

	m.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	m.ExpectExec(`UPDATE runner_profiles SET current_active_errand=\$2`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	m.ExpectRollback()

	err = repo.AssignErrandTx(ctx, domain.NewObjectID(), domain.NewObjectID(), domain.NewObjectID())
	require.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, m.ExpectationsWereMet())
}
