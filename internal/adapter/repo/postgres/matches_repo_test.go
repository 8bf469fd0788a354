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

func TestMatchRepo_Insert(t *testing.T) {
	t.Parallel()
	m, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer m.Close()
	repo := postgres.NewMatchRepo(m)
	ctx := context.Background()

	m.ExpectExec(`INSERT INTO matches`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	match := &domain.Match{
		Resource1: domain.NewObjectID(),
		Resource2: domain.NewObjectID(),
		Requester: domain.NewObjectID(),
		Owner:     domain.NewObjectID(),
		Score:     7,
		Status:    domain.MatchStatusPending,
	}
	require.NoError(t, repo.Insert(ctx, match))
	assert.False(t, match.ID.IsZero())
	require.NoError(t, m.ExpectationsWereMet())
}

func TestMatchRepo_InsertBatch_Empty(t *testing.T) {
	t.Parallel()
	m, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer m.Close()
	repo := postgres.NewMatchRepo(m)
	ctx := context.Background()

	require.NoError(t, repo.InsertBatch(ctx, nil))
	require.NoError(t, m.ExpectationsWereMet())
}

func TestMatchRepo_InsertBatch(t *testing.T) {
	t.Parallel()
	m, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer m.Close()
	repo := postgres.NewMatchRepo(m)
	ctx := context.Background()

	m.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	m.ExpectExec(`INSERT INTO matches`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	m.ExpectExec(`INSERT INTO matches`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	m.ExpectCommit()

	matches := []*domain.Match{
		{Resource1: domain.NewObjectID(), Resource2: domain.NewObjectID(), Requester: domain.NewObjectID(), Owner: domain.NewObjectID(), Status: domain.MatchStatusPending},
		{Resource1: domain.NewObjectID(), Resource2: domain.NewObjectID(), Requester: domain.NewObjectID(), Owner: domain.NewObjectID(), Status: domain.MatchStatusPending},
	}
	require.NoError(t, repo.InsertBatch(ctx, matches))
	require.NoError(t, m.ExpectationsWereMet())
}

func TestMatchRepo_ListByStatus(t *testing.T) {
	t.Parallel()
	m, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer m.Close()
	repo := postgres.NewMatchRepo(m)
	ctx := context.Background()

	now := time.Now().UTC()
	id := domain.NewObjectID()
	rows := m.NewRows([]string{"id", "resource1", "resource2", "requester", "owner", "score",
		"original_price_requester", "original_price_owner",
		"suggested_price_requester", "suggested_price_owner",
		"resource1_payment", "resource2_receipt", "final_amount",
		"status", "first_acceptance_time",
		"requester_accepted_suggested_price", "owner_accepted_suggested_price",
		"rejected_by", "timeout_penalty_applied_to", "cancellation_reason",
		"created_at", "updated_at"}).
		AddRow(id.String(), domain.NewObjectID().String(), domain.NewObjectID().String(),
			domain.NewObjectID().String(), domain.NewObjectID().String(), 8,
			10.0, 8.0, 11.0, 9.0, (*float64)(nil), (*float64)(nil), (*float64)(nil),
			string(domain.MatchStatusPending), (*time.Time)(nil), false, false,
			(*string)(nil), (*string)(nil), "", now, now)

	m.ExpectQuery(`SELECT .* FROM matches WHERE status=\$1`).
		WithArgs(domain.MatchStatusPending, 10).
		WillReturnRows(rows)

	out, err := repo.ListByStatus(ctx, domain.MatchStatusPending, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, id, out[0].ID)
	require.NoError(t, m.ExpectationsWereMet())
}

func TestMatchRepo_CompareAndSwapStatus_Conflict(t *testing.T) {
	t.Parallel()
	m, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer m.Close()
	repo := postgres.NewMatchRepo(m)
	ctx := context.Background()

	id := domain.NewObjectID()
	m.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	m.ExpectQuery(`SELECT .* FROM matches WHERE id=\$1 AND status=\$2 FOR UPDATE`).
		WithArgs(id.String(), domain.MatchStatusErranding).
		WillReturnError(pgx.ErrNoRows)
	m.ExpectRollback()

	err = repo.CompareAndSwapStatus(ctx, id, domain.MatchStatusErranding, domain.MatchStatusCancelled, func(*domain.Match) {})
	require.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, m.ExpectationsWereMet())
}
