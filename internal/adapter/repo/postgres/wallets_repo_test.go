package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/neptunehub/campus-errand-engine/internal/adapter/repo/postgres"
	"github.com/neptunehub/campus-errand-engine/internal/domain"
)

func TestWalletRepo_Get(t *testing.T) {
	t.Parallel()
	m, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer m.Close()
	repo := postgres.NewWalletRepo(m)
	ctx := context.Background()

	userID := domain.NewObjectID()
	now := time.Now().UTC()
	rows := m.NewRows([]string{"user_id", "balance", "created_at", "updated_at"}).
		AddRow(userID.String(), 42.5, now, now)
	m.ExpectQuery(`SELECT user_id, balance, created_at, updated_at FROM wallets WHERE user_id=\$1`).
		WithArgs(userID.String()).
		WillReturnRows(rows)

	w, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 42.5, w.Balance)
	require.NoError(t, m.ExpectationsWereMet())
}

func TestWalletRepo_Get_NotFound(t *testing.T) {
	t.Parallel()
	m, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer m.Close()
	repo := postgres.NewWalletRepo(m)
	ctx := context.Background()

	userID := domain.NewObjectID()
	m.ExpectQuery(`SELECT user_id, balance, created_at, updated_at FROM wallets WHERE user_id=\$1`).
		WithArgs(userID.String()).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.Get(ctx, userID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, m.ExpectationsWereMet())
}

func TestWalletRepo_Credit(t *testing.T) {
	t.Parallel()
	m, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer m.Close()
	repo := postgres.NewWalletRepo(m)
	ctx := context.Background()

	userID := domain.NewObjectID()
	m.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	m.ExpectExec(`INSERT INTO wallets`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	m.ExpectExec(`INSERT INTO wallet_transactions`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	m.ExpectCommit()

	err = repo.Credit(ctx, userID, 15.0, domain.WalletTransaction{
		Type:        domain.WalletTransactionCredit,
		Amount:      15.0,
		Description: "errand completion reward",
	})
	require.NoError(t, err)
	require.NoError(t, m.ExpectationsWereMet())
}
