package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
)

// WalletRepo persists and loads wallets and their transaction ledger from
// PostgreSQL.
type WalletRepo struct{ Pool PgxPool }

// NewWalletRepo constructs a WalletRepo with the given pool.
func NewWalletRepo(p PgxPool) *WalletRepo { return &WalletRepo{Pool: p} }

var _ domain.WalletRepository = (*WalletRepo)(nil)

// Get loads a wallet by user id.
func (r *WalletRepo) Get(ctx domain.Context, userID domain.ObjectID) (*domain.Wallet, error) {
	tracer := otel.Tracer("repo.wallets")
	ctx, span := tracer.Start(ctx, "wallets.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "wallets"),
	)
	q := `SELECT user_id, balance, created_at, updated_at FROM wallets WHERE user_id=$1`
	var w domain.Wallet
	var userIDStr string
	err := r.Pool.QueryRow(ctx, q, userID.String()).Scan(&userIDStr, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("op=wallet.get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("op=wallet.get: %w", err)
	}
	if w.UserID, err = domain.ParseObjectID(userIDStr); err != nil {
		return nil, fmt.Errorf("op=wallet.get.scan_id: %w", err)
	}
	return &w, nil
}

// Credit increases a wallet's balance by amount and appends a transaction
// record, atomically. The wallet row is upserted so a user's first credit
// creates their wallet.
func (r *WalletRepo) Credit(ctx domain.Context, userID domain.ObjectID, amount float64, tx domain.WalletTransaction) error {
	tracer := otel.Tracer("repo.wallets")
	ctx, span := tracer.Start(ctx, "wallets.Credit")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "wallets"),
	)

	if tx.ID.IsZero() {
		tx.ID = domain.NewObjectID()
	}

	return runInTx(ctx, r.Pool, func(ctx context.Context, dbTx pgx.Tx) error {
		upsert := `INSERT INTO wallets (user_id, balance, created_at, updated_at)
			VALUES ($1, $2, now(), now())
			ON CONFLICT (user_id) DO UPDATE SET balance = wallets.balance + $2, updated_at = now()`
		if _, err := dbTx.Exec(ctx, upsert, userID.String(), amount); err != nil {
			return fmt.Errorf("op=wallet.credit.upsert: %w", err)
		}

		insertTx := `INSERT INTO wallet_transactions
			(id, user_id, type, amount, description, reference_id, reference_model, status, transaction_fee, processed_by, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
		if _, err := dbTx.Exec(ctx, insertTx, tx.ID.String(), userID.String(), tx.Type, tx.Amount, tx.Description,
			idOrNil(tx.ReferenceID), tx.ReferenceModel, tx.Status, tx.TransactionFee, tx.ProcessedBy,
			tx.CreatedAt, tx.UpdatedAt); err != nil {
			return fmt.Errorf("op=wallet.credit.insert_tx: %w", err)
		}
		return nil
	})
}
