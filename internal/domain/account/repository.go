package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const queryTimeout = 3 * time.Second

// Repository is the PostgreSQL account store
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const accountColumns = `user_id, balance, total_received, total_spent, total_transferred, updated_at`

// Get returns the account of userID
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var a Account
	if err := r.db.GetContext(ctx2, &a, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: get account: %v", ErrStore, err)
	}
	return &a, nil
}

// LockTx locks the accounts in the given order with FOR UPDATE.
// Callers pass ids sorted so concurrent mutations acquire locks in the same order.
func (r *Repository) LockTx(ctx context.Context, tx *sqlx.Tx, userIDs []uuid.UUID) (map[uuid.UUID]*Account, error) {
	out := make(map[uuid.UUID]*Account, len(userIDs))
	for _, id := range userIDs {
		var a Account
		err := tx.GetContext(ctx, &a, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 FOR UPDATE`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
			}
			return nil, fmt.Errorf("%w: lock account: %v", ErrStore, err)
		}
		out[id] = &a
	}
	return out, nil
}

// ApplyTx applies a signed delta. The guard in WHERE keeps the balance non-negative.
func (r *Repository) ApplyTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, delta decimal.Decimal, counter Counter) (*Account, error) {
	var counterSQL string
	switch counter {
	case CounterReceived:
		counterSQL = ", total_received = total_received + abs($2)"
	case CounterSpent:
		counterSQL = ", total_spent = total_spent + abs($2)"
	case CounterTransferred:
		counterSQL = ", total_transferred = total_transferred + abs($2)"
	}

	var a Account
	err := tx.GetContext(ctx, &a, `
		UPDATE accounts
		SET balance = balance + $2, updated_at = NOW()`+counterSQL+`
		WHERE user_id = $1 AND balance + $2 >= 0
		RETURNING `+accountColumns, userID, delta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNegativeBalance
		}
		return nil, fmt.Errorf("%w: apply delta: %v", ErrStore, err)
	}
	return &a, nil
}
