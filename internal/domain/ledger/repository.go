package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const queryTimeout = 5 * time.Second

// Repository is the PostgreSQL ledger. Writes only happen inside a caller-owned tx.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

type transactionRow struct {
	ID                uuid.UUID           `db:"id"`
	Type              Type                `db:"type"`
	FromUserID        uuid.NullUUID       `db:"from_user_id"`
	ToUserID          uuid.UUID           `db:"to_user_id"`
	Amount            decimal.Decimal     `db:"amount"`
	Description       string              `db:"description"`
	Status            Status              `db:"status"`
	Items             Lines               `db:"items"`
	IsOwnItemPurchase bool                `db:"is_own_item_purchase"`
	FromBefore        decimal.NullDecimal `db:"from_balance_before"`
	FromAfter         decimal.NullDecimal `db:"from_balance_after"`
	ToBefore          decimal.NullDecimal `db:"to_balance_before"`
	ToAfter           decimal.NullDecimal `db:"to_balance_after"`
	Reference         uuid.NullUUID       `db:"reference"`
	CreatedAt         time.Time           `db:"created_at"`
	CompletedAt       sql.NullTime        `db:"completed_at"`
}

const selectColumns = `
	id, type, from_user_id, to_user_id, amount, description, status, items, is_own_item_purchase,
	from_balance_before, from_balance_after, to_balance_before, to_balance_after,
	reference, created_at, completed_at`

func (r *transactionRow) toEntity() *Transaction {
	t := &Transaction{
		ID:                r.ID,
		Type:              r.Type,
		FromUserID:        r.FromUserID,
		ToUserID:          r.ToUserID,
		Amount:            r.Amount,
		Description:       r.Description,
		Status:            r.Status,
		Items:             r.Items,
		IsOwnItemPurchase: r.IsOwnItemPurchase,
		Reference:         r.Reference,
		Timestamp:         r.CreatedAt,
		CompletedAt:       r.CompletedAt,
	}
	if r.FromBefore.Valid && r.FromAfter.Valid {
		t.FromBalance = &BalanceChange{Before: r.FromBefore.Decimal, After: r.FromAfter.Decimal}
	}
	if r.ToBefore.Valid && r.ToAfter.Valid {
		t.ToBalance = &BalanceChange{Before: r.ToBefore.Decimal, After: r.ToAfter.Decimal}
	}
	return t
}

func nullable(bc *BalanceChange) (before, after decimal.NullDecimal) {
	if bc == nil {
		return
	}
	return decimal.NewNullDecimal(bc.Before), decimal.NewNullDecimal(bc.After)
}

// InsertTx appends t inside tx, assigning id and server timestamp.
func (r *Repository) InsertTx(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
	if !t.Type.Valid() || t.Amount.IsNegative() || t.ToUserID == uuid.Nil {
		return ErrInvalidEntry
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = StatusCompleted
	}

	fromBefore, fromAfter := nullable(t.FromBalance)
	toBefore, toAfter := nullable(t.ToBalance)

	err := tx.QueryRowxContext(ctx, `
		INSERT INTO transactions (
			id, type, from_user_id, to_user_id, amount, description, status, items, is_own_item_purchase,
			from_balance_before, from_balance_after, to_balance_before, to_balance_after, reference,
			completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			CASE WHEN $7 = 'completed' THEN clock_timestamp() END)
		RETURNING created_at`,
		t.ID, t.Type, t.FromUserID, t.ToUserID, t.Amount, t.Description, t.Status, t.Items, t.IsOwnItemPurchase,
		fromBefore, fromAfter, toBefore, toAfter, t.Reference,
	).Scan(&t.Timestamp)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidEntry, t.ID)
		}
		return fmt.Errorf("%w: insert transaction: %v", ErrStore, err)
	}
	return nil
}

// LockTx reads one entry with a row lock held until tx ends.
func (r *Repository) LockTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Transaction, error) {
	var row transactionRow
	err := tx.GetContext(ctx, &row, `SELECT `+selectColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("%w: lock transaction: %v", ErrStore, err)
	}
	return row.toEntity(), nil
}

// CompleteRequestTx settles a pending money request inside tx.
func (r *Repository) CompleteRequestTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Transaction, error) {
	var row transactionRow
	err := tx.GetContext(ctx, &row, `SELECT `+selectColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("%w: lock transaction: %v", ErrStore, err)
	}
	if row.Type != TypeMoneyRequest || row.Status != StatusPending {
		return nil, ErrNotPending
	}

	err = tx.QueryRowxContext(ctx, `
		UPDATE transactions SET status = 'completed', completed_at = clock_timestamp()
		WHERE id = $1
		RETURNING completed_at`, id).Scan(&row.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: complete request: %v", ErrStore, err)
	}
	row.Status = StatusCompleted
	return row.toEntity(), nil
}

// Get returns one entry
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var row transactionRow
	if err := r.db.GetContext(ctx2, &row, `SELECT `+selectColumns+` FROM transactions WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("%w: get transaction: %v", ErrStore, err)
	}
	return row.toEntity(), nil
}

// Query streams matching rows newest first
func (r *Repository) Query(ctx context.Context, filter Filter) iter.Seq2[*Transaction, error] {
	return func(yield func(*Transaction, error) bool) {
		query, args := buildQuery(filter)

		ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()

		rows, err := r.db.QueryxContext(ctx2, query, args...)
		if err != nil {
			yield(nil, fmt.Errorf("%w: query transactions: %v", ErrStore, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var row transactionRow
			if err := rows.StructScan(&row); err != nil {
				yield(nil, fmt.Errorf("%w: scan transaction: %v", ErrStore, err))
				return
			}
			if !yield(row.toEntity(), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("%w: iterate transactions: %v", ErrStore, err))
		}
	}
}

// likeEscaper makes search text match literally, as Filter.Match does.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildQuery(f Filter) (string, []interface{}) {
	base := `SELECT ` + selectColumns + ` FROM transactions WHERE 1=1`
	args := make([]interface{}, 0, 8)
	idx := 1

	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		base += fmt.Sprintf(" AND type = ANY($%d)", idx)
		args = append(args, pq.Array(types))
		idx++
	}
	if f.Status != "" {
		base += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	if len(f.UserIDs) > 0 {
		ids := make([]string, len(f.UserIDs))
		for i, id := range f.UserIDs {
			ids[i] = id.String()
		}
		base += fmt.Sprintf(" AND (from_user_id = ANY($%d::uuid[]) OR to_user_id = ANY($%d::uuid[]))", idx, idx)
		args = append(args, pq.Array(ids))
		idx++
	}
	if f.FromUserID != nil {
		base += fmt.Sprintf(" AND from_user_id = $%d", idx)
		args = append(args, *f.FromUserID)
		idx++
	}
	if f.ToUserID != nil {
		base += fmt.Sprintf(" AND to_user_id = $%d", idx)
		args = append(args, *f.ToUserID)
		idx++
	}
	if f.DateFrom != nil {
		base += fmt.Sprintf(" AND created_at >= $%d", idx)
		args = append(args, *f.DateFrom)
		idx++
	}
	if f.DateTo != nil {
		base += fmt.Sprintf(" AND created_at <= $%d", idx)
		args = append(args, *f.DateTo)
		idx++
	}
	if f.Search != "" {
		base += fmt.Sprintf(` AND description ILIKE $%d ESCAPE '\'`, idx)
		args = append(args, "%"+likeEscaper.Replace(f.Search)+"%")
		idx++
	}

	base += " ORDER BY created_at DESC, seq DESC"
	if f.Limit > 0 {
		base += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, f.Limit)
	}
	return base, args
}
