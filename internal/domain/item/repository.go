package item

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

// Repository defines item data access
type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	// ListForAdmin returns the admin's catalog plus items created by its sub-admins.
	ListForAdmin(ctx context.Context, adminID uuid.UUID) ([]*Item, error)
	// ListAvailableFor returns in-stock items assigned to or created by the sub-admin.
	ListAvailableFor(ctx context.Context, subAdminID uuid.UUID) ([]*Item, error)
	// UpdatePrice writes only the price and its audit columns.
	UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal, by uuid.UUID, at time.Time) (*Item, error)
	// Assign sets the assignee and takes the item out of the shared pool.
	Assign(ctx context.Context, id, subAdminID uuid.UUID, at time.Time) (*Item, error)
	// Unassign clears the assignee; availability follows the stock at write time.
	Unassign(ctx context.Context, id uuid.UUID, at time.Time) (*Item, error)
}

// SQLRepository implements Repository on PostgreSQL
type SQLRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const itemColumns = `id, name, category, serial_number, notes, quantity, price, available, assigned_to, assigned_at, created_by,
	is_subadmin_item, price_updated_at, price_updated_by, created_at, updated_at`

func (r *SQLRepository) Create(ctx context.Context, it *Item) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := r.db.QueryRowxContext(ctx2, `
		INSERT INTO items (id, name, category, serial_number, notes, quantity, price, available,
		                   created_by, is_subadmin_item, price_updated_at, price_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		it.ID, it.Name, it.Category, it.SerialNumber, it.Notes, it.Quantity, it.Price, it.Available,
		it.CreatedBy, it.IsSubAdminItem, it.PriceUpdatedAt, it.PriceUpdatedBy,
	).Scan(&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: create item: %v", ErrStore, err)
	}
	return nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var it Item
	if err := r.db.GetContext(ctx2, &it, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("%w: get item: %v", ErrStore, err)
	}
	return &it, nil
}

func (r *SQLRepository) ListForAdmin(ctx context.Context, adminID uuid.UUID) ([]*Item, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var items []*Item
	err := r.db.SelectContext(ctx2, &items, `
		SELECT `+itemColumns+`
		FROM items
		WHERE created_by = $1
		   OR created_by IN (SELECT id FROM users WHERE admin_id = $1)
		ORDER BY created_at DESC`, adminID)
	if err != nil {
		return nil, fmt.Errorf("%w: list items: %v", ErrStore, err)
	}
	return items, nil
}

func (r *SQLRepository) ListAvailableFor(ctx context.Context, subAdminID uuid.UUID) ([]*Item, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var items []*Item
	err := r.db.SelectContext(ctx2, &items, `
		SELECT `+itemColumns+`
		FROM items
		WHERE quantity > 0
		  AND (assigned_to = $1 OR (is_subadmin_item AND created_by = $1))
		ORDER BY name`, subAdminID)
	if err != nil {
		return nil, fmt.Errorf("%w: list available items: %v", ErrStore, err)
	}
	return items, nil
}

func (r *SQLRepository) UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal, by uuid.UUID, at time.Time) (*Item, error) {
	return r.updateReturning(ctx, "update price", `
		UPDATE items
		SET price = $2, price_updated_at = $3, price_updated_by = $4, updated_at = $3
		WHERE id = $1
		RETURNING `+itemColumns, id, price, at, by)
}

func (r *SQLRepository) Assign(ctx context.Context, id, subAdminID uuid.UUID, at time.Time) (*Item, error) {
	return r.updateReturning(ctx, "assign item", `
		UPDATE items
		SET assigned_to = $2, assigned_at = $3, available = FALSE, updated_at = $3
		WHERE id = $1
		RETURNING `+itemColumns, id, subAdminID, at)
}

func (r *SQLRepository) Unassign(ctx context.Context, id uuid.UUID, at time.Time) (*Item, error) {
	return r.updateReturning(ctx, "unassign item", `
		UPDATE items
		SET assigned_to = NULL, assigned_at = NULL, available = quantity > 0, updated_at = $2
		WHERE id = $1
		RETURNING `+itemColumns, id, at)
}

func (r *SQLRepository) updateReturning(ctx context.Context, op, query string, args ...interface{}) (*Item, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var it Item
	if err := r.db.GetContext(ctx2, &it, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrStore, op, err)
	}
	return &it, nil
}

// LockTx locks items in the given order with FOR UPDATE
func (r *SQLRepository) LockTx(ctx context.Context, tx *sqlx.Tx, ids []uuid.UUID) (map[uuid.UUID]*Item, error) {
	out := make(map[uuid.UUID]*Item, len(ids))
	for _, id := range ids {
		var it Item
		if err := tx.GetContext(ctx, &it, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
			}
			return nil, fmt.Errorf("%w: lock item: %v", ErrStore, err)
		}
		out[id] = &it
	}
	return out, nil
}

// DecrementTx removes qty from stock inside tx; stock never goes below zero.
func (r *SQLRepository) DecrementTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, qty int) (*Item, error) {
	var it Item
	err := tx.GetContext(ctx, &it, `
		UPDATE items
		SET quantity = quantity - $2,
		    available = CASE WHEN quantity - $2 = 0 THEN FALSE ELSE available END,
		    updated_at = NOW()
		WHERE id = $1 AND quantity >= $2
		RETURNING `+itemColumns, id, qty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInsufficientStock
		}
		return nil, fmt.Errorf("%w: decrement stock: %v", ErrStore, err)
	}
	return &it, nil
}
