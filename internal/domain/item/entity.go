package item

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a physical good tracked by quantity
type Item struct {
	ID             uuid.UUID           `db:"id"`
	Name           string              `db:"name"`
	Category       string              `db:"category"`
	SerialNumber   string              `db:"serial_number"`
	Notes          string              `db:"notes"`
	Quantity       int                 `db:"quantity"`
	Price          decimal.NullDecimal `db:"price"`
	Available      bool                `db:"available"`
	AssignedTo     uuid.NullUUID       `db:"assigned_to"`
	AssignedAt     sql.NullTime        `db:"assigned_at"`
	CreatedBy      uuid.UUID           `db:"created_by"`
	IsSubAdminItem bool                `db:"is_subadmin_item"`
	PriceUpdatedAt sql.NullTime        `db:"price_updated_at"`
	PriceUpdatedBy uuid.NullUUID       `db:"price_updated_by"`
	CreatedAt      time.Time           `db:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at"`
}

// DefaultCategory labels items created without a category
const DefaultCategory = "Uncategorized"

// HasPrice reports whether a price has been set
func (i *Item) HasPrice() bool {
	return i.Price.Valid
}

// IsAssignedTo reports whether the item is assigned to subAdminID
func (i *Item) IsAssignedTo(subAdminID uuid.UUID) bool {
	return i.AssignedTo.Valid && i.AssignedTo.UUID == subAdminID
}

// IsOwnItemOf reports whether subAdminID created this item for themselves
func (i *Item) IsOwnItemOf(subAdminID uuid.UUID) bool {
	return i.IsSubAdminItem && i.CreatedBy == subAdminID
}

// PurchasableBy reports whether subAdminID may put this item in a cart
func (i *Item) PurchasableBy(subAdminID uuid.UUID) bool {
	return i.IsAssignedTo(subAdminID) || i.IsOwnItemOf(subAdminID)
}

// Assign hands the item to a sub-admin. Assigned items leave the shared pool.
func (i *Item) Assign(subAdminID uuid.UUID, at time.Time) {
	i.AssignedTo = uuid.NullUUID{UUID: subAdminID, Valid: true}
	i.AssignedAt = sql.NullTime{Time: at, Valid: true}
	i.Available = false
	i.UpdatedAt = at
}

// Unassign returns the item to the pool; empty stock stays unavailable.
func (i *Item) Unassign(at time.Time) {
	i.AssignedTo = uuid.NullUUID{}
	i.AssignedAt = sql.NullTime{}
	i.Available = i.Quantity > 0
	i.UpdatedAt = at
}

// SetPrice records a new price and who set it
func (i *Item) SetPrice(price decimal.Decimal, by uuid.UUID, at time.Time) {
	i.Price = decimal.NewNullDecimal(price)
	i.PriceUpdatedAt = sql.NullTime{Time: at, Valid: true}
	i.PriceUpdatedBy = uuid.NullUUID{UUID: by, Valid: true}
	i.UpdatedAt = at
}

// Decrement removes qty from stock. Assignment is left untouched.
func (i *Item) Decrement(qty int, at time.Time) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if qty > i.Quantity {
		return ErrInsufficientStock
	}
	i.Quantity -= qty
	if i.Quantity == 0 {
		i.Available = false
	}
	i.UpdatedAt = at
	return nil
}
