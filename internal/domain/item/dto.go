package item

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateRequest is the body of POST /items
type CreateRequest struct {
	Name         string           `json:"name" validate:"required,min=1,max=200"`
	Category     string           `json:"category" validate:"max=100"`
	SerialNumber string           `json:"serial_number" validate:"max=100"`
	Notes        string           `json:"notes" validate:"max=1000"`
	Quantity     int              `json:"quantity" validate:"gte=0,lte=1000000"`
	Price        *decimal.Decimal `json:"price,omitempty" validate:"omitempty,gte=0,money"`
}

// UpdatePriceRequest is the body of PATCH /items/{id}/price
type UpdatePriceRequest struct {
	Price decimal.Decimal `json:"price" validate:"gte=0,money"`
}

// AssignRequest is the body of POST /items/{id}/assign
type AssignRequest struct {
	SubAdminID uuid.UUID `json:"sub_admin_id" validate:"required"`
}

// Response is the public view of an item
type Response struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	Category       string           `json:"category"`
	SerialNumber   string           `json:"serial_number"`
	Notes          string           `json:"notes"`
	Quantity       int              `json:"quantity"`
	Price          *decimal.Decimal `json:"price"`
	Available      bool             `json:"available"`
	AssignedTo     *uuid.UUID       `json:"assigned_to"`
	AssignedAt     *time.Time       `json:"assigned_at,omitempty"`
	CreatedBy      uuid.UUID        `json:"created_by"`
	IsSubAdminItem bool             `json:"is_sub_admin_item"`
	PriceUpdatedAt *time.Time       `json:"price_updated_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// NewResponse converts an item for output
func NewResponse(i *Item) *Response {
	r := &Response{
		ID:             i.ID,
		Name:           i.Name,
		Category:       i.Category,
		SerialNumber:   i.SerialNumber,
		Notes:          i.Notes,
		Quantity:       i.Quantity,
		Available:      i.Available,
		CreatedBy:      i.CreatedBy,
		IsSubAdminItem: i.IsSubAdminItem,
		CreatedAt:      i.CreatedAt,
	}
	if i.Price.Valid {
		p := i.Price.Decimal
		r.Price = &p
	}
	if i.AssignedTo.Valid {
		id := i.AssignedTo.UUID
		r.AssignedTo = &id
	}
	if i.AssignedAt.Valid {
		r.AssignedAt = &i.AssignedAt.Time
	}
	if i.PriceUpdatedAt.Valid {
		r.PriceUpdatedAt = &i.PriceUpdatedAt.Time
	}
	return r
}

// NewResponseList converts items for output
func NewResponseList(items []*Item) []*Response {
	out := make([]*Response, len(items))
	for i, it := range items {
		out[i] = NewResponse(it)
	}
	return out
}
