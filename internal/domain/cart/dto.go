package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/budget"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
)

// AddRequest is the body of POST /cart/items
type AddRequest struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"gte=1,lte=100000"`
}

// UpdateRequest is the body of PATCH /cart/items/{itemId}. Zero removes the line.
type UpdateRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=100000"`
}

// PriceChange is a line charged at the locked item price rather than the price shown in the cart
type PriceChange struct {
	ItemID       uuid.UUID       `json:"item_id"`
	Name         string          `json:"name"`
	CartPrice    decimal.Decimal `json:"cart_price"`
	ChargedPrice decimal.Decimal `json:"charged_price"`
}

// Receipt is returned by checkout
type Receipt struct {
	Transactions []*ledger.Transaction `json:"transactions"`
	Total        decimal.Decimal       `json:"total"`
	PriceChanges []PriceChange         `json:"price_changes,omitempty"`
}

// newReceipt compares charged lines with the cart the sub-admin saw
func newReceipt(c *Cart, entries []*ledger.Transaction) *Receipt {
	purchase := budget.NewPurchaseResponse(entries)
	r := &Receipt{Transactions: purchase.Transactions, Total: purchase.Total}

	shown := make(map[uuid.UUID]Line, len(c.Lines))
	for _, l := range c.Lines {
		shown[l.ItemID] = l
	}
	for _, e := range entries {
		for _, charged := range e.Items {
			l, ok := shown[charged.ItemID]
			if !ok || l.Price.Equal(charged.Price) {
				continue
			}
			r.PriceChanges = append(r.PriceChanges, PriceChange{
				ItemID:       charged.ItemID,
				Name:         charged.Name,
				CartPrice:    l.Price,
				ChargedPrice: charged.Price,
			})
		}
	}
	return r
}

// Response is the public view of a cart
type Response struct {
	Items     []Line          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

func NewResponse(c *Cart) *Response {
	return &Response{Items: c.Lines, Total: c.Total(), ItemCount: c.Count()}
}
