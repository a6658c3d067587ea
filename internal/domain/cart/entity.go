package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is one item in a cart. MaxQuantity is the stock seen when the line was last touched.
type Line struct {
	ItemID      uuid.UUID       `json:"item_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	MaxQuantity int             `json:"max_quantity"`
}

// Total returns price × quantity
func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the per sub-admin shopping cart
type Cart struct {
	SubAdminID uuid.UUID `json:"sub_admin_id"`
	Lines      []Line    `json:"lines"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func New(subAdminID uuid.UUID) *Cart {
	return &Cart{SubAdminID: subAdminID, Lines: []Line{}}
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Total sums every line
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Total())
	}
	return total
}

// Count returns the number of units in the cart
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Find returns the index of itemID or -1
func (c *Cart) Find(itemID uuid.UUID) int {
	for i, l := range c.Lines {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}

// Upsert replaces the line for l.ItemID or appends it
func (c *Cart) Upsert(l Line) {
	if i := c.Find(l.ItemID); i >= 0 {
		c.Lines[i] = l
		return
	}
	c.Lines = append(c.Lines, l)
}

// Remove drops the line for itemID; it reports whether one existed.
func (c *Cart) Remove(itemID uuid.UUID) bool {
	i := c.Find(itemID)
	if i < 0 {
		return false
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return true
}
