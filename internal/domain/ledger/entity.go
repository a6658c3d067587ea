package ledger

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type is the kind of ledger entry
type Type string

const (
	TypeMoneyGiven    Type = "money_given"
	TypeMoneyReturned Type = "money_returned"
	TypeMoneyAdded    Type = "money_added"
	TypeTransfer      Type = "transfer"
	TypePurchase      Type = "purchase"
	TypeMoneyRequest  Type = "money_request"
)

// Valid reports whether t is a known entry type
func (t Type) Valid() bool {
	switch t {
	case TypeMoneyGiven, TypeMoneyReturned, TypeMoneyAdded, TypeTransfer, TypePurchase, TypeMoneyRequest:
		return true
	}
	return false
}

// Status of an entry. Only money_request is ever pending.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Line is one purchased item recorded on a purchase entry
type Line struct {
	ItemID   uuid.UUID       `json:"item_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Total returns price * quantity
func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Lines is stored as JSONB
type Lines []Line

func (l Lines) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *Lines) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return errors.New("ledger: unsupported items column type")
}

// Total sums every line
func (l Lines) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range l {
		total = total.Add(line.Total())
	}
	return total
}

// Quantity sums line quantities
func (l Lines) Quantity() int {
	n := 0
	for _, line := range l {
		n += line.Quantity
	}
	return n
}

// BalanceChange is the before/after snapshot of one party's balance
type BalanceChange struct {
	Before decimal.Decimal `json:"before"`
	After  decimal.Decimal `json:"after"`
}

// Transaction is one immutable ledger entry
type Transaction struct {
	ID                uuid.UUID       `json:"id"`
	Type              Type            `json:"type"`
	FromUserID        uuid.NullUUID   `json:"from_user_id"`
	ToUserID          uuid.UUID       `json:"to_user_id"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	Status            Status          `json:"status"`
	Items             Lines           `json:"items,omitempty"`
	IsOwnItemPurchase bool            `json:"is_own_item_purchase,omitempty"`
	FromBalance       *BalanceChange  `json:"from_balance,omitempty"`
	ToBalance         *BalanceChange  `json:"to_balance,omitempty"`
	Reference         uuid.NullUUID   `json:"reference"`
	Timestamp         time.Time       `json:"timestamp"`
	CompletedAt       sql.NullTime    `json:"-"`
}

// From returns the sender, uuid.Nil for money_added
func (t *Transaction) From() uuid.UUID {
	if !t.FromUserID.Valid {
		return uuid.Nil
	}
	return t.FromUserID.UUID
}

// Involves reports whether userID is on either side of the entry
func (t *Transaction) Involves(userID uuid.UUID) bool {
	return t.ToUserID == userID || (t.FromUserID.Valid && t.FromUserID.UUID == userID)
}

// Parties returns the distinct users on the entry
func (t *Transaction) Parties() []uuid.UUID {
	if !t.FromUserID.Valid || t.FromUserID.UUID == t.ToUserID {
		return []uuid.UUID{t.ToUserID}
	}
	return []uuid.UUID{t.FromUserID.UUID, t.ToUserID}
}

// IsPending reports an unresolved money request
func (t *Transaction) IsPending() bool {
	return t.Status == StatusPending
}

// Clone returns a deep copy so stored entries cannot be mutated through readers.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.Items != nil {
		c.Items = append(Lines(nil), t.Items...)
	}
	if t.FromBalance != nil {
		fb := *t.FromBalance
		c.FromBalance = &fb
	}
	if t.ToBalance != nil {
		tb := *t.ToBalance
		c.ToBalance = &tb
	}
	return &c
}
