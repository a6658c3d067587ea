package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Counter names the running total a balance delta contributes to
type Counter int

const (
	CounterNone Counter = iota
	CounterReceived
	CounterSpent
	CounterTransferred
)

// Scale is the number of decimal places money columns store
const Scale = 2

// FitsScale reports whether d has no digits beyond Scale
func FitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(Scale))
}

// ValidAmount reports whether d is a positive amount storable without rounding
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && FitsScale(d)
}

// Account is the balance record of one user
type Account struct {
	UserID           uuid.UUID       `db:"user_id" json:"user_id"`
	Balance          decimal.Decimal `db:"balance" json:"balance"`
	TotalReceived    decimal.Decimal `db:"total_received" json:"total_received"`
	TotalSpent       decimal.Decimal `db:"total_spent" json:"total_spent"`
	TotalTransferred decimal.Decimal `db:"total_transferred" json:"total_transferred"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// New returns a zeroed account
func New(userID uuid.UUID) *Account {
	return &Account{
		UserID:           userID,
		Balance:          decimal.Zero,
		TotalReceived:    decimal.Zero,
		TotalSpent:       decimal.Zero,
		TotalTransferred: decimal.Zero,
		UpdatedAt:        time.Now().UTC(),
	}
}

// Apply adds delta to the balance and the magnitude to counter.
func (a *Account) Apply(delta decimal.Decimal, counter Counter, at time.Time) {
	a.Balance = a.Balance.Add(delta)
	switch counter {
	case CounterReceived:
		a.TotalReceived = a.TotalReceived.Add(delta.Abs())
	case CounterSpent:
		a.TotalSpent = a.TotalSpent.Add(delta.Abs())
	case CounterTransferred:
		a.TotalTransferred = a.TotalTransferred.Add(delta.Abs())
	}
	a.UpdatedAt = at
}

// CanCover reports whether the balance covers amount
func (a *Account) CanCover(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}
