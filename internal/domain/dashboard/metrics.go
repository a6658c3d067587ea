package dashboard

import (
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
)

// RecentActivityLimit is how many entries Metrics.RecentActivity carries
const RecentActivityLimit = 10

// Snapshot is the input of Compute: ledger entries visible to the viewer plus its balance
type Snapshot struct {
	Entries []*ledger.Transaction
	Balance decimal.Decimal
}

// AdminMetrics are the aggregates shown to an admin
type AdminMetrics struct {
	TotalFunded      decimal.Decimal `json:"total_funded"`
	MoneyDistributed decimal.Decimal `json:"money_distributed"`
	MoneyReturned    decimal.Decimal `json:"money_returned"`
	PendingRequests  int             `json:"pending_requests"`
}

// SubAdminMetrics are the aggregates shown to a sub-admin
type SubAdminMetrics struct {
	TotalReceived      decimal.Decimal `json:"total_received"`
	TotalSpent         decimal.Decimal `json:"total_spent"`
	TotalTransferred   decimal.Decimal `json:"total_transferred"`
	BudgetUsagePercent float64         `json:"budget_usage_percent"`
	PendingRequests    int             `json:"pending_requests"`
}

// Metrics is the dashboard payload for one viewer
type Metrics struct {
	Role           user.Role             `json:"role"`
	Balance        decimal.Decimal       `json:"balance"`
	Currency       string                `json:"currency"`
	Admin          *AdminMetrics         `json:"admin,omitempty"`
	SubAdmin       *SubAdminMetrics      `json:"sub_admin,omitempty"`
	RecentActivity []*ledger.Transaction `json:"recent_activity"`
}

var hundred = decimal.NewFromInt(100)

// Compute derives metrics from a snapshot. It does not modify the snapshot.
func Compute(snap Snapshot, viewer user.Actor, currency string) Metrics {
	m := Metrics{
		Role:     viewer.Role,
		Balance:  snap.Balance,
		Currency: currency,
	}

	if viewer.IsAdmin() {
		a := &AdminMetrics{}
		for _, e := range snap.Entries {
			switch {
			case e.Type == ledger.TypeMoneyAdded && e.ToUserID == viewer.UserID:
				a.TotalFunded = a.TotalFunded.Add(e.Amount)
			case e.Type == ledger.TypeMoneyGiven && sentBy(e, viewer.UserID):
				a.MoneyDistributed = a.MoneyDistributed.Add(e.Amount)
			case (e.Type == ledger.TypeMoneyReturned || e.Type == ledger.TypeTransfer) && e.ToUserID == viewer.UserID:
				a.MoneyReturned = a.MoneyReturned.Add(e.Amount)
			case e.Type == ledger.TypeMoneyRequest && e.IsPending() && e.ToUserID == viewer.UserID:
				a.PendingRequests++
			}
		}
		m.Admin = a
	} else {
		s := &SubAdminMetrics{}
		for _, e := range snap.Entries {
			switch {
			case e.Type == ledger.TypeMoneyGiven && e.ToUserID == viewer.UserID:
				s.TotalReceived = s.TotalReceived.Add(e.Amount)
			case e.Type == ledger.TypePurchase && sentBy(e, viewer.UserID):
				s.TotalSpent = s.TotalSpent.Add(e.Amount)
			case e.Type == ledger.TypeTransfer && sentBy(e, viewer.UserID):
				s.TotalTransferred = s.TotalTransferred.Add(e.Amount)
			case e.Type == ledger.TypeMoneyRequest && e.IsPending() && sentBy(e, viewer.UserID):
				s.PendingRequests++
			}
		}
		s.BudgetUsagePercent = usagePercent(s.TotalSpent, snap.Balance)
		m.SubAdmin = s
	}

	m.RecentActivity = recent(snap.Entries, RecentActivityLimit)
	return m
}

// usagePercent is spent relative to the current balance, capped at 100.
func usagePercent(spent, balance decimal.Decimal) float64 {
	if !balance.IsPositive() {
		return 0
	}
	pct := spent.Div(balance).Mul(hundred)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return pct.Round(2).InexactFloat64()
}

func sentBy(e *ledger.Transaction, userID uuid.UUID) bool {
	return e.FromUserID.Valid && e.FromUserID.UUID == userID
}

func recent(entries []*ledger.Transaction, n int) []*ledger.Transaction {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b *ledger.Transaction) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	if sorted == nil {
		sorted = []*ledger.Transaction{}
	}
	return sorted
}
