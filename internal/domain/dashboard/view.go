package dashboard

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/account"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/budget"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
)

// View is the per-session mirror of the viewer's ledger and balance.
// It changes only through Apply and is not safe for concurrent use:
// exactly one goroutine (the session writer) owns it.
type View struct {
	viewer   user.Actor
	currency string
	entries  map[uuid.UUID]*ledger.Transaction
	balance  decimal.Decimal
	metrics  Metrics
}

// NewView seeds a view from an initial snapshot
func NewView(viewer user.Actor, currency string, snap Snapshot) *View {
	v := &View{
		viewer:   viewer,
		currency: currency,
		entries:  make(map[uuid.UUID]*ledger.Transaction, len(snap.Entries)),
		balance:  snap.Balance,
	}
	for _, e := range snap.Entries {
		v.entries[e.ID] = e.Clone()
	}
	v.recompute()
	return v
}

// Metrics returns the last computed metrics
func (v *View) Metrics() Metrics {
	return v.metrics
}

// Apply folds one pushed event into the view. It reports whether metrics changed.
func (v *View) Apply(event string, payload json.RawMessage) (bool, error) {
	switch event {
	case budget.EventTransactionCreated, budget.EventTransactionUpdated:
		var t ledger.Transaction
		if err := json.Unmarshal(payload, &t); err != nil {
			return false, fmt.Errorf("decode %s: %w", event, err)
		}
		v.entries[t.ID] = &t

	case budget.EventAccountUpdated:
		var a account.Account
		if err := json.Unmarshal(payload, &a); err != nil {
			return false, fmt.Errorf("decode %s: %w", event, err)
		}
		if a.UserID != v.viewer.UserID || a.Balance.Equal(v.balance) {
			return false, nil
		}
		v.balance = a.Balance

	default:
		return false, nil
	}

	v.recompute()
	return true, nil
}

func (v *View) recompute() {
	snap := Snapshot{Entries: make([]*ledger.Transaction, 0, len(v.entries)), Balance: v.balance}
	for _, e := range v.entries {
		snap.Entries = append(snap.Entries, e)
	}
	v.metrics = Compute(snap, v.viewer, v.currency)
}
