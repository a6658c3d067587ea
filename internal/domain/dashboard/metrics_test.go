package dashboard

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/account"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/budget"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
)

var (
	adminID = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	subID   = uuid.MustParse("00000000-0000-0000-0000-0000000000b1")
	base    = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func entry(i int, typ ledger.Type, from, to uuid.UUID, amount string, status ledger.Status) *ledger.Transaction {
	e := &ledger.Transaction{
		ID:        uuid.New(),
		Type:      typ,
		ToUserID:  to,
		Amount:    d(amount),
		Status:    status,
		Timestamp: base.Add(time.Duration(i) * time.Minute),
	}
	if from != uuid.Nil {
		e.FromUserID = uuid.NullUUID{UUID: from, Valid: true}
	}
	return e
}

func sampleLedger() []*ledger.Transaction {
	return []*ledger.Transaction{
		entry(0, ledger.TypeMoneyAdded, uuid.Nil, adminID, "1000", ledger.StatusCompleted),
		entry(1, ledger.TypeMoneyGiven, adminID, subID, "200", ledger.StatusCompleted),
		entry(2, ledger.TypePurchase, subID, adminID, "100", ledger.StatusCompleted),
		entry(3, ledger.TypePurchase, subID, subID, "30", ledger.StatusCompleted),
		entry(4, ledger.TypeTransfer, subID, adminID, "20", ledger.StatusCompleted),
		entry(5, ledger.TypeMoneyRequest, subID, adminID, "50", ledger.StatusPending),
		entry(6, ledger.TypeMoneyRequest, subID, adminID, "5", ledger.StatusCompleted),
	}
}

func TestComputeAdmin(t *testing.T) {
	m := Compute(Snapshot{Entries: sampleLedger(), Balance: d("820")},
		user.Actor{UserID: adminID, Role: user.RoleAdmin, AdminID: adminID}, "USD")

	require.NotNil(t, m.Admin)
	assert.Nil(t, m.SubAdmin)
	assert.True(t, m.Admin.TotalFunded.Equal(d("1000")))
	assert.True(t, m.Admin.MoneyDistributed.Equal(d("200")))
	assert.True(t, m.Admin.MoneyReturned.Equal(d("20")))
	assert.Equal(t, 1, m.Admin.PendingRequests)
	assert.Equal(t, "USD", m.Currency)
}

func TestComputeSubAdmin(t *testing.T) {
	m := Compute(Snapshot{Entries: sampleLedger(), Balance: d("50")},
		user.Actor{UserID: subID, Role: user.RoleSubAdmin, AdminID: adminID}, "USD")

	require.NotNil(t, m.SubAdmin)
	assert.True(t, m.SubAdmin.TotalReceived.Equal(d("200")))
	assert.True(t, m.SubAdmin.TotalSpent.Equal(d("130")))
	assert.True(t, m.SubAdmin.TotalTransferred.Equal(d("20")))
	assert.Equal(t, 1, m.SubAdmin.PendingRequests)
	assert.Equal(t, float64(100), m.SubAdmin.BudgetUsagePercent, "spent exceeds balance, capped")
}

func TestUsagePercent(t *testing.T) {
	assert.Equal(t, float64(0), usagePercent(d("10"), d("0")))
	assert.Equal(t, float64(0), usagePercent(d("10"), d("-5")))
	assert.Equal(t, 42.86, usagePercent(d("30"), d("70")))
	assert.Equal(t, float64(100), usagePercent(d("300"), d("70")))
}

func TestComputeIsPure(t *testing.T) {
	entries := sampleLedger()
	order := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		order[i] = e.ID
	}
	snap := Snapshot{Entries: entries, Balance: d("70")}
	viewer := user.Actor{UserID: subID, Role: user.RoleSubAdmin, AdminID: adminID}

	first := Compute(snap, viewer, "USD")
	second := Compute(snap, viewer, "USD")
	assert.Equal(t, first, second)

	for i, e := range entries {
		assert.Equal(t, order[i], e.ID, "input order untouched")
	}
}

func TestRecentActivity(t *testing.T) {
	var entries []*ledger.Transaction
	for i := 0; i < 15; i++ {
		entries = append(entries, entry(i, ledger.TypeMoneyGiven, adminID, subID, "1", ledger.StatusCompleted))
	}
	m := Compute(Snapshot{Entries: entries}, user.Actor{UserID: adminID, Role: user.RoleAdmin}, "USD")

	require.Len(t, m.RecentActivity, RecentActivityLimit)
	assert.Equal(t, entries[14].ID, m.RecentActivity[0].ID)
	assert.Equal(t, entries[5].ID, m.RecentActivity[9].ID)

	empty := Compute(Snapshot{}, user.Actor{UserID: adminID, Role: user.RoleAdmin}, "USD")
	assert.NotNil(t, empty.RecentActivity)
}

func TestViewApply(t *testing.T) {
	viewer := user.Actor{UserID: subID, Role: user.RoleSubAdmin, AdminID: adminID}
	v := NewView(viewer, "USD", Snapshot{
		Entries: []*ledger.Transaction{entry(1, ledger.TypeMoneyGiven, adminID, subID, "200", ledger.StatusCompleted)},
		Balance: d("200"),
	})
	assert.True(t, v.Metrics().SubAdmin.TotalReceived.Equal(d("200")))

	purchase := entry(2, ledger.TypePurchase, subID, adminID, "50", ledger.StatusCompleted)
	raw, err := json.Marshal(purchase)
	require.NoError(t, err)
	changed, err := v.Apply(budget.EventTransactionCreated, raw)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, v.Metrics().SubAdmin.TotalSpent.Equal(d("50")))

	// Redelivery of the same entry is idempotent.
	_, err = v.Apply(budget.EventTransactionCreated, raw)
	require.NoError(t, err)
	assert.True(t, v.Metrics().SubAdmin.TotalSpent.Equal(d("50")))

	acct, _ := json.Marshal(&account.Account{UserID: subID, Balance: d("150")})
	changed, err = v.Apply(budget.EventAccountUpdated, acct)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, v.Metrics().Balance.Equal(d("150")))

	other, _ := json.Marshal(&account.Account{UserID: adminID, Balance: d("1")})
	changed, err = v.Apply(budget.EventAccountUpdated, other)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = v.Apply("item.updated", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = v.Apply(budget.EventTransactionCreated, json.RawMessage(`{"amount":`))
	assert.Error(t, err)
}
