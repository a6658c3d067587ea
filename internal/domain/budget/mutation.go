package budget

import (
	"bytes"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/account"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/item"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
)

// BalanceDelta is a signed change to one account
type BalanceDelta struct {
	UserID  uuid.UUID
	Amount  decimal.Decimal
	Counter account.Counter
}

// StockDelta removes Quantity units from one item
type StockDelta struct {
	ItemID   uuid.UUID
	Quantity int
}

// Mutation is applied as one unit: every delta, stock change, ledger entry
// and settled request commits together or not at all.
type Mutation struct {
	Deltas  []BalanceDelta
	Stock   []StockDelta
	Entries []*ledger.Transaction
	Settle  []uuid.UUID // pending money requests flipped to completed
}

// Scope lists the rows a mutation may touch. Stores lock them in sorted order.
type Scope struct {
	Accounts []uuid.UUID
	Items    []uuid.UUID
	Requests []uuid.UUID
}

// ScopeOf derives the lock scope of a prebuilt mutation
func ScopeOf(m *Mutation) Scope {
	var s Scope
	for _, d := range m.Deltas {
		s.Accounts = append(s.Accounts, d.UserID)
	}
	for _, st := range m.Stock {
		s.Items = append(s.Items, st.ItemID)
	}
	s.Requests = append(s.Requests, m.Settle...)
	return s
}

// LockedState is what a Planner sees: rows read under lock, safe to check against.
type LockedState struct {
	Accounts map[uuid.UUID]*account.Account
	Items    map[uuid.UUID]*item.Item
	Requests map[uuid.UUID]*ledger.Transaction
}

// Planner builds a mutation from locked state. Returning an error aborts with no changes.
type Planner func(state *LockedState) (*Mutation, error)

// Result is the committed outcome of a mutation
type Result struct {
	Entries  []*ledger.Transaction
	Accounts map[uuid.UUID]*account.Account
	Items    map[uuid.UUID]*item.Item
	Settled  []*ledger.Transaction
}

// Entry returns the first appended entry
func (r *Result) Entry() *ledger.Transaction {
	if r == nil || len(r.Entries) == 0 {
		return nil
	}
	return r.Entries[0]
}

func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return slices.Compact(out)
}

func (s Scope) normalized() Scope {
	return Scope{
		Accounts: sortedUnique(s.Accounts),
		Items:    sortedUnique(s.Items),
		Requests: sortedUnique(s.Requests),
	}
}

// validate checks the mutation shape before anything is read
func (m *Mutation) validate() error {
	if m == nil {
		return ErrUnexplainedDelta
	}
	if len(m.Entries) == 0 && (len(m.Deltas) > 0 || len(m.Stock) > 0 || len(m.Settle) > 0) {
		return ErrUnexplainedDelta
	}
	for _, d := range m.Deltas {
		if d.UserID == uuid.Nil || d.Amount.IsZero() || !account.FitsScale(d.Amount) {
			return ErrInvalidAmount
		}
	}
	for _, st := range m.Stock {
		if st.ItemID == uuid.Nil || st.Quantity <= 0 {
			return fmt.Errorf("%w: stock quantity", ErrInvalidAmount)
		}
	}
	for _, e := range m.Entries {
		if e == nil || !e.Type.Valid() || e.ToUserID == uuid.Nil {
			return ledger.ErrInvalidEntry
		}
		if e.Amount.IsNegative() || !account.FitsScale(e.Amount) {
			return ErrInvalidAmount
		}
	}
	return nil
}

type mergedDelta struct {
	amount  decimal.Decimal
	counter account.Counter
}

// resolve computes the post-mutation state from locked rows without side effects.
// Stores persist what it returns.
func resolve(state *LockedState, scope Scope, m *Mutation, now time.Time) (*Result, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	inScope := func(ids []uuid.UUID, id uuid.UUID) bool {
		_, found := slices.BinarySearchFunc(ids, id, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
		return found
	}

	res := &Result{
		Accounts: make(map[uuid.UUID]*account.Account),
		Items:    make(map[uuid.UUID]*item.Item),
	}

	// Deltas for the same user with different counters apply in order.
	before := make(map[uuid.UUID]decimal.Decimal)
	for _, d := range m.Deltas {
		if !inScope(scope.Accounts, d.UserID) {
			return nil, ErrUnlockedResource
		}
		acct, ok := res.Accounts[d.UserID]
		if !ok {
			locked, found := state.Accounts[d.UserID]
			if !found {
				return nil, fmt.Errorf("%w: account %s", ErrNotFound, d.UserID)
			}
			c := *locked
			acct = &c
			res.Accounts[d.UserID] = acct
			before[d.UserID] = locked.Balance
		}
		acct.Apply(d.Amount, d.Counter, now)
		if acct.Balance.IsNegative() {
			return nil, ErrInsufficientBalance
		}
	}

	for _, st := range m.Stock {
		if !inScope(scope.Items, st.ItemID) {
			return nil, ErrUnlockedResource
		}
		it, ok := res.Items[st.ItemID]
		if !ok {
			locked, found := state.Items[st.ItemID]
			if !found {
				return nil, fmt.Errorf("%w: item %s", ErrNotFound, st.ItemID)
			}
			c := *locked
			it = &c
			res.Items[st.ItemID] = it
		}
		if err := it.Decrement(st.Quantity, now); err != nil {
			return nil, ErrInsufficientStock
		}
	}

	for _, id := range m.Settle {
		if !inScope(scope.Requests, id) {
			return nil, ErrUnlockedResource
		}
		req, found := state.Requests[id]
		if !found {
			return nil, fmt.Errorf("%w: request %s", ErrNotFound, id)
		}
		if req.Type != ledger.TypeMoneyRequest || req.Status != ledger.StatusPending {
			return nil, ErrRequestNotPending
		}
		settled := req.Clone()
		settled.Status = ledger.StatusCompleted
		settled.CompletedAt.Time, settled.CompletedAt.Valid = now, true
		res.Settled = append(res.Settled, settled)
	}

	for _, e := range m.Entries {
		entry := e.Clone()
		if entry.Status == "" {
			entry.Status = ledger.StatusCompleted
		}
		if entry.FromUserID.Valid {
			if acct, ok := res.Accounts[entry.FromUserID.UUID]; ok {
				entry.FromBalance = &ledger.BalanceChange{Before: before[entry.FromUserID.UUID], After: acct.Balance}
			}
		}
		if acct, ok := res.Accounts[entry.ToUserID]; ok {
			entry.ToBalance = &ledger.BalanceChange{Before: before[entry.ToUserID], After: acct.Balance}
		}
		res.Entries = append(res.Entries, entry)
	}

	return res, nil
}
