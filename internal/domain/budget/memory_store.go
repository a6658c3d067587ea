package budget

import (
	"context"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/account"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/item"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
)

// MemoryStore keeps accounts, items and the ledger in process memory.
// A single mutex serializes Execute, so every mutation is atomic.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*account.Account
	items    map[uuid.UUID]*item.Item
	entries  []*ledger.Transaction // append order
	byID     map[uuid.UUID]*ledger.Transaction
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[uuid.UUID]*account.Account),
		items:    make(map[uuid.UUID]*item.Item),
		byID:     make(map[uuid.UUID]*ledger.Transaction),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// OpenAccount creates a zero-balance account, the provisioning "set" operation.
func (s *MemoryStore) OpenAccount(userID uuid.UUID) *account.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[userID]; ok {
		c := *a
		return &c
	}
	a := account.New(userID)
	s.accounts[userID] = a
	c := *a
	return &c
}

// PutItem stores an item as-is
func (s *MemoryStore) PutItem(it *item.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *it
	s.items[it.ID] = &c
}

func (s *MemoryStore) GetAccount(_ context.Context, userID uuid.UUID) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[userID]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	c := *a
	return &c, nil
}

func (s *MemoryStore) GetItem(_ context.Context, id uuid.UUID) (*item.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return nil, item.ErrItemNotFound
	}
	c := *it
	return &c, nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, ledger.ErrTransactionNotFound
	}
	return t.Clone(), nil
}

// Query snapshots matching entries at range time, newest first.
func (s *MemoryStore) Query(ctx context.Context, filter ledger.Filter) iter.Seq2[*ledger.Transaction, error] {
	return func(yield func(*ledger.Transaction, error) bool) {
		s.mu.RLock()
		matched := make([]*ledger.Transaction, 0)
		for i := len(s.entries) - 1; i >= 0; i-- {
			if filter.Match(s.entries[i]) {
				matched = append(matched, s.entries[i].Clone())
			}
		}
		s.mu.RUnlock()

		slices.SortStableFunc(matched, func(a, b *ledger.Transaction) int {
			return b.Timestamp.Compare(a.Timestamp)
		})
		if filter.Limit > 0 && len(matched) > filter.Limit {
			matched = matched[:filter.Limit]
		}

		for _, t := range matched {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(t, nil) {
				return
			}
		}
	}
}

func (s *MemoryStore) Execute(ctx context.Context, scope Scope, plan Planner) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scope = scope.normalized()
	state := &LockedState{
		Accounts: make(map[uuid.UUID]*account.Account, len(scope.Accounts)),
		Items:    make(map[uuid.UUID]*item.Item, len(scope.Items)),
		Requests: make(map[uuid.UUID]*ledger.Transaction, len(scope.Requests)),
	}
	for _, id := range scope.Accounts {
		a, ok := s.accounts[id]
		if !ok {
			return nil, ErrNotFound
		}
		c := *a
		state.Accounts[id] = &c
	}
	for _, id := range scope.Items {
		it, ok := s.items[id]
		if !ok {
			return nil, ErrNotFound
		}
		c := *it
		state.Items[id] = &c
	}
	for _, id := range scope.Requests {
		t, ok := s.byID[id]
		if !ok {
			return nil, ErrNotFound
		}
		state.Requests[id] = t.Clone()
	}

	m, err := plan(state)
	if err != nil {
		return nil, err
	}

	now := s.now()
	res, err := resolve(state, scope, m, now)
	if err != nil {
		return nil, err
	}

	// Past this point nothing can fail.
	for id, a := range res.Accounts {
		c := *a
		s.accounts[id] = &c
	}
	for id, it := range res.Items {
		c := *it
		s.items[id] = &c
	}
	for _, settled := range res.Settled {
		stored := settled.Clone()
		s.byID[stored.ID] = stored
		for i, e := range s.entries {
			if e.ID == stored.ID {
				s.entries[i] = stored
			}
		}
	}
	for i, e := range res.Entries {
		e.ID = uuid.New()
		// Strictly increasing timestamps keep creation order visible.
		e.Timestamp = now.Add(time.Duration(i) * time.Microsecond)
		if last := len(s.entries); last > 0 && !e.Timestamp.After(s.entries[last-1].Timestamp) {
			e.Timestamp = s.entries[last-1].Timestamp.Add(time.Microsecond)
		}
		if e.Status == ledger.StatusCompleted {
			e.CompletedAt.Time, e.CompletedAt.Valid = e.Timestamp, true
		}
		stored := e.Clone()
		s.entries = append(s.entries, stored)
		s.byID[stored.ID] = stored
	}

	return res, nil
}
