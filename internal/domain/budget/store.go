package budget

import (
	"context"

	"github.com/google/uuid"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/account"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/item"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
)

// Store is the persistence boundary of the engine. Execute is the only write path.
type Store interface {
	ledger.Reader

	GetAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error)
	GetItem(ctx context.Context, id uuid.UUID) (*item.Item, error)

	// Execute locks scope, asks plan for a mutation and commits it atomically.
	Execute(ctx context.Context, scope Scope, plan Planner) (*Result, error)
}

// ApplyLedgeredMutation commits a prebuilt mutation. Balance and stock
// preconditions are still checked against locked rows.
func ApplyLedgeredMutation(ctx context.Context, store Store, m *Mutation) (*Result, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	return store.Execute(ctx, ScopeOf(m), func(*LockedState) (*Mutation, error) {
		return m, nil
	})
}
