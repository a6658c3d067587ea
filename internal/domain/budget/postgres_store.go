package budget

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/account"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/item"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
)

const mutationTimeout = 5 * time.Second

// PostgresStore runs each mutation in one READ COMMITTED transaction with row locks.
type PostgresStore struct {
	db       *sqlx.DB
	accounts *account.Repository
	items    *item.SQLRepository
	ledger   *ledger.Repository
}

func NewPostgresStore(db *sqlx.DB, accounts *account.Repository, items *item.SQLRepository, ledgerRepo *ledger.Repository) *PostgresStore {
	return &PostgresStore{db: db, accounts: accounts, items: items, ledger: ledgerRepo}
}

func (s *PostgresStore) GetAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error) {
	a, err := s.accounts.Get(ctx, userID)
	return a, storeErr(err)
}

func (s *PostgresStore) GetItem(ctx context.Context, id uuid.UUID) (*item.Item, error) {
	it, err := s.items.GetByID(ctx, id)
	return it, storeErr(err)
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	t, err := s.ledger.Get(ctx, id)
	return t, storeErr(err)
}

func (s *PostgresStore) Query(ctx context.Context, filter ledger.Filter) iter.Seq2[*ledger.Transaction, error] {
	return func(yield func(*ledger.Transaction, error) bool) {
		for t, err := range s.ledger.Query(ctx, filter) {
			if !yield(t, storeErr(err)) {
				return
			}
		}
	}
}

func (s *PostgresStore) Execute(ctx context.Context, scope Scope, plan Planner) (*Result, error) {
	ctx2, cancel := context.WithTimeout(ctx, mutationTimeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx2, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx: %v", ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	scope = scope.normalized()
	state := &LockedState{Requests: make(map[uuid.UUID]*ledger.Transaction, len(scope.Requests))}

	// Lock order: accounts, items, requests; each sorted by id.
	if state.Accounts, err = s.accounts.LockTx(ctx2, tx, scope.Accounts); err != nil {
		return nil, storeErr(err)
	}
	if state.Items, err = s.items.LockTx(ctx2, tx, scope.Items); err != nil {
		return nil, storeErr(err)
	}
	for _, id := range scope.Requests {
		req, err := s.ledger.LockTx(ctx2, tx, id)
		if err != nil {
			return nil, storeErr(err)
		}
		state.Requests[id] = req
	}

	m, err := plan(state)
	if err != nil {
		return nil, err
	}

	var now time.Time
	if err := tx.GetContext(ctx2, &now, `SELECT NOW()`); err != nil {
		return nil, fmt.Errorf("%w: read clock: %v", ErrStoreUnavailable, err)
	}

	res, err := resolve(state, scope, m, now)
	if err != nil {
		return nil, err
	}

	for _, d := range m.Deltas {
		updated, err := s.accounts.ApplyTx(ctx2, tx, d.UserID, d.Amount, d.Counter)
		if err != nil {
			return nil, storeErr(err)
		}
		res.Accounts[d.UserID] = updated
	}
	for _, st := range m.Stock {
		updated, err := s.items.DecrementTx(ctx2, tx, st.ItemID, st.Quantity)
		if err != nil {
			return nil, storeErr(err)
		}
		res.Items[st.ItemID] = updated
	}
	for i, settled := range res.Settled {
		completed, err := s.ledger.CompleteRequestTx(ctx2, tx, settled.ID)
		if err != nil {
			return nil, storeErr(err)
		}
		res.Settled[i] = completed
	}
	for _, e := range res.Entries {
		if err := s.ledger.InsertTx(ctx2, tx, e); err != nil {
			return nil, storeErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx: %v", ErrStoreUnavailable, err)
	}
	return res, nil
}

// storeErr maps repository errors onto the engine taxonomy
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case isTaxonomy(err):
		return err
	case errors.Is(err, account.ErrAccountNotFound),
		errors.Is(err, item.ErrItemNotFound),
		errors.Is(err, ledger.ErrTransactionNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, account.ErrNegativeBalance):
		return ErrInsufficientBalance
	case errors.Is(err, item.ErrInsufficientStock):
		return ErrInsufficientStock
	case errors.Is(err, ledger.ErrNotPending):
		return ErrRequestNotPending
	case errors.Is(err, ledger.ErrInvalidEntry):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

var taxonomy = []error{
	ErrInsufficientBalance, ErrInsufficientStock, ErrMissingPrice, ErrInvalidAmount,
	ErrNotFound, ErrAuthenticationRequired, ErrPermissionDenied, ErrStoreUnavailable,
	ErrEmptyCart, ErrSelfTransfer, ErrRequestNotPending, ErrUnexplainedDelta,
	ErrUnlockedResource, ErrInvalidKind, ErrRateLimited,
}

func isTaxonomy(err error) bool {
	for _, target := range taxonomy {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
