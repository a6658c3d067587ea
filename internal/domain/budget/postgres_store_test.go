package budget

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/account"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/item"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/database"
)

func newPostgresService(t *testing.T) (*Service, *item.SQLRepository, user.Repository) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { database.ClosePostgres(db) })
	require.NoError(t, database.Migrate(context.Background(), db))

	items := item.NewRepository(db)
	users := user.NewRepository(db)
	store := NewPostgresStore(db, account.NewRepository(db), items, ledger.NewRepository(db))
	return NewService(store, users, nil, nil, 50), items, users
}

func createUser(t *testing.T, users user.Repository, role user.Role, adminID uuid.UUID) *user.User {
	t.Helper()
	u := &user.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.test",
		PasswordHash: "x",
		Name:         string(role),
		Role:         role,
		Status:       user.StatusActive,
	}
	if adminID != uuid.Nil {
		u.AdminID = uuid.NullUUID{UUID: adminID, Valid: true}
	}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestPostgresScenarios(t *testing.T) {
	svc, items, users := newPostgresService(t)
	ctx := context.Background()
	admin := createUser(t, users, user.RoleAdmin, uuid.Nil)
	sub := createUser(t, users, user.RoleSubAdmin, admin.ID)

	funded, err := svc.FundMainAccount(ctx, admin.ID, d("1000"), "Bank")
	require.NoError(t, err)
	assert.True(t, funded.ToBalance.After.Equal(d("1000")))
	assert.False(t, funded.Timestamp.IsZero())

	_, err = svc.Transfer(ctx, admin.ID, sub.ID, d("200"), "", ledger.TypeMoneyGiven)
	require.NoError(t, err)

	assigned := &item.Item{ID: uuid.New(), Name: "Paper", Quantity: 5, CreatedBy: admin.ID,
		Price: decimalPrice("50"), AssignedTo: uuid.NullUUID{UUID: sub.ID, Valid: true}}
	own := &item.Item{ID: uuid.New(), Name: "Pens", Quantity: 3, CreatedBy: sub.ID,
		Price: decimalPrice("30"), IsSubAdminItem: true, Available: true}
	require.NoError(t, items.Create(ctx, assigned))
	require.NoError(t, items.Create(ctx, own))

	entries, err := svc.Purchase(ctx, sub.ID, []PurchaseLine{{assigned.ID, 2}, {own.ID, 1}})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	acct, err := svc.GetAccount(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(d("70")))

	gotA, err := items.GetByID(ctx, assigned.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, gotA.Quantity)

	_, err = svc.Purchase(ctx, sub.ID, []PurchaseLine{{assigned.ID, 2}})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	acct, err = svc.GetAccount(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(d("70")))
}

func TestPostgresConcurrentTransfers(t *testing.T) {
	svc, _, users := newPostgresService(t)
	ctx := context.Background()
	admin := createUser(t, users, user.RoleAdmin, uuid.Nil)
	subA := createUser(t, users, user.RoleSubAdmin, admin.ID)
	subB := createUser(t, users, user.RoleSubAdmin, admin.ID)

	_, err := svc.FundMainAccount(ctx, admin.ID, d("100"), "Bank")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		to := subA.ID
		if i%2 == 1 {
			to = subB.ID
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(ctx, admin.ID, to, d("10"), "", ledger.TypeMoneyGiven)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrInsufficientBalance) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	acct, err := svc.GetAccount(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, acct.Balance.IsZero())
}
