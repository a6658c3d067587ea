package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/budget"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/item"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
)

type directory map[uuid.UUID]*user.User

func (d directory) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	return d[id], nil
}

func (d directory) ListSubAdmins(_ context.Context, adminID uuid.UUID) ([]*user.User, error) {
	var out []*user.User
	for _, u := range d {
		if u.OwnedBy(adminID) {
			out = append(out, u)
		}
	}
	return out, nil
}

type env struct {
	ctx    context.Context
	ledger *budget.MemoryStore
	budget *budget.Service
	svc    *Service
	admin  uuid.UUID
	sub    uuid.UUID
}

func newEnv(t *testing.T, store Store) *env {
	t.Helper()
	e := &env{ctx: context.Background(), ledger: budget.NewMemoryStore(), admin: uuid.New(), sub: uuid.New()}
	dir := directory{
		e.admin: {ID: e.admin, Role: user.RoleAdmin, Status: user.StatusActive},
		e.sub:   {ID: e.sub, Role: user.RoleSubAdmin, Status: user.StatusActive, AdminID: uuid.NullUUID{UUID: e.admin, Valid: true}},
	}
	e.ledger.OpenAccount(e.admin)
	e.ledger.OpenAccount(e.sub)
	e.budget = budget.NewService(e.ledger, dir, nil, nil, 50)
	e.svc = NewService(store, e.budget, e.budget)
	return e
}

func (e *env) fund(t *testing.T, amount string) {
	t.Helper()
	amt := decimal.RequireFromString(amount)
	_, err := e.budget.FundMainAccount(e.ctx, e.admin, amt, "Bank")
	require.NoError(t, err)
	_, err = e.budget.Transfer(e.ctx, e.admin, e.sub, amt, "", ledger.TypeMoneyGiven)
	require.NoError(t, err)
}

func (e *env) item(qty int, price string, own bool) *item.Item {
	it := &item.Item{ID: uuid.New(), Name: "item", Quantity: qty}
	if own {
		it.CreatedBy, it.IsSubAdminItem, it.Available = e.sub, true, true
	} else {
		it.CreatedBy = e.admin
		it.AssignedTo = uuid.NullUUID{UUID: e.sub, Valid: true}
	}
	if price != "" {
		it.Price = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	e.ledger.PutItem(it)
	return it
}

func TestAddMergesAndChecksStock(t *testing.T) {
	e := newEnv(t, NewMemoryStore(time.Hour))
	it := e.item(3, "10", false)

	c, err := e.svc.Add(e.ctx, e.sub, it.ID, 2)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].MaxQuantity)

	_, err = e.svc.Add(e.ctx, e.sub, it.ID, 2)
	assert.ErrorIs(t, err, budget.ErrInsufficientStock)

	c, err = e.svc.Add(e.ctx, e.sub, it.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Lines[0].Quantity)
	assert.True(t, c.Total().Equal(decimal.NewFromInt(30)))
}

func TestAddRejects(t *testing.T) {
	e := newEnv(t, NewMemoryStore(time.Hour))
	unpriced := e.item(3, "", false)
	foreign := &item.Item{ID: uuid.New(), Name: "x", Quantity: 1, CreatedBy: e.admin,
		Price: decimal.NewNullDecimal(decimal.NewFromInt(1))}
	e.ledger.PutItem(foreign)

	_, err := e.svc.Add(e.ctx, e.sub, unpriced.ID, 1)
	assert.ErrorIs(t, err, budget.ErrMissingPrice)

	_, err = e.svc.Add(e.ctx, e.sub, foreign.ID, 1)
	assert.ErrorIs(t, err, ErrNotPurchasable)

	_, err = e.svc.Add(e.ctx, e.sub, uuid.New(), 1)
	assert.ErrorIs(t, err, budget.ErrNotFound)

	_, err = e.svc.Add(e.ctx, e.sub, unpriced.ID, 0)
	assert.ErrorIs(t, err, budget.ErrInvalidAmount)
}

func TestUpdateQuantityZeroRemoves(t *testing.T) {
	e := newEnv(t, NewMemoryStore(time.Hour))
	a := e.item(5, "1", false)
	b := e.item(5, "2", true)
	_, err := e.svc.Add(e.ctx, e.sub, a.ID, 1)
	require.NoError(t, err)
	_, err = e.svc.Add(e.ctx, e.sub, b.ID, 1)
	require.NoError(t, err)

	c, err := e.svc.UpdateQuantity(e.ctx, e.sub, a.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Lines[0].Quantity)

	c, err = e.svc.UpdateQuantity(e.ctx, e.sub, a.ID, 0)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, b.ID, c.Lines[0].ItemID)

	_, err = e.svc.UpdateQuantity(e.ctx, e.sub, a.ID, 1)
	assert.ErrorIs(t, err, ErrLineNotFound)

	_, err = e.svc.Remove(e.ctx, e.sub, b.ID)
	require.NoError(t, err)
	c, err = e.svc.Get(e.ctx, e.sub)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestCheckoutClearsCart(t *testing.T) {
	e := newEnv(t, NewMemoryStore(time.Hour))
	e.fund(t, "200")
	a := e.item(5, "50", false)
	b := e.item(3, "30", true)
	_, err := e.svc.Add(e.ctx, e.sub, a.ID, 2)
	require.NoError(t, err)
	_, err = e.svc.Add(e.ctx, e.sub, b.ID, 1)
	require.NoError(t, err)

	receipt, err := e.svc.Checkout(e.ctx, e.sub)
	require.NoError(t, err)
	assert.Len(t, receipt.Transactions, 2)
	assert.True(t, receipt.Total.Equal(decimal.NewFromInt(130)))
	assert.Empty(t, receipt.PriceChanges)

	acct, err := e.budget.GetAccount(e.ctx, e.sub)
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(70)))

	c, err := e.svc.Get(e.ctx, e.sub)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = e.svc.Checkout(e.ctx, e.sub)
	assert.ErrorIs(t, err, budget.ErrEmptyCart)
}

func TestFailedCheckoutKeepsCart(t *testing.T) {
	e := newEnv(t, NewMemoryStore(time.Hour))
	e.fund(t, "10")
	a := e.item(5, "50", false)
	_, err := e.svc.Add(e.ctx, e.sub, a.ID, 1)
	require.NoError(t, err)

	_, err = e.svc.Checkout(e.ctx, e.sub)
	require.ErrorIs(t, err, budget.ErrInsufficientBalance)

	c, err := e.svc.Get(e.ctx, e.sub)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 1)
}

func TestCheckoutReportsPriceChanges(t *testing.T) {
	e := newEnv(t, NewMemoryStore(time.Hour))
	e.fund(t, "200")
	a := e.item(5, "50", false)
	_, err := e.svc.Add(e.ctx, e.sub, a.ID, 2)
	require.NoError(t, err)

	repriced := *a
	repriced.Price = decimal.NewNullDecimal(decimal.NewFromInt(60))
	e.ledger.PutItem(&repriced)

	receipt, err := e.svc.Checkout(e.ctx, e.sub)
	require.NoError(t, err)
	assert.True(t, receipt.Total.Equal(decimal.NewFromInt(120)))
	require.Len(t, receipt.PriceChanges, 1)
	change := receipt.PriceChanges[0]
	assert.Equal(t, a.ID, change.ItemID)
	assert.True(t, change.CartPrice.Equal(decimal.NewFromInt(50)))
	assert.True(t, change.ChargedPrice.Equal(decimal.NewFromInt(60)))

	acct, err := e.budget.GetAccount(e.ctx, e.sub)
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(80)))
}

func TestRedisStoreRoundTripAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	e := newEnv(t, NewStore(rdb, time.Minute))
	a := e.item(5, "2.50", false)

	_, err := e.svc.Add(e.ctx, e.sub, a.ID, 2)
	require.NoError(t, err)

	c, err := e.svc.Get(e.ctx, e.sub)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.True(t, c.Lines[0].Price.Equal(decimal.RequireFromString("2.50")))
	assert.True(t, mr.TTL("cart:"+e.sub.String()) > 0)

	mr.FastForward(2 * time.Minute)
	c, err = e.svc.Get(e.ctx, e.sub)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty(), "expired session drops the cart")
}

func TestMemoryStoreExpires(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	sub := uuid.New()
	c := New(sub)
	c.Upsert(Line{ItemID: uuid.New(), Quantity: 1})
	require.NoError(t, s.Save(context.Background(), c))

	got, _ := s.Get(context.Background(), sub)
	assert.Len(t, got.Lines, 1)

	got.Lines[0].Quantity = 99
	again, _ := s.Get(context.Background(), sub)
	assert.Equal(t, 1, again.Lines[0].Quantity, "readers get copies")

	now = now.Add(2 * time.Minute)
	got, _ = s.Get(context.Background(), sub)
	assert.True(t, got.IsEmpty())
}
