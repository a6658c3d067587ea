package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/account"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
	"github.com/budgetdesk/budgetdesk-api/internal/middleware"
)

type fakeSource struct {
	entries  []*ledger.Transaction
	accounts map[uuid.UUID]*account.Account
}

func (f *fakeSource) Snapshot(context.Context, user.Actor) ([]*ledger.Transaction, error) {
	return f.entries, nil
}

func (f *fakeSource) GetAccount(_ context.Context, id uuid.UUID) (*account.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	return a, nil
}

type fakeDirectory []*user.User

func (f fakeDirectory) ListSubAdmins(_ context.Context, adminID uuid.UUID) ([]*user.User, error) {
	var out []*user.User
	for _, u := range f {
		if u.OwnedBy(adminID) {
			out = append(out, u)
		}
	}
	return out, nil
}

func newTestService() *Service {
	idle := uuid.MustParse("00000000-0000-0000-0000-0000000000b2")
	src := &fakeSource{
		entries: sampleLedger(),
		accounts: map[uuid.UUID]*account.Account{
			adminID: {UserID: adminID, Balance: d("920")},
			subID:   {UserID: subID, Balance: d("50"), TotalReceived: d("200"), TotalSpent: d("130"), TotalTransferred: d("20")},
			idle:    {UserID: idle},
		},
	}
	owner := uuid.NullUUID{UUID: adminID, Valid: true}
	dir := fakeDirectory{
		{ID: subID, Name: "Busy", Role: user.RoleSubAdmin, Status: user.StatusActive, AdminID: owner},
		{ID: idle, Name: "Idle", Role: user.RoleSubAdmin, Status: user.StatusInactive, AdminID: owner},
	}
	return NewService(src, dir, "USD")
}

func adminActor() user.Actor {
	return user.Actor{UserID: adminID, Role: user.RoleAdmin, AdminID: adminID}
}

func TestServiceGet(t *testing.T) {
	m, err := newTestService().Get(context.Background(), adminActor())
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency)
	assert.True(t, m.Balance.Equal(d("920")))
	require.NotNil(t, m.Admin)
	assert.Equal(t, 1, m.Admin.PendingRequests)
}

func TestSubAdminOverview(t *testing.T) {
	rows, err := newTestService().SubAdminOverview(context.Background(), adminActor())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byName := map[string]*SubAdminSummary{}
	for _, r := range rows {
		byName[r.Name] = r
	}

	busy := byName["Busy"]
	require.NotNil(t, busy)
	assert.True(t, busy.Balance.Equal(d("50")))
	assert.True(t, busy.TotalSpent.Equal(d("130")))
	assert.Equal(t, 6, busy.TransactionCount)
	require.NotNil(t, busy.LastActivityAt)
	assert.Equal(t, base.Add(6*time.Minute), *busy.LastActivityAt)

	idle := byName["Idle"]
	require.NotNil(t, idle)
	assert.Equal(t, user.StatusInactive, idle.Status)
	assert.Zero(t, idle.TransactionCount)
	assert.Nil(t, idle.LastActivityAt)
}

func TestSubAdminsRouteIsAdminOnly(t *testing.T) {
	h := NewHandler(newTestService())
	sub := user.Actor{UserID: subID, Role: user.RoleSubAdmin, AdminID: adminID}

	serve := func(actor user.Actor) *httptest.ResponseRecorder {
		inject := func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(middleware.WithPrincipal(r.Context(), actor)))
			})
		}
		r := chi.NewRouter()
		r.Mount("/dashboard", h.Routes(inject))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/subadmins", nil))
		return rec
	}

	if rec := serve(sub); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for sub-admin, got %d", rec.Code)
	}

	rec := serve(adminActor())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d body=%s", rec.Code, rec.Body.String())
	}
	var out struct {
		Data []SubAdminSummary `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Data) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out.Data))
	}
}
