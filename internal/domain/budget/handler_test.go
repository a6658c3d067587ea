package budget

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
	"github.com/budgetdesk/budgetdesk-api/internal/middleware"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func doJSON(t *testing.T, h http.HandlerFunc, actor user.Actor, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(middleware.WithPrincipal(req.Context(), actor))
	rec := httptest.NewRecorder()
	h(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestHandlerSubAdminTransferGoesToOwningAdmin(t *testing.T) {
	f := newFixture(t)
	f.fundSub(t, "100")
	h := NewHandler(f.svc)

	rec, env := doJSON(t, h.Transfer, user.ActorOf(f.sub), http.MethodPost, "/budget/transfers",
		`{"amount":"40","description":"Leftover"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, env.Success)

	var entry struct {
		Type     string `json:"type"`
		ToUserID string `json:"to_user_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.Equal(t, "transfer", entry.Type)
	assert.Equal(t, f.admin.ID.String(), entry.ToUserID)
}

func TestHandlerErrorStatuses(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)

	rec, env := doJSON(t, h.Transfer, user.ActorOf(f.admin), http.MethodPost, "/budget/transfers",
		`{"to_user_id":"`+f.sub.ID.String()+`","amount":"5"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INSUFFICIENT_BALANCE", env.Error.Code)

	rec, _ = doJSON(t, h.Fund, user.ActorOf(f.admin), http.MethodPost, "/budget/fund", `{"amount":"0"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, env = doJSON(t, h.Fund, user.ActorOf(f.sub), http.MethodPost, "/budget/fund", `{"amount":"10"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "PERMISSION_DENIED", env.Error.Code)

	rec, _ = doJSON(t, h.Transfer, user.ActorOf(f.admin), http.MethodPost, "/budget/transfers", `{"amount":"5"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "admins must name a recipient")

	rec, _ = doJSON(t, h.ListTransactions, user.ActorOf(f.admin), http.MethodGet, "/transactions?status=lost", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestParseFilter(t *testing.T) {
	q := map[string][]string{
		"type":      {"purchase,transfer"},
		"status":    {"completed"},
		"date_from": {"2026-01-01"},
		"date_to":   {"2026-01-31"},
		"search":    {"  ink "},
		"limit":     {"20"},
	}
	f, errs := ParseFilter(q)
	require.Nil(t, errs)
	assert.Len(t, f.Types, 2)
	assert.Equal(t, "ink", f.Search)
	assert.Equal(t, 20, f.Limit)
	require.NotNil(t, f.DateTo)
	assert.Equal(t, 23, f.DateTo.Hour())

	_, errs = ParseFilter(map[string][]string{"type": {"gift"}, "limit": {"0"}})
	assert.Contains(t, errs, "type")
	assert.Contains(t, errs, "limit")
}

func TestHandlerGetMyAccount(t *testing.T) {
	f := newFixture(t)
	f.fundSub(t, "100")
	h := NewHandler(f.svc)

	rec, env := doJSON(t, h.GetMyAccount, user.ActorOf(f.sub), http.MethodGet, "/accounts/me", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var acct struct {
		UserID        string `json:"user_id"`
		Balance       string `json:"balance"`
		TotalReceived string `json:"total_received"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &acct))
	assert.Equal(t, f.sub.ID.String(), acct.UserID)
	assert.Equal(t, "100", acct.Balance)
	assert.Equal(t, "100", acct.TotalReceived)
}
