package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/budgetdesk/budgetdesk-api/internal/config"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/auth"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/budget"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/cart"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/dashboard"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/item"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/realtime"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/team"
	"github.com/budgetdesk/budgetdesk-api/internal/middleware"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/jwt"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	hub := realtime.NewHub(nil)
	t.Cleanup(hub.Shutdown)

	store := budget.NewMemoryStore()
	budgetService := budget.NewService(store, nil, hub, nil, 50)
	dashboardService := dashboard.NewService(budgetService, nil, "USD")

	h := handlers{
		auth:      auth.NewHandler(auth.NewService(nil, jwt.NewService("secret", time.Minute, time.Hour), auth.NewMemoryTokenStore(), false)),
		team:      team.NewHandler(team.NewService(nil, budgetService, 12)),
		budget:    budget.NewHandler(budgetService),
		item:      item.NewHandler(item.NewService(nil, nil, hub)),
		cart:      cart.NewHandler(cart.NewService(cart.NewMemoryStore(time.Hour), budgetService, budgetService)),
		dashboard: dashboard.NewHandler(dashboardService),
		realtime:  realtime.NewHandler(hub, dashboardService, nil),
	}

	cfg := &config.Config{}
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	return newRouter(cfg, middleware.Auth(jwt.NewService("secret", time.Minute, time.Hour)), h, ok)
}

func TestRouterMountsEveryArea(t *testing.T) {
	r := testRouter(t)

	protected := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodGet, "/api/v1/users/subadmins"},
		{http.MethodPatch, "/api/v1/users/me"},
		{http.MethodGet, "/api/v1/accounts/me"},
		{http.MethodPost, "/api/v1/budget/fund"},
		{http.MethodPost, "/api/v1/budget/transfers"},
		{http.MethodGet, "/api/v1/transactions"},
		{http.MethodGet, "/api/v1/items"},
		{http.MethodGet, "/api/v1/cart"},
		{http.MethodPost, "/api/v1/cart/checkout"},
		{http.MethodGet, "/api/v1/dashboard"},
		{http.MethodGet, "/ws"},
	}

	for _, tc := range protected {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401 without token, got %d", rr.Code)
			}
		})
	}
}

func TestRouterHealthAndUnknown(t *testing.T) {
	r := testRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/castings", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown area, got %d", rr.Code)
	}
}

func TestRoleGuardsAfterAuth(t *testing.T) {
	jwtService := jwt.NewService("secret", time.Minute, time.Hour)
	r := testRouter(t)
	adminID := uuid.New()

	subAdmin, err := jwtService.GenerateAccessToken(uuid.New(), "subadmin", &adminID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/budget/fund", nil)
	req.Header.Set("Authorization", "Bearer "+subAdmin)
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for sub-admin funding, got %d", rr.Code)
	}
}
