package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/budgetdesk/budgetdesk-api/internal/config"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/account"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/auth"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/budget"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/cart"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/dashboard"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/item"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/ledger"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/realtime"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/team"
	"github.com/budgetdesk/budgetdesk-api/internal/domain/user"
	"github.com/budgetdesk/budgetdesk-api/internal/middleware"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/database"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/jwt"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/logger"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/ratelimit"
	"github.com/budgetdesk/budgetdesk-api/internal/pkg/response"
)

// handlers groups everything mounted under /api/v1
type handlers struct {
	auth      *auth.Handler
	team      *team.Handler
	budget    *budget.Handler
	item      *item.Handler
	cart      *cart.Handler
	dashboard *dashboard.Handler
	realtime  *realtime.Handler
}

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, LogFile: cfg.LogFile}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting BudgetDesk API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	accountRepo := account.NewRepository(db)
	itemRepo := item.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)

	// ---------- Realtime hub ----------
	hub := realtime.NewHub(rdb)
	go hub.Run()
	defer hub.Shutdown()

	// ---------- Services ----------
	store := budget.NewPostgresStore(db, accountRepo, itemRepo, ledgerRepo)
	limiter := ratelimit.New(rdb, cfg.MoneyRequestRateLimit, cfg.MoneyRequestRateWindow)
	budgetService := budget.NewService(store, userRepo, hub, limiter, cfg.TransactionsDefaultLimit)

	authService := auth.NewService(userRepo, jwtService, auth.NewTokenStore(rdb), cfg.AdminSignupEnabled)
	teamService := team.NewService(userRepo, budgetService, cfg.SubAdminPasswordLength)
	itemService := item.NewService(itemRepo, userRepo, hub)
	cartService := cart.NewService(cart.NewStore(rdb, cfg.CartTTL), budgetService, budgetService)
	dashboardService := dashboard.NewService(budgetService, userRepo, cfg.DefaultCurrency)

	h := handlers{
		auth:      auth.NewHandler(authService),
		team:      team.NewHandler(teamService),
		budget:    budget.NewHandler(budgetService),
		item:      item.NewHandler(itemService),
		cart:      cart.NewHandler(cartService),
		dashboard: dashboard.NewHandler(dashboardService),
		realtime:  realtime.NewHandler(hub, dashboardService, cfg.AllowedOrigins),
	}

	r := newRouter(cfg, middleware.Auth(jwtService), h, healthHandler(db, rdb, hub))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func newRouter(cfg *config.Config, authMiddleware func(http.Handler) http.Handler, h handlers, health http.HandlerFunc) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket sits outside the compressed group; hijacked connections cannot be gzipped.
	r.Mount("/ws", h.realtime.Routes(authMiddleware))

	r.Group(func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.Get("/health", health)

		r.Route("/api/v1", func(r chi.Router) {
			r.Mount("/auth", h.auth.Routes(authMiddleware))
			r.Mount("/users", h.team.Routes(authMiddleware))
			r.Mount("/accounts", h.budget.AccountRoutes(authMiddleware))
			r.Mount("/budget", h.budget.Routes(authMiddleware))
			r.Mount("/transactions", h.budget.TransactionRoutes(authMiddleware))
			r.Mount("/items", h.item.Routes(authMiddleware))
			r.Mount("/cart", h.cart.Routes(authMiddleware))
			r.Mount("/dashboard", h.dashboard.Routes(authMiddleware))
		})
	})

	return r
}

func healthHandler(db *sqlx.DB, rdb *redis.Client, hub *realtime.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := database.Health(r.Context(), db, rdb)
		body := map[string]interface{}{
			"status":      "ok",
			"stores":      status,
			"connections": hub.ConnectionCount(),
		}
		if !database.Healthy(status) {
			body["status"] = "degraded"
			response.JSON(w, http.StatusServiceUnavailable, body)
			return
		}
		response.OK(w, body)
	}
}
