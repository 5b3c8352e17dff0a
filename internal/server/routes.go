package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/flowbit/nl2sql/internal/agent"
	"github.com/flowbit/nl2sql/internal/handler"
	"github.com/flowbit/nl2sql/internal/metrics"
	"github.com/flowbit/nl2sql/internal/middleware"
	"github.com/flowbit/nl2sql/internal/models"
	"github.com/flowbit/nl2sql/internal/security"
	"github.com/flowbit/nl2sql/internal/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Dependencies are the long-lived resources the routes are built on
type Dependencies struct {
	DB        *service.PostgresService
	Answer    handler.QuestionAnswerer
	Health    handler.HealthChecker
	Analytics handler.Analytics
}

// newDependencies opens the pool and builds the question pipeline from cfg
func (s *Server) newDependencies(ctx context.Context) (*Dependencies, error) {
	cfg := s.cfg

	// ─── Services ───────────────────────────────────────────────────────────────
	db, err := service.NewPostgresService(ctx, service.PoolConfig{
		DSN:              cfg.DatabaseURL,
		MinConns:         cfg.DBMinConns,
		MaxConns:         cfg.DBMaxConns,
		ConnectTimeout:   cfg.DBConnectTimeout.Duration,
		StatementTimeout: cfg.DBStatementTimeout.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := metrics.RegisterPoolStats(db.Stat); err != nil {
		log.Warn().Err(err).Msg("pool metrics unavailable")
	}

	// ─── AI Agent ────────────────────────────────────────────────────────────────
	gen, err := agent.NewGenerator(agent.GeneratorConfig{
		Provider:    cfg.LLMProvider,
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout.Duration,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("llm: %w", err)
	}

	sqlAgent := agent.NewSQLAgent(
		gen,
		db,
		security.NewSQLValidator(),
		security.NewAuditLogger(cfg.EnableAuditLogging),
		cfg.MaxRows,
	)

	log.Info().
		Str("llm_provider", cfg.LLMProvider).
		Str("llm_model", cfg.LLMModel).
		Int("max_rows", cfg.MaxRows).
		Dur("statement_timeout", cfg.DBStatementTimeout.Duration).
		Bool("audit_logging", cfg.EnableAuditLogging).
		Msg("service configuration")

	return &Dependencies{
		DB:        db,
		Answer:    sqlAgent,
		Health:    db,
		Analytics: service.NewAnalyticsService(db),
	}, nil
}

// Routes builds the router. Exposed so tests can serve it without a listener.
func Routes(deps *Dependencies, corsOrigins []string) http.Handler {
	queryH := handler.NewQueryHandler(deps.Answer)
	healthH := handler.NewHealthHandler(deps.Health)

	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(corsOrigins)))
	r.Use(chiMiddleware.RealIP)

	r.Get("/", handler.Root)
	r.Get("/health", healthH.Health)
	r.Post("/query", queryH.Query)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Dashboard
	if deps.Analytics != nil {
		analyticsH := handler.NewAnalyticsHandler(deps.Analytics)
		r.Get("/stats", analyticsH.Stats)
		r.Get("/invoice-trends", analyticsH.InvoiceTrends)
		r.Get("/vendors/top10", analyticsH.TopVendors)
		r.Get("/category-spend", analyticsH.CategorySpend)
		r.Get("/cash-outflow", analyticsH.CashOutflow)
		r.Get("/invoices", analyticsH.Invoices)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		models.WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		models.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
