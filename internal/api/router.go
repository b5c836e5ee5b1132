package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/casegraph/casegraph/internal/api/handlers"
	mw "github.com/casegraph/casegraph/internal/api/middleware"
	"github.com/casegraph/casegraph/internal/config"
	"github.com/casegraph/casegraph/internal/domain"
	"github.com/casegraph/casegraph/internal/embedding"
	"github.com/casegraph/casegraph/internal/llm"
	"github.com/casegraph/casegraph/internal/service"
	"github.com/casegraph/casegraph/internal/store"
)

// App holds the router and request counters for lifecycle management.
type App struct {
	Router       *chi.Mux
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	nodeStore := store.NewNodeStore(db)
	edgeStore := store.NewEdgeStore(db)
	contradictionStore := store.NewContradictionStore(db)

	// External clients via provider factory
	var embeddingClient domain.EmbeddingClient
	var classifier domain.Classifier

	llmProvider := config.LLMProvider()
	embeddingProvider := config.EmbeddingProvider()

	var err error
	classifier, err = llm.NewClient(llmProvider, config.LLMAPIKey())
	if err != nil {
		logger.Warn("classifier initialization failed, falling back to mock",
			zap.String("provider", llmProvider), zap.Error(err))
		classifier = llm.NewMockClient()
	} else {
		logger.Info("classifier initialized", zap.String("provider", llmProvider))
	}

	embeddingClient, err = embedding.NewClient(embeddingProvider, config.EmbeddingAPIKey())
	if err != nil {
		logger.Warn("embedding client initialization failed, falling back to mock",
			zap.String("provider", embeddingProvider), zap.Error(err))
		embeddingClient = embedding.NewMockClient()
	} else {
		logger.Info("embedding client initialized", zap.String("provider", embeddingProvider))
	}

	// Sync hooks for downstream plan and grounding recalculation
	var hooks []domain.SyncHook
	if url := config.PlanSyncURL(); url != "" {
		hooks = append(hooks, service.NewWebhookHook("plan", url))
	}
	if url := config.GroundingSyncURL(); url != "" {
		hooks = append(hooks, service.NewWebhookHook("grounding", url))
	}

	// Services
	timeout := config.ExternalCallTimeout()
	cascadeSvc := service.NewCascadeService(nodeStore, edgeStore, hooks, config.CascadeMaxDepth(), logger)
	linkerSvc := service.NewLinkerService(nodeStore, edgeStore, contradictionStore, classifier, cascadeSvc,
		config.LinkSimilarityThreshold(), config.LinkMinConfidence(), timeout, logger)
	retrievalSvc := service.NewRetrievalService(nodeStore, embeddingClient, config.WarmSimilarityThreshold(), timeout, logger)

	// Handlers
	nodeHandler := handlers.NewNodeHandler(nodeStore, edgeStore, embeddingClient, timeout, logger)
	evidenceHandler := handlers.NewEvidenceHandler(nodeStore, embeddingClient, linkerSvc, timeout, logger)
	cascadeHandler := handlers.NewCascadeHandler(cascadeSvc, logger)
	contextHandler := handlers.NewContextHandler(retrievalSvc, logger)
	contradictionHandler := handlers.NewContradictionHandler(contradictionStore, logger)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		startTime: time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/evidence", evidenceHandler.Create)

		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", nodeHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", nodeHandler.GetByID)
				r.Get("/edges", nodeHandler.GetEdges)
				r.Put("/pin", nodeHandler.SetPinned)
			})
		})

		r.Post("/assumptions/{id}/cascade", cascadeHandler.Trigger)

		r.Get("/context", contextHandler.GetContext)
		r.Get("/contradictions", contradictionHandler.List)
	})

	return app
}

// NewRouter returns just the chi.Mux.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.NodeStore          = (*store.NodeStore)(nil)
	_ domain.EdgeStore          = (*store.EdgeStore)(nil)
	_ domain.ContradictionStore = (*store.ContradictionStore)(nil)
	_ domain.EmbeddingClient    = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient    = (*embedding.MockClient)(nil)
	_ domain.Classifier         = (*llm.OpenAIClient)(nil)
	_ domain.Classifier         = (*llm.AnthropicClient)(nil)
	_ domain.Classifier         = (*llm.MockClient)(nil)
	_ domain.SyncHook           = (*service.WebhookHook)(nil)
	_ domain.SyncHook           = (service.NoopHook{})
)
