package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/careersync/careersync/internal/catalog"
	"github.com/careersync/careersync/internal/config"
	"github.com/careersync/careersync/internal/domain"
	logpkg "github.com/careersync/careersync/internal/logger"
	"github.com/careersync/careersync/internal/metrics"
	"github.com/careersync/careersync/internal/repository/embcache"
	"github.com/careersync/careersync/internal/store"
	memstore "github.com/careersync/careersync/internal/store/memory"
	qdrantstore "github.com/careersync/careersync/internal/store/qdrant"
	redisstore "github.com/careersync/careersync/internal/store/redis"
	chiTransport "github.com/careersync/careersync/internal/transport/chi"
	openaiEmb "github.com/careersync/careersync/internal/transport/openai"
	explainuc "github.com/careersync/careersync/internal/usecase/explain"
	healthuc "github.com/careersync/careersync/internal/usecase/health"
	matchuc "github.com/careersync/careersync/internal/usecase/match"
	"github.com/careersync/careersync/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting careersync API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("catalog_path", cfg.Catalog.Path),
	)

	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal("Failed to load career catalog", zap.Error(err))
	}
	logger.Info("Career catalog loaded", zap.Int("careers", cat.Len()))

	ctx := context.Background()

	// Create the vector store backend. kv stays nil unless the backend
	// can also host the embedding cache.
	var (
		querier matchuc.Querier
		pinger  store.Pinger
		kv      embcache.KV
	)
	switch cfg.Store.Backend {
	case "memory":
		vectors, err := catalog.LoadVectors(cfg.Catalog.VectorsPath)
		if err != nil {
			logger.Fatal("Failed to load precomputed vectors", zap.Error(err))
		}
		if err := cat.CheckVectors(vectors); err != nil {
			logger.Fatal("Catalog and vectors file disagree", zap.Error(err))
		}
		mem := memstore.New(buildPoints(cat, vectors))
		querier = mem
		pinger = mem
		logger.Info("In-memory vector store ready", zap.Int("points", mem.Len()))

	case "redis":
		rs, err := redisstore.NewStore(redisstore.Config{
			Addrs:     cfg.Store.Redis.Addrs,
			Password:  cfg.Store.Redis.Password,
			Index:     cfg.Store.Redis.Index,
			KeyPrefix: cfg.Store.Redis.KeyPrefix,
			Dim:       cfg.Embedding.Dimensions,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		defer rs.Close()

		timeout := time.Duration(cfg.Store.Redis.ReadinessTimeout) * time.Second
		if err := rs.WaitForReady(ctx, timeout); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}
		if err := rs.EnsureIndex(ctx); err != nil {
			logger.Fatal("Failed to ensure search index", zap.Error(err))
		}
		querier = store.WithRetry(rs, logger)
		pinger = rs
		kv = rs
		logger.Info("Connected to redis vector store", zap.String("index", cfg.Store.Redis.Index))

	case "qdrant":
		qs, err := qdrantstore.New(cfg.Store.Qdrant.Addr, cfg.Store.Qdrant.Collection, cfg.Embedding.Dimensions)
		if err != nil {
			logger.Fatal("Failed to create qdrant store", zap.Error(err))
		}
		defer func() { _ = qs.Close() }()

		if err := qs.EnsureCollection(ctx); err != nil {
			logger.Fatal("Failed to ensure qdrant collection", zap.Error(err))
		}
		timeout := time.Duration(cfg.Store.Qdrant.ReadinessTimeout) * time.Second
		if err := qs.WaitForReady(ctx, timeout); err != nil {
			logger.Fatal("Qdrant collection not ready", zap.Error(err))
		}
		querier = store.WithRetry(qs, logger)
		pinger = qs
		logger.Info("Connected to qdrant vector store", zap.String("collection", cfg.Store.Qdrant.Collection))

	default:
		logger.Fatal("Unknown store backend", zap.String("backend", cfg.Store.Backend))
	}

	// Build embedder chains — composition root. The query chain carries
	// the retrieval instruction; the plain chain embeds explanation
	// components without it, matching how catalog vectors were built.
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	plainEmbedder := buildEmbedder(base, "", kv, logger)
	queryEmbedder := buildEmbedder(base, cfg.Embedding.QueryInstruction, kv, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Create use case services
	explainSvc := explainuc.New(plainEmbedder)
	matchSvc := matchuc.New(queryEmbedder, querier, explainSvc).
		WithTopK(cfg.Match.TopK).
		WithSchema(schemaFromConfig(cfg.Match.Fields))

	healthSvc := healthuc.New(pinger, newEmbeddingHealthChecker(base), cat.Len())

	// Startup readiness probe: the service refuses match traffic until
	// the embedding provider has answered once.
	go probeReadiness(ctx, healthSvc, base, logger)

	// Create chi server
	server := chiTransport.NewServer(matchSvc, healthSvc, cfg.HTTP.StaticDir, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildPoints couples catalog rows with their precomputed vectors by
// position and attaches the metadata a hit needs for rendering.
func buildPoints(cat *catalog.Catalog, vectors [][]float32) []store.Point {
	records := cat.Records()
	points := make([]store.Point, len(records))
	for i, rec := range records {
		points[i] = store.Point{
			ID:     rec.ID,
			Vector: vectors[i],
			Meta: map[string]string{
				store.MetaTitle:       rec.Title,
				store.MetaDescription: rec.Description,
				store.MetaSkills:      rec.Skills,
			},
		}
	}
	return points
}

// buildEmbedder assembles the decorator chain:
// OpenAI -> Normalized -> Cached -> Instruction.
// Instruction is outermost so the cache key includes the prefix.
func buildEmbedder(
	base *openaiEmb.Embedder,
	instruction string,
	kv embcache.KV,
	logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder = domain.NewNormalizedEmbedder(base)

	if kv != nil {
		embedder = embcache.New(embedder, kv, metrics.EmbeddingCacheTotal, logger)
	}

	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

// schemaFromConfig converts configured field weights into a matcher
// schema. An empty config falls back to the built-in questionnaire.
func schemaFromConfig(fields []config.FieldWeight) matchuc.Schema {
	if len(fields) == 0 {
		return nil
	}
	schema := make(matchuc.Schema, len(fields))
	for i, f := range fields {
		schema[i] = matchuc.Field{Name: f.Name, Weight: f.Weight}
	}
	return schema
}

// probeReadiness retries the embedding provider health check until it
// passes, then flips the service ready.
func probeReadiness(ctx context.Context, health *healthuc.Service, checker domain.HealthChecker, logger *zap.Logger) {
	wait := time.Second
	for {
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := checker.HealthCheck(probeCtx)
		cancel()
		if err == nil {
			health.SetReady(true)
			logger.Info("Embedding provider reachable, service ready")
			return
		}
		logger.Warn("Embedding provider not reachable yet", zap.Error(err), zap.Duration("retry_in", wait))

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if wait < 30*time.Second {
			wait *= 2
		}
	}
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
