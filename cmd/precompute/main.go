// Command precompute embeds the full career catalog and writes the
// vectors to the configured store backend. Run it once before serving
// and again whenever the catalog or the embedding model changes.
package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"github.com/careersync/careersync/internal/catalog"
	"github.com/careersync/careersync/internal/config"
	"github.com/careersync/careersync/internal/domain"
	logpkg "github.com/careersync/careersync/internal/logger"
	"github.com/careersync/careersync/internal/metrics"
	"github.com/careersync/careersync/internal/store"
	qdrantstore "github.com/careersync/careersync/internal/store/qdrant"
	redisstore "github.com/careersync/careersync/internal/store/redis"
	openaiEmb "github.com/careersync/careersync/internal/transport/openai"
)

const upsertBatchSize = 100

var (
	catalogFlag = flag.String("catalog", "", "catalog CSV path, overrides the config file")
	outFlag     = flag.String("out", "", "vectors file output path (memory backend), overrides the config file")
)

func main() {
	flag.Parse()
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	applyPathOverrides(&cfg, *catalogFlag, *outFlag)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	metrics.RegisterEmbeddingMetrics()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal("Failed to load career catalog", zap.Error(err))
	}
	logger.Info("Career catalog loaded",
		zap.Int("careers", cat.Len()),
		zap.String("backend", cfg.Store.Backend),
		zap.String("model", cfg.Embedding.Model),
	)

	// Document embedder chain: Normalized inside, instruction outermost.
	// Must mirror the query-side chain or similarity scores are garbage.
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	var embedder domain.Embedder = domain.NewNormalizedEmbedder(base)
	if cfg.Embedding.DocumentInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.Embedding.DocumentInstruction)
	}

	ctx := context.Background()

	vectors, err := embedCatalog(ctx, embedder, cat.FullTexts(), cfg.Embedding.BatchSize, logger)
	if err != nil {
		logger.Fatal("Failed to embed catalog", zap.Error(err))
	}

	switch cfg.Store.Backend {
	case "memory":
		if err := catalog.SaveVectors(cfg.Catalog.VectorsPath, vectors); err != nil {
			logger.Fatal("Failed to save vectors file", zap.Error(err))
		}
		logger.Info("Vectors file written",
			zap.String("path", cfg.Catalog.VectorsPath),
			zap.Int("count", len(vectors)),
		)

	case "redis":
		if err := loadRedis(ctx, cfg, cat, vectors, logger); err != nil {
			logger.Fatal("Failed to load redis", zap.Error(err))
		}

	case "qdrant":
		if err := loadQdrant(ctx, cfg, cat, vectors, logger); err != nil {
			logger.Fatal("Failed to load qdrant", zap.Error(err))
		}

	default:
		logger.Fatal("Unknown store backend", zap.String("backend", cfg.Store.Backend))
	}

	logger.Info("Precompute finished", zap.Int("careers", cat.Len()))
}

// applyPathOverrides lets command-line flags take precedence over the
// configured catalog and vectors paths. Empty flags keep the config
// file values.
func applyPathOverrides(cfg *config.Config, catalogPath, outPath string) {
	if catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}
	if outPath != "" {
		cfg.Catalog.VectorsPath = outPath
	}
}

// embedCatalog batch-embeds all catalog texts, keeping row order.
func embedCatalog(
	ctx context.Context,
	embedder domain.Embedder,
	texts []string,
	batchSize int,
	logger *zap.Logger,
) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		res, err := domain.EmbedBatch(ctx, embedder, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, res.Embeddings...)

		logger.Info("Embedded batch",
			zap.Int("from", start),
			zap.Int("to", end),
			zap.Int("total_tokens", res.TotalTokens),
		)
	}

	return vectors, nil
}

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

func upsertAll(ctx context.Context, s store.Store, points []store.Point, logger *zap.Logger) error {
	for start := 0; start < len(points); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(points) {
			end = len(points)
		}
		if err := s.Upsert(ctx, points[start:end]); err != nil {
			return err
		}
		logger.Info("Upserted batch", zap.Int("from", start), zap.Int("to", end))
	}
	return nil
}

func loadRedis(
	ctx context.Context,
	cfg config.Config,
	cat *catalog.Catalog,
	vectors [][]float32,
	logger *zap.Logger,
) error {
	rs, err := redisstore.NewStore(redisstore.Config{
		Addrs:     cfg.Store.Redis.Addrs,
		Password:  cfg.Store.Redis.Password,
		Index:     cfg.Store.Redis.Index,
		KeyPrefix: cfg.Store.Redis.KeyPrefix,
		Dim:       cfg.Embedding.Dimensions,
	})
	if err != nil {
		return err
	}
	defer rs.Close()

	timeout := time.Duration(cfg.Store.Redis.ReadinessTimeout) * time.Second
	if err := rs.WaitForReady(ctx, timeout); err != nil {
		return err
	}
	if err := rs.EnsureIndex(ctx); err != nil {
		return err
	}

	if err := upsertAll(ctx, rs, buildPoints(cat, vectors), logger); err != nil {
		return err
	}

	// Background indexing lags the writes.
	return rs.WaitForIndex(ctx, timeout)
}

func loadQdrant(
	ctx context.Context,
	cfg config.Config,
	cat *catalog.Catalog,
	vectors [][]float32,
	logger *zap.Logger,
) error {
	qs, err := qdrantstore.New(cfg.Store.Qdrant.Addr, cfg.Store.Qdrant.Collection, cfg.Embedding.Dimensions)
	if err != nil {
		return err
	}
	defer func() { _ = qs.Close() }()

	if err := qs.EnsureCollection(ctx); err != nil {
		return err
	}
	timeout := time.Duration(cfg.Store.Qdrant.ReadinessTimeout) * time.Second
	if err := qs.WaitForReady(ctx, timeout); err != nil {
		return err
	}

	return upsertAll(ctx, qs, buildPoints(cat, vectors), logger)
}
