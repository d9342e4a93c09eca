package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kondate/internal/assets"
	"github.com/hyperjump/kondate/internal/config"
	"github.com/hyperjump/kondate/internal/corpus"
	"github.com/hyperjump/kondate/internal/diet"
	"github.com/hyperjump/kondate/internal/embedding"
	"github.com/hyperjump/kondate/internal/models"
	"github.com/hyperjump/kondate/internal/pipeline"
	"github.com/hyperjump/kondate/internal/storage"
)

// Components holds initialized services.
type Components struct {
	Source   assets.Source
	Store    *storage.SQLiteStorage
	Redis    *embedding.RedisCache
	Pipeline *pipeline.Pipeline
}

func (c *Components) Close() {
	if c.Pipeline != nil {
		_ = c.Pipeline.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

// DiskPaths names the local paths reported by the status endpoint.
func (c *Components) DiskPaths(cfg *config.Config) map[string]string {
	paths := map[string]string{
		"asset_cache": cfg.Assets.CacheDir,
	}
	if cfg.Assets.Kind == "" || cfg.Assets.Kind == assets.KindDir {
		paths["assets"] = cfg.Assets.Dir
	}
	if cfg.Corpus.Format == corpus.FormatSQLite {
		paths["database"] = cfg.Corpus.DatabasePath
	}
	return paths
}

// initializeComponents wires the asset source, caches and loaders into an uninitialized
// pipeline. Nothing heavy is loaded until Pipeline.Initialize runs.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	src, err := assets.New(ctx, assetOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize asset source: %w", err)
	}
	c := &Components{Source: src}

	if cfg.Corpus.Format == corpus.FormatSQLite {
		store, err := storage.NewSQLiteStorage(cfg.Corpus.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		c.Store = store
	}

	cache := buildCache(ctx, cfg, logger, c)
	loader := newCorpusLoader(cfg, src, c.Store, logger)

	c.Pipeline = pipeline.New(pipeline.Options{
		Loaders: pipeline.Loaders{
			Vocabulary: func(ctx context.Context) (*embedding.Vocabulary, error) {
				rc, err := assets.Open(ctx, src, cfg.Vocabulary.Path)
				if err != nil {
					return nil, err
				}
				defer rc.Close()
				return embedding.ParseVocabulary(rc)
			},
			Model: func(ctx context.Context) (embedding.Model, error) {
				return loadModel(ctx, cfg, src, logger)
			},
			Corpus: func(ctx context.Context) ([]*models.Recipe, error) {
				res, err := loader.Load(ctx)
				if err != nil {
					return nil, err
				}
				return res.Recipes, nil
			},
		},
		QueryPrefix:  cfg.Embedding.QueryPrefix,
		Cache:        cache,
		Diets:        diet.NewCatalog(cfg.Diets),
		DefaultLimit: cfg.Recommend.DefaultLimit,
		MaxLimit:     cfg.Recommend.MaxLimit,
		Logger:       logger,
	})

	logger.Info("components initialized",
		zap.String("assets", src.String()),
		zap.String("model_backend", cfg.Model.Backend),
		zap.String("corpus_format", cfg.Corpus.Format))
	return c, nil
}

func assetOptions(cfg *config.Config) assets.Options {
	return assets.Options{
		Kind:    cfg.Assets.Kind,
		Dir:     cfg.Assets.Dir,
		BaseURL: cfg.Assets.BaseURL,
		Bucket:  cfg.Assets.Bucket,
		Prefix:  cfg.Assets.Prefix,
		Region:  cfg.Assets.Region,
		Timeout: cfg.Assets.Timeout,
	}
}

func newCorpusLoader(cfg *config.Config, src assets.Source, store storage.RecipeStore, logger *zap.Logger) *corpus.Loader {
	return corpus.NewLoader(src, store, corpus.Options{
		Format:       cfg.Corpus.Format,
		File:         cfg.Corpus.File,
		ChunkPattern: cfg.Corpus.ChunkPattern,
		Chunks:       cfg.Corpus.Chunks,
		Manifest:     cfg.Corpus.Manifest,
		Model:        cfg.Model.Name,
		Logger:       logger,
	})
}

// loadModel opens the configured backend. The ONNX model must be a local file, so remote
// sources are downloaded into the asset cache first.
func loadModel(ctx context.Context, cfg *config.Config, src assets.Source, logger *zap.Logger) (embedding.Model, error) {
	if cfg.Model.Backend == "hash" {
		logger.Warn("using hash model; recommendations are not semantically meaningful",
			zap.Int("hidden_size", cfg.Model.HiddenSize))
		return embedding.NewHashModel(cfg.Model.HiddenSize), nil
	}

	path, err := assets.LocalFile(ctx, src, cfg.Model.Path, cfg.Assets.CacheDir, logger)
	if err != nil {
		return nil, err
	}
	m, err := embedding.NewONNXModel(embedding.ONNXOptions{
		ModelPath:   path,
		LibraryPath: cfg.Model.LibraryPath,
		OutputName:  cfg.Model.OutputName,
		HiddenSize:  cfg.Model.HiddenSize,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// buildCache layers the in-process LRU over Redis. A Redis connection failure only
// disables that tier.
func buildCache(ctx context.Context, cfg *config.Config, logger *zap.Logger, c *Components) embedding.Cache {
	tiered := &embedding.TieredCache{}
	if cfg.Cache.Size > 0 {
		lru, err := embedding.NewLRUCache(cfg.Cache.Size)
		if err != nil {
			logger.Warn("embedding cache disabled", zap.Error(err))
		} else {
			tiered.L1 = lru
		}
	}
	if cfg.Cache.RedisURL != "" {
		rc, err := embedding.NewRedisCache(ctx, embedding.RedisOptions{
			URL:    cfg.Cache.RedisURL,
			Prefix: cachePrefix(cfg),
			TTL:    cfg.Cache.RedisTTL,
			Logger: logger,
		})
		if err != nil {
			logger.Warn("redis embedding cache unavailable", zap.Error(err))
		} else {
			c.Redis = rc
			tiered.L2 = rc
		}
	}
	if tiered.L1 == nil && tiered.L2 == nil {
		return nil
	}
	return tiered
}

// cachePrefix scopes shared Redis entries to the model that produced them, so deployments
// with different models or hidden sizes never read each other's vectors.
func cachePrefix(cfg *config.Config) string {
	name := cfg.Model.Name
	if name == "" {
		name = "default"
	}
	return fmt.Sprintf("%s%s:%s:%d:", cfg.Cache.RedisPrefix, cfg.Model.Backend, name, cfg.Model.HiddenSize)
}
