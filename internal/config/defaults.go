package config

import (
	"os"
	"time"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Assets.Kind == "" {
		cfg.Assets.Kind = "dir"
	}
	if cfg.Assets.Dir == "" {
		cfg.Assets.Dir = "/usr/local/var/kondate/data"
	}
	if cfg.Assets.CacheDir == "" {
		cfg.Assets.CacheDir = "/usr/local/var/kondate/cache"
	}
	if cfg.Assets.Timeout == 0 {
		cfg.Assets.Timeout = 5 * time.Minute
	}
	if cfg.Vocabulary.Path == "" {
		cfg.Vocabulary.Path = "model/vocab.txt"
	}
	if cfg.Model.Backend == "" {
		cfg.Model.Backend = "onnx"
	}
	if cfg.Model.Path == "" {
		cfg.Model.Path = "model/model.onnx"
	}
	if cfg.Model.LibraryPath == "" {
		cfg.Model.LibraryPath = os.Getenv("ONNXRUNTIME_LIB")
	}
	if cfg.Model.HiddenSize == 0 {
		cfg.Model.HiddenSize = 384
	}
	if cfg.Corpus.Format == "" {
		cfg.Corpus.Format = "chunks"
	}
	if cfg.Corpus.ChunkPattern == "" {
		cfg.Corpus.ChunkPattern = "chunks/part%d.json"
	}
	if cfg.Corpus.Chunks == 0 {
		cfg.Corpus.Chunks = 17
	}
	if cfg.Corpus.Manifest == "" {
		cfg.Corpus.Manifest = "manifest.json"
	}
	if cfg.Corpus.DatabasePath == "" {
		cfg.Corpus.DatabasePath = "/usr/local/var/kondate/data/db/recipes.db"
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = 1024
	}
	if cfg.Cache.RedisURL == "" {
		cfg.Cache.RedisURL = os.Getenv("KONDATE_REDIS_URL")
	}
	if cfg.Cache.RedisPrefix == "" {
		cfg.Cache.RedisPrefix = "kondate:emb:"
	}
	if cfg.Cache.RedisTTL == 0 {
		cfg.Cache.RedisTTL = 24 * time.Hour
	}
	if cfg.Recommend.DefaultLimit == 0 {
		cfg.Recommend.DefaultLimit = 10
	}
}
