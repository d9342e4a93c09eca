// Package config provides configuration loading and structs for kondate.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool                `yaml:"debug"`
	Server     ServerConfig        `yaml:"server"`
	Assets     AssetsConfig        `yaml:"assets"`
	Vocabulary VocabularyConfig    `yaml:"vocabulary"`
	Model      ModelConfig         `yaml:"model"`
	Corpus     CorpusConfig        `yaml:"corpus"`
	Embedding  EmbeddingConfig     `yaml:"embedding"`
	Cache      CacheConfig         `yaml:"cache"`
	Recommend  RecommendConfig     `yaml:"recommend"`
	Diets      map[string][]string `yaml:"diets"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// AssetsConfig selects where the vocabulary, model and corpus are read from.
type AssetsConfig struct {
	// Kind is dir, http or s3.
	Kind    string        `yaml:"kind"`
	Dir     string        `yaml:"dir"`
	BaseURL string        `yaml:"base_url"`
	Bucket  string        `yaml:"bucket"`
	Prefix  string        `yaml:"prefix"`
	Region  string        `yaml:"region"`
	Timeout time.Duration `yaml:"timeout"`
	// CacheDir holds remote assets that must exist as local files (the ONNX model).
	CacheDir string `yaml:"cache_dir"`
}

// VocabularyConfig locates vocab.txt within the asset source.
type VocabularyConfig struct {
	Path string `yaml:"path"`
}

// ModelConfig holds sentence-embedding model settings.
type ModelConfig struct {
	// Backend is onnx or hash. hash is a deterministic stand-in that needs no onnxruntime.
	Backend string `yaml:"backend"`
	Name    string `yaml:"name"`
	// Path is relative to the asset source, or an absolute http(s) URL.
	Path        string `yaml:"path"`
	LibraryPath string `yaml:"library_path"`
	OutputName  string `yaml:"output_name"`
	HiddenSize  int    `yaml:"hidden_size"`
}

// CorpusConfig describes the recipe corpus layout.
type CorpusConfig struct {
	// Format is chunks, file or sqlite.
	Format       string `yaml:"format"`
	File         string `yaml:"file"`
	ChunkPattern string `yaml:"chunk_pattern"`
	Chunks       int    `yaml:"chunks"`
	Manifest     string `yaml:"manifest"`
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig holds query embedding settings.
type EmbeddingConfig struct {
	// QueryPrefix is prepended to every query; unset means "Ingredients: ".
	QueryPrefix *string `yaml:"query_prefix"`
}

// CacheConfig holds query embedding cache settings.
type CacheConfig struct {
	// Size is the in-process LRU capacity; negative disables it.
	Size        int           `yaml:"size"`
	RedisURL    string        `yaml:"redis_url"`
	RedisPrefix string        `yaml:"redis_prefix"`
	RedisTTL    time.Duration `yaml:"redis_ttl"`
}

// RecommendConfig holds result count limits.
type RecommendConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Assets.Dir = expandPath(cfg.Assets.Dir, configDir)
	cfg.Assets.CacheDir = expandPath(cfg.Assets.CacheDir, configDir)
	cfg.Corpus.DatabasePath = expandPath(cfg.Corpus.DatabasePath, configDir)
	if cfg.Model.LibraryPath != "" {
		cfg.Model.LibraryPath = expandPath(cfg.Model.LibraryPath, configDir)
	}

	return &cfg, nil
}

// Default returns a config with every default applied, for running without a config file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Validate rejects settings that have no meaning.
func Validate(cfg *Config) error {
	switch cfg.Assets.Kind {
	case "dir", "http", "s3":
	default:
		return fmt.Errorf("invalid assets.kind %q: want dir, http or s3", cfg.Assets.Kind)
	}
	switch cfg.Model.Backend {
	case "onnx", "hash":
	default:
		return fmt.Errorf("invalid model.backend %q: want onnx or hash", cfg.Model.Backend)
	}
	switch cfg.Corpus.Format {
	case "chunks", "file", "sqlite":
	default:
		return fmt.Errorf("invalid corpus.format %q: want chunks, file or sqlite", cfg.Corpus.Format)
	}
	if cfg.Corpus.Format == "file" && cfg.Corpus.File == "" {
		return fmt.Errorf("corpus.file is required when corpus.format is file")
	}
	if cfg.Recommend.MaxLimit > 0 && cfg.Recommend.DefaultLimit > cfg.Recommend.MaxLimit {
		return fmt.Errorf("recommend.default_limit %d exceeds max_limit %d",
			cfg.Recommend.DefaultLimit, cfg.Recommend.MaxLimit)
	}
	return nil
}

// Addr returns host:port for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// "~/" and other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") || path == "." {
		return filepath.Join(configDir, path)
	}
	path = strings.TrimPrefix(path, "~/")
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
