// Package corpus loads the pre-embedded recipe corpus from JSON chunks, a single JSON file
// or a SQLite snapshot.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kondate/internal/assets"
	"github.com/hyperjump/kondate/internal/jsonx"
	"github.com/hyperjump/kondate/internal/models"
	"github.com/hyperjump/kondate/internal/storage"
	"github.com/hyperjump/kondate/pkg/utils"
)

// Corpus formats.
const (
	FormatChunks = "chunks"
	FormatFile   = "file"
	FormatSQLite = "sqlite"
)

// Defaults for the chunked layout.
const (
	DefaultChunkPattern = "chunks/part%d.json"
	DefaultChunkCount   = 17
)

var (
	// ErrDimensionMismatch is returned when corpus embeddings disagree in length with each
	// other or with the model.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrModelMismatch is returned when the corpus was embedded with a different model.
	ErrModelMismatch = errors.New("corpus model mismatch")
)

// Options configures a Loader.
type Options struct {
	Format       string
	File         string
	ChunkPattern string
	Chunks       int
	// Manifest names an optional manifest asset; empty disables the lookup.
	Manifest string
	// Model is the expected model name; empty skips the check.
	Model  string
	Logger *zap.Logger
}

// Result is a loaded corpus.
type Result struct {
	Recipes      []*models.Recipe
	Manifest     *Manifest
	FailedChunks []int
}

// Loader reads the corpus from an asset source or a recipe store.
type Loader struct {
	src    assets.Source
	store  storage.RecipeStore
	opts   Options
	logger *zap.Logger
}

// NewLoader creates a loader. store is only used by the sqlite format and may be nil otherwise.
func NewLoader(src assets.Source, store storage.RecipeStore, opts Options) *Loader {
	if opts.Format == "" {
		opts.Format = FormatChunks
	}
	if opts.ChunkPattern == "" {
		opts.ChunkPattern = DefaultChunkPattern
	}
	if opts.Chunks <= 0 {
		opts.Chunks = DefaultChunkCount
	}
	return &Loader{src: src, store: store, opts: opts, logger: utils.OrNop(opts.Logger)}
}

// Load reads the whole corpus. In the chunked format a chunk that cannot be fetched or
// decoded contributes no records and is logged; every other failure is returned.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{}

	switch l.opts.Format {
	case FormatSQLite:
		recipes, err := l.loadSQLite(ctx)
		if err != nil {
			return nil, err
		}
		res.Recipes = recipes
	case FormatFile, FormatChunks:
		m, err := l.loadManifest(ctx)
		if err != nil {
			return nil, err
		}
		res.Manifest = m
		if l.opts.Format == FormatFile {
			if res.Recipes, err = l.loadFile(ctx, l.opts.File); err != nil {
				return nil, err
			}
		} else {
			count := l.opts.Chunks
			if m != nil && m.Chunks > 0 {
				count = m.Chunks
			}
			res.Recipes, res.FailedChunks = l.loadChunks(ctx, count)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unknown corpus format %q", l.opts.Format)
	}

	want := 0
	if res.Manifest != nil {
		want = res.Manifest.Dimensions
	}
	if _, err := ValidateDimensions(res.Recipes, want); err != nil {
		return nil, err
	}

	l.logger.Info("corpus loaded",
		zap.String("format", l.opts.Format),
		zap.Int("recipes", len(res.Recipes)),
		zap.Ints("failed_chunks", res.FailedChunks),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (l *Loader) loadFile(ctx context.Context, name string) ([]*models.Recipe, error) {
	rc, err := assets.Open(ctx, l.src, name)
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", name, err)
	}
	defer rc.Close()
	var recipes []*models.Recipe
	if err := jsonx.Decode(rc, &recipes); err != nil {
		return nil, fmt.Errorf("decode corpus %s: %w", name, err)
	}
	return dropNil(recipes), nil
}

// loadChunks fetches chunks 1..count concurrently and concatenates them in chunk order.
func (l *Loader) loadChunks(ctx context.Context, count int) ([]*models.Recipe, []int) {
	parts := make([][]*models.Recipe, count)
	errs := make([]error, count)

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			parts[i], errs[i] = l.loadFile(ctx, fmt.Sprintf(l.opts.ChunkPattern, i+1))
		}(i)
	}
	wg.Wait()

	var (
		recipes []*models.Recipe
		failed  []int
	)
	for i, part := range parts {
		if errs[i] != nil {
			l.logger.Warn("corpus chunk skipped", zap.Int("chunk", i+1), zap.Error(errs[i]))
			failed = append(failed, i+1)
			continue
		}
		recipes = append(recipes, part...)
	}
	return recipes, failed
}

func (l *Loader) loadSQLite(ctx context.Context) ([]*models.Recipe, error) {
	if l.store == nil {
		return nil, fmt.Errorf("sqlite corpus format requires a database")
	}
	info, err := l.store.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("read snapshot info: %w", err)
	}
	if err := checkModel(l.opts.Model, info.Model); err != nil {
		return nil, err
	}
	recipes, err := l.store.ListRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, nil
}

// ValidateDimensions checks that every embedding has the same length, equal to want when
// want > 0. It returns the common dimension, or 0 for an empty corpus.
func ValidateDimensions(recipes []*models.Recipe, want int) (int, error) {
	dims := want
	for i, r := range recipes {
		n := len(r.Embedding)
		if dims == 0 {
			dims = n
		}
		if n != dims || n == 0 {
			return 0, fmt.Errorf("%w: recipe %d (%q) has %d dimensions, want %d",
				ErrDimensionMismatch, i, r.Title, n, dims)
		}
	}
	if len(recipes) == 0 {
		return want, nil
	}
	return dims, nil
}

func checkModel(want, got string) error {
	if want == "" || got == "" || strings.EqualFold(want, got) {
		return nil
	}
	return fmt.Errorf("%w: corpus embedded with %q, configured model is %q", ErrModelMismatch, got, want)
}

func dropNil(recipes []*models.Recipe) []*models.Recipe {
	out := recipes[:0]
	for _, r := range recipes {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
