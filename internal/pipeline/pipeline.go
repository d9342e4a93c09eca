// Package pipeline owns the recommendation state machine: it loads the vocabulary, model and
// corpus once, then answers queries by embedding, diet filtering and ranking.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kondate/internal/corpus"
	"github.com/hyperjump/kondate/internal/diet"
	"github.com/hyperjump/kondate/internal/embedding"
	"github.com/hyperjump/kondate/internal/models"
	"github.com/hyperjump/kondate/internal/ranking"
	"github.com/hyperjump/kondate/pkg/utils"
)

var (
	// ErrNotReady is returned by Recommend before initialization has succeeded.
	ErrNotReady = errors.New("pipeline not ready")
	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("pipeline already initialized")
	// ErrClosed is returned by Initialize once Close has been called.
	ErrClosed = errors.New("pipeline closed")
)

// DefaultQueryPrefix is prepended to every query before embedding; the corpus was embedded
// from text in the same form.
const DefaultQueryPrefix = "Ingredients: "

// State is the lifecycle phase of a Pipeline.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Loaders fetch the three resources Initialize needs, in this order.
type Loaders struct {
	Vocabulary func(ctx context.Context) (*embedding.Vocabulary, error)
	Model      func(ctx context.Context) (embedding.Model, error)
	Corpus     func(ctx context.Context) ([]*models.Recipe, error)
}

// Options configures a Pipeline.
type Options struct {
	Loaders Loaders
	// QueryPrefix is prepended to query text; nil uses DefaultQueryPrefix.
	QueryPrefix  *string
	Cache        embedding.Cache
	Diets        *diet.Catalog
	DefaultLimit int
	// MaxLimit caps the result count; zero or less leaves it unbounded.
	MaxLimit     int
	Logger       *zap.Logger
}

// Status is a snapshot of the pipeline for status endpoints.
type Status struct {
	State          string   `json:"state"`
	Error          string   `json:"error,omitempty"`
	Recipes        int      `json:"recipes"`
	Dimensions     int      `json:"dimensions"`
	VocabularySize int      `json:"vocabulary_size"`
	Diets          []string `json:"diets"`
}

// Pipeline answers recommendation queries once initialized. It is safe for concurrent use;
// everything loaded by Initialize is read-only afterwards.
type Pipeline struct {
	opts   Options
	prefix string
	diets  *diet.Catalog
	logger *zap.Logger

	state  atomic.Int32
	mu     sync.RWMutex
	err    error
	closed bool

	vocab     *embedding.Vocabulary
	model     embedding.Model
	extractor embedding.Embedder
	recipes   []*models.Recipe

	seq Sequencer
}

// New creates an uninitialized pipeline.
func New(opts Options) *Pipeline {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	p := &Pipeline{
		opts:   opts,
		prefix: DefaultQueryPrefix,
		diets:  opts.Diets,
		logger: utils.OrNop(opts.Logger),
	}
	if opts.QueryPrefix != nil {
		p.prefix = *opts.QueryPrefix
	}
	if p.diets == nil {
		p.diets = diet.NewCatalog(nil)
	}
	return p
}

// Initialize loads the vocabulary, then the model, then the corpus. It may run once; on
// failure the pipeline stays Failed and Err returns the cause.
func (p *Pipeline) Initialize(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(StateUninitialized), int32(StateLoading)) {
		return ErrAlreadyInitialized
	}
	start := time.Now()

	err := p.load(ctx)
	p.mu.Lock()
	if err == nil && p.closed {
		err = ErrClosed
	}
	if err != nil {
		if p.model != nil {
			_ = p.model.Close()
			p.model = nil
		}
		p.err = err
		p.mu.Unlock()
		p.state.Store(int32(StateFailed))
		p.logger.Error("pipeline initialization failed", zap.Error(err))
		return err
	}
	p.mu.Unlock()

	p.state.Store(int32(StateReady))
	p.logger.Info("pipeline ready",
		zap.Int("recipes", len(p.recipes)),
		zap.Int("dimensions", p.extractor.Dimensions()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (p *Pipeline) load(ctx context.Context) error {
	l := p.opts.Loaders
	if l.Vocabulary == nil || l.Model == nil || l.Corpus == nil {
		return errors.New("pipeline loaders not configured")
	}
	if p.isClosed() {
		return ErrClosed
	}

	vocab, err := l.Vocabulary(ctx)
	if err != nil {
		return fmt.Errorf("load vocabulary: %w", err)
	}
	p.vocab = vocab
	p.logger.Info("vocabulary loaded", zap.Int("tokens", vocab.Size()))

	model, err := l.Model(ctx)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	p.mu.Lock()
	p.model = model
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}
	p.logger.Info("model loaded", zap.Int("hidden_size", model.HiddenSize()))

	recipes, err := l.Corpus(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	if _, err := corpus.ValidateDimensions(recipes, model.HiddenSize()); err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	p.recipes = recipes

	opts := []embedding.ExtractorOption{embedding.WithLogger(p.logger)}
	if p.opts.Cache != nil {
		opts = append(opts, embedding.WithCache(p.opts.Cache))
	}
	p.extractor = embedding.NewExtractor(embedding.NewTokenizer(vocab), model, opts...)
	return nil
}

// State returns the current lifecycle phase.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Err returns the initialization error once the pipeline has failed.
func (p *Pipeline) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// Diets returns the diet catalog used to resolve profile names.
func (p *Pipeline) Diets() *diet.Catalog {
	return p.diets
}

// IsLatest reports whether seq is the most recent sequence number issued by Recommend.
func (p *Pipeline) IsLatest(seq uint64) bool {
	return p.seq.IsLatest(seq)
}

// Recommend ranks the corpus against req. An empty query returns an empty result without
// error. Diet filtering runs concurrently with query embedding.
func (p *Pipeline) Recommend(ctx context.Context, req models.RecommendRequest) (*models.RecommendResponse, error) {
	if p.State() != StateReady {
		return nil, ErrNotReady
	}
	start := time.Now()
	req.Normalize(p.opts.DefaultLimit, p.opts.MaxLimit)

	resp := &models.RecommendResponse{
		RequestID: uuid.NewString(),
		Sequence:  p.seq.Next(),
		Query:     req.Query,
		Diets:     req.Diets,
		Results:   []*models.ScoredRecipe{},
	}
	if req.IsEmpty() {
		return resp, nil
	}

	terms, err := p.diets.Terms(req.Diets...)
	if err != nil {
		return nil, err
	}

	filtered := make(chan []*models.Recipe, 1)
	go func() {
		filtered <- diet.Filter(p.recipes, terms)
	}()

	query, err := p.extractor.Embed(ctx, p.prefix+req.Query)
	candidates := <-filtered
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ranked := ranking.Rank(query, candidates, req.Limit)
	for _, s := range ranked {
		view := *s.Recipe
		view.Embedding = nil
		s.Recipe = &view
	}
	resp.Results = ranked
	resp.TotalCandidates = len(candidates)
	resp.QueryTime = time.Since(start).Milliseconds()

	p.logger.Debug("recommendation served",
		zap.String("request_id", resp.RequestID),
		zap.Uint64("sequence", resp.Sequence),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(ranked)),
		zap.Int64("query_time_ms", resp.QueryTime))
	return resp, nil
}

// Status reports the pipeline state and what it has loaded.
func (p *Pipeline) Status() Status {
	st := Status{State: p.State().String(), Diets: p.diets.Names()}
	if err := p.Err(); err != nil {
		st.Error = err.Error()
	}
	if p.State() == StateReady {
		st.Recipes = len(p.recipes)
		st.Dimensions = p.extractor.Dimensions()
		st.VocabularySize = p.vocab.Size()
	}
	return st
}

func (p *Pipeline) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Close releases the model. A model that an in-flight Initialize loads afterwards is
// released by Initialize, which then fails with ErrClosed.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	m := p.model
	p.model = nil
	p.mu.Unlock()
	if m != nil {
		return m.Close()
	}
	return nil
}
