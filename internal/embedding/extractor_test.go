package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/kondate/internal/vector"
)

func TestExtractor_MeanPoolsValidPositions(t *testing.T) {
	// h[j] = j+1 at every dimension; positions 0..2 average to 2.
	model := NewFuncModel(4, func(position, _ int, _ ModelInputs) float32 {
		return float32(position + 1)
	})
	e := NewExtractor(NewTokenizer(testVocabulary(t)), model)

	emb, err := e.Embed(context.Background(), "egg milk")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(emb) != 4 {
		t.Fatalf("len = %d, want 4", len(emb))
	}
	for i, v := range emb {
		if v != 2.0 {
			t.Errorf("emb[%d] = %v, want 2", i, v)
		}
	}
	if e.Dimensions() != 4 {
		t.Errorf("Dimensions = %d", e.Dimensions())
	}
}

func TestExtractor_PaddingDoesNotAffectResult(t *testing.T) {
	tok := NewTokenizer(testVocabulary(t))
	base := func(position, dim int, in ModelInputs) float32 {
		return float32(in.InputIDs[position]) + float32(dim)
	}
	noisy := func(position, dim int, in ModelInputs) float32 {
		if in.AttentionMask[position] == 0 {
			return 1e6
		}
		return base(position, dim, in)
	}
	a, err := NewExtractor(tok, NewFuncModel(3, base)).Embed(context.Background(), "egg milk")
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewExtractor(tok, NewFuncModel(3, noisy)).Embed(context.Background(), "egg milk")
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("dim %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestExtractor_EmptyTextUsesClassPosition(t *testing.T) {
	model := NewFuncModel(2, func(position, _ int, _ ModelInputs) float32 {
		return float32(position*10 + 5)
	})
	emb, err := NewExtractor(NewTokenizer(testVocabulary(t)), model).Embed(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if emb[0] != 5 || emb[1] != 5 {
		t.Errorf("emb = %v, want [5 5]", emb)
	}
}

type failingModel struct{}

func (failingModel) Run(context.Context, ModelInputs) (*HiddenStates, error) {
	return nil, errors.New("boom")
}
func (failingModel) HiddenSize() int { return 2 }
func (failingModel) Close() error    { return nil }

func TestExtractor_ModelFailure(t *testing.T) {
	_, err := NewExtractor(NewTokenizer(testVocabulary(t)), failingModel{}).Embed(context.Background(), "egg")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestExtractor_UsesCache(t *testing.T) {
	calls := 0
	model := NewFuncModel(2, func(position, _ int, _ ModelInputs) float32 {
		if position == 0 {
			calls++
		}
		return 1
	})
	cache, err := NewLRUCache(8)
	if err != nil {
		t.Fatal(err)
	}
	e := NewExtractor(NewTokenizer(testVocabulary(t)), model, WithCache(cache))
	for i := 0; i < 3; i++ {
		if _, err := e.Embed(context.Background(), "egg"); err != nil {
			t.Fatal(err)
		}
	}
	// FuncModel evaluates position 0 once per dimension per run.
	if calls != 2 {
		t.Errorf("model ran %d times, want 1 run", calls/2)
	}
}

func TestExtractor_CachedVectorOfOtherModelIsMiss(t *testing.T) {
	ctx := context.Background()
	cache, err := NewLRUCache(8)
	if err != nil {
		t.Fatal(err)
	}
	tok := NewTokenizer(testVocabulary(t))
	small := NewExtractor(tok, NewHashModel(4), WithCache(cache))
	large := NewExtractor(tok, NewHashModel(8), WithCache(cache))

	if _, err := small.Embed(ctx, "egg milk"); err != nil {
		t.Fatal(err)
	}
	emb, err := large.Embed(ctx, "egg milk")
	if err != nil {
		t.Fatal(err)
	}
	if len(emb) != 8 {
		t.Fatalf("len = %d, want 8", len(emb))
	}
	if score := vector.Cosine(emb, emb); math.IsNaN(score) {
		t.Error("self-similarity is NaN")
	}
	cached, ok := cache.Get(ctx, "egg milk")
	if !ok || len(cached) != 8 {
		t.Errorf("cache should hold the recomputed vector, got len %d", len(cached))
	}
}

func TestMeanPool_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		hs    *HiddenStates
		valid int
	}{
		{"nil", nil, 1},
		{"rank 2", &HiddenStates{Data: make([]float32, 4), Shape: []int64{1, 4}}, 1},
		{"zero hidden", &HiddenStates{Data: nil, Shape: []int64{1, 4, 0}}, 1},
		{"short positions", &HiddenStates{Data: make([]float32, 4), Shape: []int64{1, 2, 2}}, 3},
		{"data length", &HiddenStates{Data: make([]float32, 3), Shape: []int64{1, 2, 2}}, 1},
		{"zero valid", &HiddenStates{Data: make([]float32, 4), Shape: []int64{1, 2, 2}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := MeanPool(tt.hs, tt.valid); !errors.Is(err, ErrMalformedOutput) {
				t.Errorf("err = %v, want ErrMalformedOutput", err)
			}
		})
	}
}

func TestHashModel_Deterministic(t *testing.T) {
	e := NewExtractor(NewTokenizer(testVocabulary(t)), NewHashModel(16))
	a, err := e.Embed(context.Background(), "egg milk")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(context.Background(), "egg milk")
	for i := range a {
		if a[i] != b[i] || math.IsNaN(a[i]) {
			t.Fatalf("dim %d: %v vs %v", i, a[i], b[i])
		}
	}
}
