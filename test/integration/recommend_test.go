// Package integration provides end-to-end tests over HTTP assets, the pipeline and the API.
package integration

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kondate/internal/assets"
	"github.com/hyperjump/kondate/internal/cli"
	"github.com/hyperjump/kondate/internal/config"
	"github.com/hyperjump/kondate/internal/corpus"
	"github.com/hyperjump/kondate/internal/embedding"
	"github.com/hyperjump/kondate/internal/models"
	"github.com/hyperjump/kondate/internal/pipeline"
	"github.com/hyperjump/kondate/internal/server"
)

// Vocabulary ids: [CLS]=0 [UNK]=1 ingredients=2 egg=3 tofu=4 rice=5 bacon=6.
const vocab = "[CLS]\n[UNK]\ningredients\negg\ntofu\nrice\nbacon\n"

func writeAsset(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// indicatorModel emits a one-hot vector on each position's token id.
func indicatorModel() *embedding.FuncModel {
	return embedding.NewFuncModel(7, func(position, dim int, in embedding.ModelInputs) float32 {
		if int(in.InputIDs[position]) == dim {
			return 1
		}
		return 0
	})
}

// newStack serves the assets over HTTP and wires a pipeline and API server on top.
// part2.json is deliberately absent.
func newStack(t *testing.T) (*pipeline.Pipeline, *cli.Client) {
	t.Helper()
	dir := t.TempDir()
	writeAsset(t, dir, "model/vocab.txt", vocab)
	writeAsset(t, dir, "chunks/part1.json", `[
  {"title":"Fried Rice","ingredients":["cold rice","2 eggs"],"instructions":"Fry.","embedding":[0,0,0,1,0,1,0]},
  {"title":"Omelette","ingredients":["3 eggs"],"instructions":"Whisk.","embedding":[0,0,0,1,0,0,0]}
]`)
	writeAsset(t, dir, "chunks/part3.json", `[
  {"title":"Tofu Rice Bowl","ingredients":["tofu","rice"],"instructions":"Assemble.","embedding":[0,0,0,0,1,1,0]},
  {"title":"Bacon Rice","ingredients":["bacon","rice"],"instructions":"Crisp.","embedding":[0,0,0,0,0,1,1]}
]`)
	assetSrv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	t.Cleanup(assetSrv.Close)

	src := assets.NewHTTPSource(assetSrv.URL, assetSrv.Client())
	loader := corpus.NewLoader(src, nil, corpus.Options{Chunks: 3, Manifest: "manifest.json", Logger: zap.NewNop()})
	lru, err := embedding.NewLRUCache(16)
	if err != nil {
		t.Fatal(err)
	}

	pipe := pipeline.New(pipeline.Options{
		Loaders: pipeline.Loaders{
			Vocabulary: func(ctx context.Context) (*embedding.Vocabulary, error) {
				rc, err := assets.Open(ctx, src, "model/vocab.txt")
				if err != nil {
					return nil, err
				}
				defer rc.Close()
				return embedding.ParseVocabulary(rc)
			},
			Model: func(context.Context) (embedding.Model, error) {
				return indicatorModel(), nil
			},
			Corpus: func(ctx context.Context) ([]*models.Recipe, error) {
				res, err := loader.Load(ctx)
				if err != nil {
					return nil, err
				}
				return res.Recipes, nil
			},
		},
		Cache:  lru,
		Logger: zap.NewNop(),
	})

	srv := server.NewServer(pipe, &config.ServerConfig{RequestTimeout: 10 * time.Second}, zap.NewNop())
	apiSrv := httptest.NewServer(srv.Router())
	t.Cleanup(apiSrv.Close)
	return pipe, cli.NewClient(apiSrv.URL, 10*time.Second)
}

func TestIntegration_NotReadyBeforeInitialize(t *testing.T) {
	_, client := newStack(t)
	_, err := client.Recommend(context.Background(), models.RecommendRequest{Query: "egg"})
	var apiErr *cli.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want 503", err)
	}
	st, err := client.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.State != "uninitialized" {
		t.Errorf("state = %q", st.State)
	}
}

func TestIntegration_Recommend(t *testing.T) {
	pipe, client := newStack(t)
	ctx := context.Background()
	if err := pipe.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	st, err := client.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.State != "ready" || st.Recipes != 4 || st.Dimensions != 7 || st.VocabularySize != 7 {
		t.Errorf("status = %+v", st)
	}

	resp, err := client.Recommend(ctx, models.RecommendRequest{Query: "Egg, rice!", Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(resp.Results))
	}
	// Query vector is a quarter each on [CLS], ingredients, egg and rice.
	wantTitles := []string{"Fried Rice", "Omelette", "Tofu Rice Bowl"}
	for i, r := range resp.Results {
		if r.Recipe.Title != wantTitles[i] {
			t.Errorf("result %d = %q, want %q", i, r.Recipe.Title, wantTitles[i])
		}
		if r.Rank != i+1 {
			t.Errorf("result %d rank = %d", i, r.Rank)
		}
		if len(r.Recipe.Embedding) != 0 {
			t.Errorf("result %d carries its embedding", i)
		}
	}
	if math.Abs(resp.Results[0].Score-1/math.Sqrt2) > 1e-9 {
		t.Errorf("top score = %v, want %v", resp.Results[0].Score, 1/math.Sqrt2)
	}
	if resp.TotalCandidates != 4 || resp.RequestID == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestIntegration_RecommendWithDiets(t *testing.T) {
	pipe, client := newStack(t)
	ctx := context.Background()
	if err := pipe.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	resp, err := client.Recommend(ctx, models.RecommendRequest{Query: "egg rice", Diets: []string{"vegan", "no-pork"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Recipe.Title != "Tofu Rice Bowl" {
		t.Errorf("results = %+v", resp.Results)
	}
	if resp.TotalCandidates != 1 {
		t.Errorf("candidates = %d, want 1", resp.TotalCandidates)
	}

	_, err = client.Recommend(ctx, models.RecommendRequest{Query: "egg", Diets: []string{"carnivore"}})
	var apiErr *cli.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Errorf("unknown diet err = %v, want 400", err)
	}

	diets, err := client.Diets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(diets["vegan"]) == 0 {
		t.Errorf("diets = %v", diets)
	}
}
