package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kondate/internal/config"
	"github.com/hyperjump/kondate/internal/embedding"
	"github.com/hyperjump/kondate/internal/models"
	"github.com/hyperjump/kondate/internal/pipeline"
)

func newPipeline(t *testing.T, initialize bool, modelErr error) *pipeline.Pipeline {
	t.Helper()
	p := pipeline.New(pipeline.Options{
		Loaders: pipeline.Loaders{
			Vocabulary: func(context.Context) (*embedding.Vocabulary, error) {
				return embedding.NewVocabulary([]string{"[UNK]", "[CLS]", "egg", "bacon"})
			},
			Model: func(context.Context) (embedding.Model, error) {
				return embedding.NewFuncModel(4, func(position, dim int, in embedding.ModelInputs) float32 {
					if int(in.InputIDs[position]) == dim {
						return 1
					}
					return 0
				}), modelErr
			},
			Corpus: func(context.Context) ([]*models.Recipe, error) {
				return []*models.Recipe{
					{Title: "Egg Fried Rice", Ingredients: []string{"egg", "rice"}, Embedding: []float64{0, 1, 1, 0}},
					{Title: "BLT", Ingredients: []string{"bacon", "lettuce"}, Embedding: []float64{0, 1, 0, 1}},
				}, nil
			},
		},
		Logger: zap.NewNop(),
	})
	if initialize {
		_ = p.Initialize(context.Background())
	}
	return p
}

func newTestServer(p *pipeline.Pipeline, opts ...Option) http.Handler {
	return NewServer(p, &config.ServerConfig{Host: "localhost", Port: 8080}, zap.NewNop(), opts...).Router()
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/recommend", bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleRecommend(t *testing.T) {
	h := newTestServer(newPipeline(t, true, nil))
	w := post(t, h, `{"query":"egg","limit":1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var resp models.RecommendResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Recipe.Title != "Egg Fried Rice" {
		t.Errorf("results = %+v", resp.Results)
	}
	if resp.RequestID == "" || resp.Sequence == 0 {
		t.Errorf("missing ids: %+v", resp)
	}
}

func TestHandleRecommend_Diets(t *testing.T) {
	h := newTestServer(newPipeline(t, true, nil))
	w := post(t, h, `{"query":"bacon","diets":["no-pork"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp models.RecommendResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	for _, s := range resp.Results {
		if s.Recipe.Title == "BLT" {
			t.Error("no-pork result contains BLT")
		}
	}
}

func TestHandleRecommend_Errors(t *testing.T) {
	tests := []struct {
		name   string
		pipe   *pipeline.Pipeline
		body   string
		status int
	}{
		{"invalid body", newPipeline(t, true, nil), `{"query":`, http.StatusBadRequest},
		{"unknown diet", newPipeline(t, true, nil), `{"query":"egg","diets":["paleo"]}`, http.StatusBadRequest},
		{"not ready", newPipeline(t, false, nil), `{"query":"egg"}`, http.StatusServiceUnavailable},
		{"failed init", newPipeline(t, true, errors.New("no runtime")), `{"query":"egg"}`, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, newTestServer(tt.pipe), tt.body)
			if w.Code != tt.status {
				t.Errorf("status: got %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			var out map[string]string
			if err := json.NewDecoder(w.Body).Decode(&out); err != nil || out["error"] == "" {
				t.Errorf("error body: %v %v", out, err)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	for _, tt := range []struct {
		ready  bool
		status int
	}{{true, http.StatusOK}, {false, http.StatusServiceUnavailable}} {
		h := newTestServer(newPipeline(t, tt.ready, nil))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != tt.status {
			t.Errorf("ready=%v: status %d, want %d", tt.ready, w.Code, tt.status)
		}
	}
}

func TestHandleStatus(t *testing.T) {
	dir := t.TempDir()
	vocab := filepath.Join(dir, "vocab.txt")
	if err := os.WriteFile(vocab, []byte("[UNK]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	h := newTestServer(newPipeline(t, true, nil), WithDiskPaths(map[string]string{"vocabulary": vocab}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		State      string `json:"state"`
		Recipes    int    `json:"recipes"`
		Dimensions int    `json:"dimensions"`
		DiskUsage  []struct {
			Name  string `json:"name"`
			Bytes int64  `json:"bytes"`
		} `json:"disk_usage"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.State != "ready" || out.Recipes != 2 || out.Dimensions != 4 {
		t.Errorf("status = %+v", out)
	}
	if len(out.DiskUsage) != 1 || out.DiskUsage[0].Bytes != 6 {
		t.Errorf("disk usage = %+v", out.DiskUsage)
	}
}

func TestHandleDiets(t *testing.T) {
	h := newTestServer(newPipeline(t, false, nil))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/diets", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Diets map[string][]string `json:"diets"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Diets["vegan"]) == 0 {
		t.Errorf("diets = %v", out.Diets)
	}
}
