package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kondate/internal/models"
)

func TestSQLiteStorage_ReplaceAndList(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSQLiteStorage(filepath.Join(dir, "nested", "kondate.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	if _, err := store.Info(ctx); !errors.Is(err, ErrEmptySnapshot) {
		t.Errorf("Info on empty store: %v", err)
	}

	recipes := []*models.Recipe{
		{Title: "Pancakes", Ingredients: []string{"flour", "milk", "egg"}, Instructions: "Mix. Fry.", Image: "pancakes.jpg", Embedding: []float64{0.1, -0.2, 0.3}},
		{Title: "Salad", Ingredients: []string{"lettuce"}, Embedding: []float64{1, 0, 0}},
	}
	if err := store.ReplaceRecipes(ctx, "minilm", recipes); err != nil {
		t.Fatal(err)
	}

	got, err := store.ListRecipes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d recipes", len(got))
	}
	if got[0].Title != "Pancakes" || got[1].Title != "Salad" {
		t.Errorf("order not preserved: %s, %s", got[0].Title, got[1].Title)
	}
	if len(got[0].Ingredients) != 3 || got[0].Ingredients[1] != "milk" {
		t.Errorf("ingredients = %v", got[0].Ingredients)
	}
	if got[0].Image != "pancakes.jpg" || got[1].Image != "" {
		t.Errorf("images = %q, %q", got[0].Image, got[1].Image)
	}
	if got[0].Embedding[1] != -0.2 {
		t.Errorf("embedding = %v", got[0].Embedding)
	}

	info, err := store.Info(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.Model != "minilm" || info.Dimensions != 3 || info.Recipes != 2 || info.ImportedAt.IsZero() {
		t.Errorf("info = %+v", info)
	}
}

func TestSQLiteStorage_ReplaceDropsPrevious(t *testing.T) {
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "kondate.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	first := []*models.Recipe{{Title: "a", Ingredients: []string{}}, {Title: "b", Ingredients: []string{}}}
	if err := store.ReplaceRecipes(ctx, "", first); err != nil {
		t.Fatal(err)
	}
	if err := store.ReplaceRecipes(ctx, "", []*models.Recipe{{Title: "c", Ingredients: []string{}}}); err != nil {
		t.Fatal(err)
	}
	n, err := store.CountRecipes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}
