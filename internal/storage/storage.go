// Package storage persists corpus snapshots so a session can start without refetching chunks.
package storage

import (
	"context"
	"time"

	"github.com/hyperjump/kondate/internal/models"
)

// SnapshotInfo describes the corpus held by a store.
type SnapshotInfo struct {
	Model      string
	Dimensions int
	Recipes    int64
	ImportedAt time.Time
}

// RecipeStore holds one ordered corpus snapshot.
type RecipeStore interface {
	// ReplaceRecipes atomically replaces the stored corpus, keeping the slice order.
	ReplaceRecipes(ctx context.Context, model string, recipes []*models.Recipe) error
	// ListRecipes returns the stored corpus in import order.
	ListRecipes(ctx context.Context) ([]*models.Recipe, error)
	CountRecipes(ctx context.Context) (int64, error)
	Info(ctx context.Context) (*SnapshotInfo, error)
	Close() error
}
