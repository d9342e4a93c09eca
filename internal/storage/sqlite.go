package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kondate/internal/jsonx"
	"github.com/hyperjump/kondate/internal/models"
	"github.com/hyperjump/kondate/internal/vector"
)

// ErrEmptySnapshot is returned by Info when nothing has been imported yet.
var ErrEmptySnapshot = errors.New("no corpus snapshot imported")

// SQLiteStorage implements RecipeStore using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS recipes (
		position INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		ingredients TEXT NOT NULL,
		instructions TEXT,
		image TEXT,
		embedding BLOB
	);

	CREATE TABLE IF NOT EXISTS snapshot_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceRecipes deletes the current snapshot and inserts recipes in one transaction.
func (s *SQLiteStorage) ReplaceRecipes(ctx context.Context, model string, recipes []*models.Recipe) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recipes`); err != nil {
		return fmt.Errorf("failed to clear recipes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_meta`); err != nil {
		return fmt.Errorf("failed to clear snapshot metadata: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO recipes (position, title, ingredients, instructions, image, embedding)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	dims := 0
	for i, r := range recipes {
		ingredients, err := jsonx.Marshal(r.Ingredients)
		if err != nil {
			return fmt.Errorf("failed to marshal ingredients of %q: %w", r.Title, err)
		}
		if _, err := stmt.ExecContext(ctx,
			i, r.Title, string(ingredients), r.Instructions, r.Image, vector.Encode(r.Embedding),
		); err != nil {
			return fmt.Errorf("failed to insert recipe %d: %w", i, err)
		}
		if dims == 0 {
			dims = len(r.Embedding)
		}
	}

	meta := map[string]string{
		"model":       model,
		"dimensions":  strconv.Itoa(dims),
		"imported_at": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("failed to write snapshot metadata: %w", err)
		}
	}

	return tx.Commit()
}

// ListRecipes returns every stored recipe ordered by position.
func (s *SQLiteStorage) ListRecipes(ctx context.Context) ([]*models.Recipe, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, ingredients, instructions, image, embedding FROM recipes ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Recipe
	for rows.Next() {
		var (
			r                   models.Recipe
			ingredients         string
			instructions, image sql.NullString
			embedding           []byte
		)
		if err := rows.Scan(&r.Title, &ingredients, &instructions, &image, &embedding); err != nil {
			return nil, err
		}
		if err := jsonx.Unmarshal([]byte(ingredients), &r.Ingredients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ingredients of %q: %w", r.Title, err)
		}
		r.Instructions = instructions.String
		r.Image = image.String
		if r.Embedding, err = vector.Decode(embedding); err != nil {
			return nil, fmt.Errorf("failed to decode embedding of %q: %w", r.Title, err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// CountRecipes returns the number of stored recipes.
func (s *SQLiteStorage) CountRecipes(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&n)
	return n, err
}

// Info returns metadata recorded by the last ReplaceRecipes.
func (s *SQLiteStorage) Info(ctx context.Context) (*SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM snapshot_meta`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(meta) == 0 {
		return nil, ErrEmptySnapshot
	}

	info := &SnapshotInfo{Model: meta["model"]}
	info.Dimensions, _ = strconv.Atoi(meta["dimensions"])
	info.ImportedAt, _ = time.Parse(time.RFC3339, meta["imported_at"])
	if info.Recipes, err = s.CountRecipes(ctx); err != nil {
		return nil, err
	}
	return info, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
