package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DirSource reads assets from a local directory.
type DirSource struct {
	root string
}

// NewDirSource returns a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	if dir == "" {
		dir = "."
	}
	return &DirSource{root: dir}
}

// Open opens root/name.
func (s *DirSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, _ := s.LocalPath(name)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// LocalPath returns the filesystem path of name. Absolute names are used as-is.
func (s *DirSource) LocalPath(name string) (string, bool) {
	if filepath.IsAbs(name) {
		return name, true
	}
	return filepath.Join(s.root, filepath.FromSlash(name)), true
}

func (s *DirSource) String() string {
	return "dir:" + s.root
}
