// Package assets opens the vocabulary, model, corpus chunks and manifest from a local
// directory, an HTTP base URL or an S3 bucket.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotFound is returned when an asset does not exist in its source.
var ErrNotFound = errors.New("asset not found")

// Source kinds accepted by New.
const (
	KindDir  = "dir"
	KindHTTP = "http"
	KindS3   = "s3"
)

// Source opens named assets. Names are slash-separated and relative to the source root.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// String describes the source for logs.
	String() string
}

// LocalSource is implemented by sources whose assets already live on the local filesystem.
type LocalSource interface {
	LocalPath(name string) (string, bool)
}

// Options selects and configures a Source.
type Options struct {
	Kind    string
	Dir     string
	BaseURL string
	Bucket  string
	Prefix  string
	Region  string
	Timeout time.Duration
}

// New builds the source described by opts.
func New(ctx context.Context, opts Options) (Source, error) {
	switch strings.ToLower(opts.Kind) {
	case "", KindDir:
		return NewDirSource(opts.Dir), nil
	case KindHTTP:
		if opts.BaseURL == "" {
			return nil, fmt.Errorf("http asset source requires a base URL")
		}
		return NewHTTPSource(opts.BaseURL, &http.Client{Timeout: opts.Timeout}), nil
	case KindS3:
		if opts.Bucket == "" {
			return nil, fmt.Errorf("s3 asset source requires a bucket")
		}
		return NewS3Source(ctx, opts.Bucket, opts.Prefix, opts.Region)
	default:
		return nil, fmt.Errorf("unknown asset source kind %q", opts.Kind)
	}
}

// Open opens name from src, or over plain HTTP when name is an absolute http(s) URL.
func Open(ctx context.Context, src Source, name string) (io.ReadCloser, error) {
	if IsURL(name) {
		return defaultHTTP.Open(ctx, name)
	}
	return src.Open(ctx, name)
}

// ReadAll opens name and reads it fully.
func ReadAll(ctx context.Context, src Source, name string) ([]byte, error) {
	rc, err := Open(ctx, src, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// IsURL reports whether name is an absolute http or https URL.
func IsURL(name string) bool {
	return strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://")
}

var defaultHTTP = NewHTTPSource("", &http.Client{Timeout: 10 * time.Minute})
