package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/kondate/pkg/utils"
)

// LocalFile returns a local filesystem path holding name. Local sources return their own
// path; remote assets are downloaded once into cacheDir and reused afterwards.
func LocalFile(ctx context.Context, src Source, name, cacheDir string, logger *zap.Logger) (string, error) {
	logger = utils.OrNop(logger)
	if !IsURL(name) {
		if local, ok := src.(LocalSource); ok {
			if p, ok := local.LocalPath(name); ok {
				return p, nil
			}
		}
	}

	dest := filepath.Join(cacheDir, cacheName(src, name))
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		logger.Debug("using cached asset", zap.String("asset", name), zap.String("path", dest))
		return dest, nil
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create asset cache directory: %w", err)
	}

	logger.Info("downloading asset", zap.String("asset", name), zap.String("source", src.String()))
	rc, err := Open(ctx, src, name)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(cacheDir, ".download-*")
	if err != nil {
		return "", err
	}
	n, err := io.Copy(tmp, rc)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("download %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	logger.Info("asset cached", zap.String("asset", name), zap.Int64("bytes", n), zap.String("path", dest))
	return dest, nil
}

// cacheName keeps the base name readable and disambiguates by source and full name.
func cacheName(src Source, name string) string {
	sum := sha256.Sum256([]byte(src.String() + "|" + name))
	return hex.EncodeToString(sum[:6]) + "-" + path.Base(name)
}
