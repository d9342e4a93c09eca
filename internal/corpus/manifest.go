package corpus

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kondate/internal/assets"
	"github.com/hyperjump/kondate/internal/jsonx"
)

// Manifest describes how a corpus was produced.
type Manifest struct {
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	Chunks     int    `json:"chunks"`
}

// loadManifest returns nil when no manifest is configured or the asset does not exist.
func (l *Loader) loadManifest(ctx context.Context) (*Manifest, error) {
	if l.opts.Manifest == "" {
		return nil, nil
	}
	data, err := assets.ReadAll(ctx, l.src, l.opts.Manifest)
	if errors.Is(err, assets.ErrNotFound) {
		l.logger.Debug("no corpus manifest", zap.String("name", l.opts.Manifest))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := jsonx.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := checkModel(l.opts.Model, m.Model); err != nil {
		return nil, err
	}
	return &m, nil
}
