package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

// Dispatcher routes a classified request to the adapter for its platform.
// It holds no per-request state and never retries.
type Dispatcher struct {
	adapters map[domain.Platform]domain.Adapter
	logger   *zap.Logger
}

// NewDispatcher builds a dispatcher from exactly one adapter per supported
// platform. Missing, duplicate or unsupported registrations are rejected.
func NewDispatcher(adapters []domain.Adapter, logger *zap.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	byPlatform := make(map[domain.Platform]domain.Adapter, len(adapters))
	for _, a := range adapters {
		if a == nil {
			return nil, fmt.Errorf("nil adapter")
		}
		p := a.Platform()
		if !p.Valid() {
			return nil, fmt.Errorf("adapter registered for unsupported platform %q", p)
		}
		if _, exists := byPlatform[p]; exists {
			return nil, fmt.Errorf("duplicate adapter for platform %q", p)
		}
		byPlatform[p] = a
	}

	for _, p := range domain.Platforms() {
		if _, ok := byPlatform[p]; !ok {
			return nil, fmt.Errorf("no adapter for platform %q", p)
		}
	}

	return &Dispatcher{adapters: byPlatform, logger: logger}, nil
}

// Resolve performs one retrieval for req. It returns exactly one of an
// asset or a *domain.RetrievalError.
func (d *Dispatcher) Resolve(ctx context.Context, req *domain.DownloadRequest) (asset *domain.RetrievedAsset, err error) {
	if req == nil {
		return nil, domain.ErrUnsupported("")
	}
	if req.Platform == domain.PlatformUnsupported || !req.Platform.Valid() {
		return nil, domain.ErrUnsupported(req.RawURL)
	}

	adapter := d.adapters[req.Platform]

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Adapter panicked",
				zap.String("platform", string(req.Platform)),
				zap.String("url", req.RawURL),
				zap.Any("panic", r))
			asset = nil
			err = domain.ErrTransient(req.Platform, "internal adapter failure", fmt.Errorf("panic: %v", r))
		}
	}()

	asset, err = adapter.Fetch(ctx, req.RawURL, req.Credentials)
	switch {
	case err != nil:
		return nil, domain.AsRetrievalError(req.Platform, err)
	case asset == nil:
		return nil, domain.ErrTransient(req.Platform, "adapter returned no asset", nil)
	}
	return asset, nil
}
