package domain

import "context"

// Adapter defines the interface for platform-specific retrieval strategies
type Adapter interface {
	// Platform returns the platform this adapter handles
	Platform() Platform

	// Fetch performs one retrieval attempt for rawURL.
	// A non-nil error is always a *RetrievalError.
	Fetch(ctx context.Context, rawURL string, creds *Credentials) (*RetrievedAsset, error)
}

// AssetCache stores retrieved assets keyed by request
type AssetCache interface {
	// Get returns a cached asset; ok is false on a miss
	Get(ctx context.Context, key string) (asset *RetrievedAsset, ok bool, err error)

	// Set stores an asset
	Set(ctx context.Context, key string, asset *RetrievedAsset) error
}

// Notifier announces fetch outcomes
type Notifier interface {
	NotifyFetchCompleted(url string, platform Platform)
	NotifyFetchFailed(url string, platform Platform, err error)
}
