package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/internal/domain"
	"github.com/yourusername/media-fetch-go/internal/infrastructure"
)

// FetchService runs requests through the dispatcher and takes care of
// caching, history and notifications around each retrieval
type FetchService struct {
	dispatcher   *Dispatcher
	repo         domain.FetchRecordRepository
	cache        domain.AssetCache
	notifier     domain.Notifier
	defaultCreds *domain.Credentials
	logger       *zap.Logger
}

// FetchServiceOptions holds the optional collaborators of a FetchService
type FetchServiceOptions struct {
	Repository   domain.FetchRecordRepository
	Cache        domain.AssetCache
	Notifier     domain.Notifier
	DefaultCreds *domain.Credentials
}

// NewFetchService creates a new fetch service
func NewFetchService(dispatcher *Dispatcher, opts FetchServiceOptions, logger *zap.Logger) *FetchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FetchService{
		dispatcher:   dispatcher,
		repo:         opts.Repository,
		cache:        opts.Cache,
		notifier:     opts.Notifier,
		defaultCreds: opts.DefaultCreds,
		logger:       logger,
	}
}

// FetchResult is the outcome of one Fetch call
type FetchResult struct {
	Asset    *domain.RetrievedAsset
	RecordID string
	Cached   bool
}

// Classify returns the platform a URL belongs to
func (s *FetchService) Classify(rawURL string) domain.Platform {
	return domain.Classify(rawURL)
}

// Fetch retrieves the asset behind rawURL. creds override the configured
// defaults per platform. A non-nil error is always a *domain.RetrievalError.
func (s *FetchService) Fetch(ctx context.Context, rawURL string, creds *domain.Credentials) (*FetchResult, error) {
	req := domain.NewDownloadRequest(rawURL, s.defaultCreds.Merge(creds))
	start := time.Now()

	s.logger.Info("Fetch requested",
		zap.String("url", req.RawURL),
		zap.String("platform", string(req.Platform)))

	if req.Platform == domain.PlatformUnsupported {
		err := domain.ErrUnsupported(req.RawURL)
		s.logger.Warn("Unsupported URL", zap.String("url", req.RawURL))
		return nil, err
	}

	key := ""
	if s.cache != nil && req.Platform.OutputKind() != domain.KindBinaryFile {
		key = infrastructure.CacheKey(req.RawURL, req.Credentials)
		if asset := s.cached(ctx, key, req); asset != nil {
			return &FetchResult{Asset: asset, Cached: true}, nil
		}
	}

	asset, err := s.dispatcher.Resolve(ctx, req)
	elapsed := time.Since(start)

	record := domain.NewFetchRecord(req.RawURL, req.Platform)
	if err != nil {
		re := domain.AsRetrievalError(req.Platform, err)
		record.MarkFailed(re, elapsed)
		s.saveRecord(record)

		s.logger.Error("Fetch failed",
			zap.String("id", record.ID),
			zap.String("url", req.RawURL),
			zap.String("platform", string(req.Platform)),
			zap.String("category", string(re.Category)),
			zap.Bool("retryable", re.Retryable),
			zap.Duration("elapsed", elapsed),
			zap.Error(re))

		if s.notifier != nil {
			s.notifier.NotifyFetchFailed(req.RawURL, req.Platform, re)
		}
		return nil, re
	}

	record.MarkSucceeded(asset, elapsed)
	s.saveRecord(record)

	s.logger.Info("Fetch completed",
		zap.String("id", record.ID),
		zap.String("url", req.RawURL),
		zap.String("platform", string(req.Platform)),
		zap.String("kind", string(asset.Kind)),
		zap.Int("size", asset.Size()),
		zap.Duration("elapsed", elapsed))

	if key != "" && asset.Kind != domain.KindBinaryFile {
		if err := s.cache.Set(ctx, key, asset); err != nil {
			s.logger.Warn("Failed to cache asset", zap.String("url", req.RawURL), zap.Error(err))
		}
	}

	if s.notifier != nil {
		s.notifier.NotifyFetchCompleted(req.RawURL, req.Platform)
	}

	return &FetchResult{Asset: asset, RecordID: record.ID}, nil
}

// cached returns a cache hit for key, or nil
func (s *FetchService) cached(ctx context.Context, key string, req *domain.DownloadRequest) *domain.RetrievedAsset {
	asset, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Cache lookup failed", zap.String("url", req.RawURL), zap.Error(err))
		return nil
	}
	if !ok || asset == nil {
		return nil
	}
	s.logger.Info("Serving cached asset",
		zap.String("url", req.RawURL),
		zap.String("platform", string(req.Platform)))
	return asset
}

func (s *FetchService) saveRecord(record *domain.FetchRecord) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Create(record); err != nil {
		s.logger.Warn("Failed to record fetch history",
			zap.String("id", record.ID),
			zap.Error(err))
	}
}

var (
	// ErrHistoryDisabled is returned by history operations when no repository is configured
	ErrHistoryDisabled = errors.New("history is disabled")

	// ErrInvalidFilter is returned for an unknown platform or outcome filter
	ErrInvalidFilter = errors.New("invalid history filter")
)

// History lists past fetches, newest first
func (s *FetchService) History(filter domain.HistoryFilter, limit int) ([]*domain.FetchRecord, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	if filter.Platform != "" && !filter.Platform.Valid() {
		return nil, fmt.Errorf("%w: platform %q", ErrInvalidFilter, filter.Platform)
	}
	if filter.Outcome != "" && !domain.ValidateOutcome(filter.Outcome) {
		return nil, fmt.Errorf("%w: outcome %q", ErrInvalidFilter, filter.Outcome)
	}
	return s.repo.FindAll(filter, limit)
}

// GetRecord returns one history record
func (s *FetchService) GetRecord(id string) (*domain.FetchRecord, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.repo.FindByID(id)
}

// DeleteRecord removes one history record
func (s *FetchService) DeleteRecord(id string) error {
	if s.repo == nil {
		return ErrHistoryDisabled
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.logger.Info("History record deleted", zap.String("id", id))
	return nil
}

// Stats returns history statistics
func (s *FetchService) Stats() (*domain.FetchStats, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.repo.GetStats()
}
