package infrastructure

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

// AdapterSet holds one adapter per platform and the resources they own
type AdapterSet struct {
	adapters []domain.Adapter
	closers  []io.Closer
}

// NewAdapterSet builds every platform adapter from config
func NewAdapterSet(config *domain.Config, logger *zap.Logger) (*AdapterSet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := NewHTTPClient(&config.Fetch)
	fetcher := NewHTTPFetcher(client, config.Fetch.UserAgent, config.Fetch.MaxAssetBytes)

	set := &AdapterSet{}
	set.add(NewYouTubeAdapter(&config.YouTube, nil, config.Fetch.MaxAssetBytes, logger.Named("youtube")))

	instagram, err := NewInstagramAdapter(fetcher, "", logger.Named("instagram"))
	if err != nil {
		return nil, fmt.Errorf("failed to create instagram adapter: %w", err)
	}
	set.add(instagram)

	var renderer PageRenderer
	if config.TikTok.UseBrowser {
		renderer = NewRodRenderer(config.TikTok.BrowserBin, config.Fetch.UserAgent, logger.Named("browser"))
	}
	tiktok, err := NewTikTokAdapter(fetcher, renderer, "", logger.Named("tiktok"))
	if err != nil {
		return nil, fmt.Errorf("failed to create tiktok adapter: %w", err)
	}
	set.add(tiktok)
	if closer, ok := renderer.(io.Closer); ok {
		set.closers = append(set.closers, closer)
	}

	freepik, err := NewFreepikAdapter(fetcher, "", logger.Named("freepik"))
	if err != nil {
		return nil, fmt.Errorf("failed to create freepik adapter: %w", err)
	}
	set.add(freepik)

	dribbble, err := NewDribbbleAdapter(fetcher, "", logger.Named("dribbble"))
	if err != nil {
		return nil, fmt.Errorf("failed to create dribbble adapter: %w", err)
	}
	set.add(dribbble)

	set.add(NewSpotifyAdapter(fetcher, SpotifyEndpoints{}, logger.Named("spotify")))

	lottie, err := NewLottieAdapter(fetcher, "", logger.Named("lottiefiles"))
	if err != nil {
		return nil, fmt.Errorf("failed to create lottiefiles adapter: %w", err)
	}
	set.add(lottie)

	return set, nil
}

func (s *AdapterSet) add(a domain.Adapter) {
	s.adapters = append(s.adapters, a)
	if closer, ok := a.(io.Closer); ok {
		s.closers = append(s.closers, closer)
	}
}

// Adapters returns the adapters in platform order
func (s *AdapterSet) Adapters() []domain.Adapter {
	return append([]domain.Adapter(nil), s.adapters...)
}

// Close releases sessions and browsers held by the adapters
func (s *AdapterSet) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
