package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

// RodRenderer renders pages in a headless stealth browser.
// The browser is launched on first use and shared; every request gets its
// own page.
type RodRenderer struct {
	bin       string
	userAgent string
	logger    *zap.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewRodRenderer creates a renderer; an empty bin auto-detects the browser
func NewRodRenderer(bin, userAgent string, logger *zap.Logger) *RodRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RodRenderer{
		bin:       bin,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Render navigates to rawURL and returns the rendered HTML
func (r *RodRenderer) Render(ctx context.Context, rawURL string) ([]byte, error) {
	p := domain.PlatformTikTok

	browser, err := r.ensureBrowser()
	if err != nil {
		return nil, domain.ErrTransient(p, "failed to start headless browser", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, domain.ErrTransient(p, "failed to open browser page", err)
	}
	defer page.Close()

	page = page.Context(ctx)
	if r.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.userAgent}); err != nil {
			return nil, domain.ErrTransient(p, "failed to set user agent", err)
		}
	}

	if err := page.Navigate(rawURL); err != nil {
		return nil, renderError(ctx, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, renderError(ctx, err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, renderError(ctx, err)
	}
	return []byte(html), nil
}

func renderError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return domain.AsRetrievalError(domain.PlatformTikTok, ctx.Err())
	}
	var navErr *rod.NavigationError
	if errors.As(err, &navErr) {
		return domain.ErrTransient(domain.PlatformTikTok, fmt.Sprintf("navigation failed: %s", navErr.Reason), err)
	}
	return domain.ErrTransient(domain.PlatformTikTok, "page rendering failed", err)
}

// ensureBrowser launches the browser once
func (r *RodRenderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	bin := r.bin
	if bin == "" {
		if path, ok := launcher.LookPath(); ok {
			bin = path
		}
	}

	l := launcher.New().
		Leakless(false).
		Headless(true).
		Set("disable-gpu").
		Set("no-sandbox")
	if bin != "" {
		l = l.Bin(bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	r.launcher = l
	r.browser = browser
	r.logger.Info("Headless browser started", zap.String("bin", bin))
	return browser, nil
}

// Close shuts the browser down
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.launcher.Kill()
	r.browser = nil
	r.launcher = nil
	return err
}
