package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/sync/semaphore"
)

// ErrBrowserBusy is returned when no page slot frees up before the deadline.
var ErrBrowserBusy = errors.New("browser page limit reached")

// BrowserConfig controls how the shared headless browser is obtained.
type BrowserConfig struct {
	// ControlURL connects to an already running browser instead of launching one.
	ControlURL string
	// Bin is the browser executable to launch; empty lets the launcher pick.
	Bin string
	// MaxPages bounds concurrently open pages across all collectors.
	MaxPages int64
}

// Browser is a lazily started browser shared by the browser-backed
// collectors. Each page runs in its own incognito context.
type Browser struct {
	cfg BrowserConfig
	sem *semaphore.Weighted

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	inUse    int
	broken   bool
}

// cleanupWait bounds closing a page or context after the caller's ctx ended.
const cleanupWait = 5 * time.Second

// NewBrowser creates a browser handle. Nothing is launched until first use.
func NewBrowser(cfg BrowserConfig) *Browser {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 2
	}
	return &Browser{cfg: cfg, sem: semaphore.NewWeighted(cfg.MaxPages)}
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		b.inUse++
		return b.browser, nil
	}

	controlURL := b.cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(true)
		if b.cfg.Bin != "" {
			l = l.Bin(b.cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		b.launcher = l
		controlURL = u
	}

	br := rod.New().ControlURL(controlURL)
	if err := br.Connect(); err != nil {
		b.cleanupLocked()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	b.browser = br
	b.inUse++
	slog.Info("browser connected", "launched", b.launcher != nil)
	return br, nil
}

// WithPage opens url in a fresh incognito page, runs fn, and closes the page.
// Opening the context and the page, as well as fn's page, are bound to ctx.
func (b *Browser) WithPage(ctx context.Context, url string, fn func(*rod.Page) error) error {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserBusy, err)
	}
	defer b.sem.Release(1)

	br, err := b.connect()
	if err != nil {
		return err
	}

	incognito, err := br.Context(ctx).Incognito()
	if err != nil {
		b.release(ctx.Err() == nil && !alive(br))
		return fmt.Errorf("incognito context: %w", err)
	}
	defer b.release(false)

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupWait)
	defer cancel()
	defer func() { _ = incognito.Context(cleanupCtx).Close() }()

	page, err := incognito.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	defer func() { _ = page.Context(cleanupCtx).Close() }()

	return fn(page.Context(ctx))
}

// alive reports whether the browser still answers on its connection.
func alive(br *rod.Browser) bool {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupWait)
	defer cancel()
	_, err := proto.BrowserGetVersion{}.Call(br.Context(ctx))
	return err == nil
}

// release returns a page slot taken by connect. A dead connection is only
// torn down once no other page is using it; it reports whether it was.
func (b *Browser) release(dead bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if dead {
		b.broken = true
	}
	if b.inUse > 0 {
		b.inUse--
	}
	if b.inUse > 0 || !b.broken {
		return false
	}
	slog.Warn("browser connection lost, resetting")
	b.cleanupLocked()
	return true
}

func (b *Browser) cleanupLocked() {
	if b.browser != nil {
		_ = b.browser.Close()
		b.browser = nil
	}
	if b.launcher != nil {
		b.launcher.Cleanup()
		b.launcher = nil
	}
	b.broken = false
}

// Close shuts the browser down. Safe to call when it was never started.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleanupLocked()
	return nil
}
