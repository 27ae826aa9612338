package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/designaudit/capture/internal/browser"
	"github.com/hazyhaar/designaudit/design"
)

// DefaultBlockedResources are aborted before they reach the network.
var DefaultBlockedResources = []string{"media", "font", "websocket", "manifest", "other"}

// BrowserConfig configures the headless Chrome capturer.
type BrowserConfig struct {
	RemoteURL         string
	ViewportWidth     int
	ViewportHeight    int
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	BlockedResources  []string
	MemoryLimit       int64
	RecycleInterval   time.Duration
	Annotate          bool // outline rule findings on the screenshot
	Logger            *slog.Logger
}

func (c *BrowserConfig) defaults() {
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 1920
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 1440
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 45 * time.Second
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	} else if c.SettleDelay == 0 {
		c.SettleDelay = 2 * time.Second
	}
	if c.BlockedResources == nil {
		c.BlockedResources = DefaultBlockedResources
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser captures pages with a stealth headless Chrome.
type Browser struct {
	cfg    BrowserConfig
	chrome *browser.Chrome
}

// NewBrowser creates a Browser. Call Start before Capture.
func NewBrowser(cfg BrowserConfig) *Browser {
	cfg.defaults()
	return &Browser{
		cfg: cfg,
		chrome: browser.New(browser.Options{
			Remote:    cfg.RemoteURL,
			HeapLimit: cfg.MemoryLimit,
			MaxAge:    cfg.RecycleInterval,
			Block:     cfg.BlockedResources,
			Stealth:   true,
			Logger:    cfg.Logger,
		}),
	}
}

// Start launches (or connects to) Chrome.
func (b *Browser) Start(ctx context.Context) error {
	if err := b.chrome.Open(ctx); err != nil {
		return fmt.Errorf("%w: %w", design.ErrCaptureFailed, err)
	}
	return nil
}

// Close shuts Chrome down.
func (b *Browser) Close() error {
	return b.chrome.Close()
}

// Capture loads url, snapshots every visible element and takes a full-page
// PNG. A navigation timeout is logged and the capture proceeds with whatever
// rendered. With Annotate set, rule findings are outlined in red on the
// screenshot; the element snapshot is taken before the markers exist.
func (b *Browser) Capture(ctx context.Context, url string) (*Page, error) {
	log := b.cfg.Logger

	page, release, err := b.chrome.Tab()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", design.ErrCaptureFailed, err)
	}
	defer release()

	page = page.Context(ctx)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             b.cfg.ViewportWidth,
		Height:            b.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("%w: set viewport: %w", design.ErrCaptureFailed, err)
	}

	nav := page.Timeout(b.cfg.NavigationTimeout)
	defer nav.CancelTimeout()
	if err := nav.Navigate(url); err != nil {
		log.Warn("capture: navigation incomplete", "url", url, "error", err)
	} else if err := nav.WaitLoad(); err != nil {
		log.Warn("capture: load incomplete", "url", url, "error", err)
	}

	if b.cfg.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", design.ErrCaptureFailed, ctx.Err())
		case <-time.After(b.cfg.SettleDelay):
		}
	}

	res, err := page.Eval(snapshotScript)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot: %w", design.ErrCaptureFailed, err)
	}
	var raws []RawElement
	if err := json.Unmarshal([]byte(res.Value.Str()), &raws); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %w", design.ErrCaptureFailed, err)
	}

	records := Records(raws)

	annotated := false
	if b.cfg.Annotate {
		if ms := markers(records); len(ms) > 0 {
			if _, err := page.Eval(annotateScript, ms); err != nil {
				log.Warn("capture: annotate failed", "url", url, "error", err)
			} else {
				annotated = true
			}
		}
	}

	shot, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format:                proto.PageCaptureScreenshotFormatPng,
		CaptureBeyondViewport: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: screenshot: %w", design.ErrCaptureFailed, err)
	}
	if annotated {
		if _, err := page.Eval(clearAnnotationScript); err != nil {
			log.Debug("capture: clear annotations", "error", err)
		}
	}

	log.Info("capture: page captured", "url", url, "elements", len(raws), "screenshot_bytes", len(shot), "annotated", annotated)
	return newPage(url, records, shot), nil
}
