// Package browser owns the Chrome process behind page captures. Tabs are
// leased; a lease blocks restarts, so Chrome is only replaced between
// captures, when it has outlived MaxAge, its JS heap exceeds HeapLimit or
// it stops answering. A process that fails to come back is retried on
// every watchdog tick until Close.
package browser

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
	"github.com/go-rod/stealth"
)

var (
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("browser: closed")
	// ErrUnavailable is returned while no Chrome process is connected.
	ErrUnavailable = errors.New("browser: chrome unavailable")
)

const (
	checkInterval = 30 * time.Second
	healthTimeout = 5 * time.Second
)

// Options tunes the Chrome process.
type Options struct {
	Remote    string        // DevTools WebSocket URL; empty launches a local headless Chrome
	HeapLimit int64         // bytes of JS heap on any tab before restart, default 1 GiB
	MaxAge    time.Duration // process lifetime before restart, default 4h
	Block     []string      // CDP resource types aborted on every tab
	Stealth   bool
	Logger    *slog.Logger
}

// Chrome is a restartable browser shared by concurrent captures.
type Chrome struct {
	opts Options

	dial  func() (*rod.Browser, *launcher.Launcher, error)
	every time.Duration

	mu      sync.RWMutex // read-held by every leased tab
	b       *rod.Browser
	local   *launcher.Launcher
	born    time.Time
	stopped bool
}

// New returns an idle Chrome; call Open before leasing tabs.
func New(opts Options) *Chrome {
	if opts.HeapLimit <= 0 {
		opts.HeapLimit = 1 << 30
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 4 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c := &Chrome{opts: opts, every: checkInterval}
	c.dial = c.connect
	return c
}

// Open starts the process and its watchdog. Calling Open twice is a no-op.
func (c *Chrome) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.stopped:
		return ErrClosed
	case c.b != nil:
		return nil
	}
	if err := c.spawn(); err != nil {
		return err
	}
	go c.watchdog(ctx)
	return nil
}

// Tab leases a fresh tab. done closes it and ends the lease; it is safe to
// call more than once.
func (c *Chrome) Tab() (tab *rod.Page, done func(), err error) {
	c.mu.RLock()
	switch {
	case c.stopped:
		c.mu.RUnlock()
		return nil, nil, ErrClosed
	case c.b == nil:
		c.mu.RUnlock()
		return nil, nil, ErrUnavailable
	}

	if c.opts.Stealth {
		tab, err = stealth.Page(c.b)
	} else {
		tab, err = c.b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		c.mu.RUnlock()
		return nil, nil, fmt.Errorf("browser: open tab: %w", err)
	}

	var hijack *rod.HijackRouter
	if len(c.opts.Block) > 0 {
		hijack = blockResources(tab, c.opts.Block)
	}

	var once sync.Once
	done = func() {
		once.Do(func() {
			if hijack != nil {
				_ = hijack.Stop()
			}
			if err := tab.Close(); err != nil {
				c.opts.Logger.Debug("browser: tab close", "error", err)
			}
			c.mu.RUnlock()
		})
	}
	return tab, done, nil
}

// Restart replaces the process once every outstanding lease is returned.
func (c *Chrome) Restart(reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ErrClosed
	}
	c.opts.Logger.Info("browser: restarting chrome", "reason", reason, "age", time.Since(c.born))
	c.teardown()
	if err := c.spawn(); err != nil {
		return fmt.Errorf("browser: restart: %w", err)
	}
	return nil
}

// Close stops Chrome for good.
func (c *Chrome) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.teardown()
	return nil
}

// spawn must run with mu held for writing.
func (c *Chrome) spawn() error {
	b, l, err := c.dial()
	if err != nil {
		return err
	}
	c.b, c.local, c.born = b, l, time.Now()
	return nil
}

// connect launches a local Chrome unless Remote is set, then attaches to it.
func (c *Chrome) connect() (*rod.Browser, *launcher.Launcher, error) {
	ws := c.opts.Remote
	var l *launcher.Launcher
	if ws == "" {
		l = launcher.New().
			Headless(true).
			NoSandbox(true).
			Set("disable-blink-features", "AutomationControlled").
			Set("disable-dev-shm-usage").
			Set("disable-gpu")
		u, err := l.Launch()
		if err != nil {
			return nil, nil, fmt.Errorf("browser: launch chrome: %w", err)
		}
		ws = u
	}

	b := rod.New().ControlURL(ws)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Cleanup()
		}
		return nil, nil, fmt.Errorf("browser: connect %s: %w", ws, err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		c.opts.Logger.Warn("browser: cannot ignore certificate errors", "error", err)
	}
	c.opts.Logger.Info("browser: chrome ready", "ws", ws, "remote", c.opts.Remote != "", "stealth", c.opts.Stealth)
	return b, l, nil
}

// teardown must run with mu held for writing.
func (c *Chrome) teardown() {
	if c.b != nil {
		_ = c.b.Close()
		c.b = nil
	}
	if c.local != nil {
		c.local.Cleanup()
		c.local = nil
	}
}

func (c *Chrome) watchdog(ctx context.Context) {
	tick := time.NewTicker(c.every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}

		reason, alive := c.inspect()
		if !alive {
			return
		}
		if reason == "" {
			continue
		}
		if err := c.Restart(reason); err != nil {
			c.opts.Logger.Error("browser: restart failed", "error", err)
		}
	}
}

// inspect reports why Chrome should restart, or "" when healthy. alive is
// false once the browser is closed.
func (c *Chrome) inspect() (reason string, alive bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch {
	case c.stopped:
		return "", false
	case c.b == nil:
		return "down", true
	case time.Since(c.born) > c.opts.MaxAge:
		return "max age", true
	}

	b := c.b.Timeout(healthTimeout)
	defer b.CancelTimeout()
	if _, err := (proto.BrowserGetVersion{}).Call(b); err != nil {
		return fmt.Sprintf("crashed: %v", err), true
	}
	used, err := heapUsed(b)
	if err != nil {
		return fmt.Sprintf("crashed: %v", err), true
	}
	if used > c.opts.HeapLimit {
		return fmt.Sprintf("heap %d > %d", used, c.opts.HeapLimit), true
	}
	return "", true
}

// heapUsed is the largest JS heap among open tabs. Tabs whose heap cannot be
// read are skipped; failing to list tabs at all is an error.
func heapUsed(b *rod.Browser) (int64, error) {
	tabs, err := b.Pages()
	if err != nil {
		return 0, err
	}
	var peak int64
	for _, t := range tabs {
		usage, err := proto.RuntimeGetHeapUsage{}.Call(t)
		if err != nil {
			continue
		}
		if n := int64(usage.UsedSize); n > peak {
			peak = n
		}
	}
	return peak, nil
}
