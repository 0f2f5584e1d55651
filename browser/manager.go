// Package browser manages the Chrome instance behind a capture run: launch
// or connect via Rod, recycle on age or memory pressure, and open sessions
// that implement the capture driver contract.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string `json:"remote_url" yaml:"remote_url"`

	// Headful runs Chrome with a visible window under Xvfb instead of
	// headless. Stealth page creation applies either way.
	Headful bool `json:"headful" yaml:"headful"`

	// XvfbDisplay for headful mode. Default: ":99".
	XvfbDisplay string `json:"xvfb_display" yaml:"xvfb_display"`

	// MemoryLimit in bytes. Recycle Chrome when exceeded. Default: 1GB.
	MemoryLimit int64 `json:"memory_limit" yaml:"memory_limit"`

	// RecycleInterval is the maximum lifetime of a Chrome process.
	// Default: 4h.
	RecycleInterval time.Duration `json:"recycle_interval" yaml:"recycle_interval"`

	// Mobile opens sessions with mobile device metrics. Raw screenshots
	// from such sessions are viewport sized and the capture engine never
	// crops them.
	Mobile bool `json:"mobile" yaml:"mobile"`

	// MobileWidth and MobileHeight are the emulated viewport in mobile
	// mode. Defaults: 390x844.
	MobileWidth  int `json:"mobile_width" yaml:"mobile_width"`
	MobileHeight int `json:"mobile_height" yaml:"mobile_height"`

	// NavigateTimeout bounds navigation and load waiting when opening a
	// session. Default: 30s.
	NavigateTimeout time.Duration `json:"navigate_timeout" yaml:"navigate_timeout"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.XvfbDisplay == "" {
		c.XvfbDisplay = ":99"
	}
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 1 << 30 // 1GB
	}
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 4 * time.Hour
	}
	if c.MobileWidth <= 0 {
		c.MobileWidth = 390
	}
	if c.MobileHeight <= 0 {
		c.MobileHeight = 844
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager manages Chrome lifecycle.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	xvfb    *exec.Cmd
	startAt time.Time
	closed  bool
}

// NewManager creates a browser Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance) and starts the
// recycle monitor goroutine.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("browser: manager is closed")
	}

	b, err := m.launch()
	if err != nil {
		return err
	}
	m.browser = b
	m.startAt = time.Now()

	go m.monitorLoop(ctx)

	return nil
}

// Browser returns the current Rod browser handle. Thread-safe.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// Recycle kills Chrome and restarts it. Open sessions become invalid.
func (m *Manager) Recycle() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("browser: manager is closed")
	}

	log := m.cfg.Logger
	log.Info("browser: recycling", "uptime", time.Since(m.startAt))

	if err := m.cleanup(); err != nil {
		log.Warn("browser: cleanup during recycle", "error", err)
	}

	b, err := m.launch()
	if err != nil {
		return fmt.Errorf("browser: relaunch: %w", err)
	}
	m.browser = b
	m.startAt = time.Now()

	log.Info("browser: recycled successfully")
	return nil
}

// Close shuts down Chrome and Xvfb.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) launch() (*rod.Browser, error) {
	log := m.cfg.Logger

	if m.cfg.Headful {
		if err := m.startXvfb(); err != nil {
			return nil, fmt.Errorf("browser: xvfb: %w", err)
		}
	}

	var wsURL string

	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New()

		if m.cfg.Headful {
			l = l.Headless(false).Env("DISPLAY=" + m.cfg.XvfbDisplay)
		} else {
			l = l.Headless(true)
		}

		// Anti-detection flags.
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "headful", m.cfg.Headful)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	// Ignore certificate errors for staging environments under test.
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}

	return b, nil
}

func (m *Manager) cleanup() error {
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.stopXvfb()
	return nil
}

func (m *Manager) monitorLoop(ctx context.Context) {
	log := m.cfg.Logger
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			if m.closed || m.browser == nil {
				m.mu.RUnlock()
				return
			}
			startAt := m.startAt
			b := m.browser
			m.mu.RUnlock()

			if time.Since(startAt) > m.cfg.RecycleInterval {
				log.Info("browser: recycle interval reached")
				if err := m.Recycle(); err != nil {
					log.Error("browser: recycle failed", "error", err)
				}
				continue
			}

			used, err := jsHeapUsage(b)
			if err != nil {
				log.Debug("browser: heap check failed", "error", err)
				continue
			}
			if used > m.cfg.MemoryLimit {
				log.Info("browser: memory limit exceeded",
					"used", used, "limit", m.cfg.MemoryLimit)
				if err := m.Recycle(); err != nil {
					log.Error("browser: recycle failed", "error", err)
				}
			}
		}
	}
}

// jsHeapUsage queries Chrome's JS heap through the first page as a proxy for
// overall memory pressure.
func jsHeapUsage(b *rod.Browser) (int64, error) {
	pages, err := b.Pages()
	if err != nil || len(pages) == 0 {
		return 0, fmt.Errorf("no pages for heap check")
	}

	res, err := pages[0].Eval(`() => {
		if (performance.memory) {
			return performance.memory.usedJSHeapSize;
		}
		return 0;
	}`)
	if err != nil {
		return 0, err
	}

	return int64(res.Value.Int()), nil
}
