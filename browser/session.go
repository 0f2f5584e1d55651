package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/pagecap/capture"
)

// Session wraps one Rod page and implements capture.Driver. A session owns
// the page's scroll and visibility state for the duration of a capture call;
// concurrent captures against the same session are unsafe.
type Session struct {
	page   *rod.Page
	mobile bool
	log    *slog.Logger
}

var _ capture.Driver = (*Session)(nil)

// Open creates a stealth page, applies mobile device metrics when the
// manager is configured for a mobile context, and navigates to the URL.
func (m *Manager) Open(ctx context.Context, pageURL string) (*Session, error) {
	b := m.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	if m.cfg.Mobile {
		err := (&proto.EmulationSetDeviceMetricsOverride{
			Width:             m.cfg.MobileWidth,
			Height:            m.cfg.MobileHeight,
			DeviceScaleFactor: 1,
			Mobile:            true,
		}).Call(page)
		if err != nil {
			page.Close()
			return nil, fmt.Errorf("browser: set mobile metrics: %w", err)
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, m.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		m.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Session{page: page, mobile: m.cfg.Mobile, log: m.cfg.Logger}, nil
}

// Close closes the underlying page.
func (s *Session) Close() error {
	if s.page != nil {
		return s.page.Close()
	}
	return nil
}

// Screenshot captures the page. Desktop contexts capture the full document
// height so the engine can crop any band from it; mobile contexts capture
// the viewport as rendered.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	return s.page.Context(ctx).Screenshot(!s.mobile, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (s *Session) ScrollTo(ctx context.Context, y int) error {
	_, err := s.page.Context(ctx).Eval(`(y) => window.scrollTo(0, y)`, y)
	return err
}

func (s *Session) ScrollToBottom(ctx context.Context) error {
	_, err := s.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (s *Session) ScrollPosition(ctx context.Context) (int, error) {
	res, err := s.page.Context(ctx).Eval(`() => window.pageYOffset`)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (s *Session) ViewportSize(ctx context.Context) (int, int, error) {
	res, err := s.page.Context(ctx).Eval(`() => ({
		width: document.documentElement.clientWidth,
		height: document.documentElement.clientHeight,
	})`)
	if err != nil {
		return 0, 0, err
	}
	return res.Value.Get("width").Int(), res.Value.Get("height").Int(), nil
}

// SetVisible toggles an element's visibility. Missing elements and elements
// already in the requested state are classified, not failed, so sweeps over
// selector lists can tolerate them.
func (s *Session) SetVisible(ctx context.Context, selector string, visible bool) (capture.ToggleState, error) {
	has, el, err := s.page.Context(ctx).Has(selector)
	if err != nil {
		return 0, err
	}
	if !has {
		return capture.ToggleSkippedMissing, nil
	}

	shown, err := el.Visible()
	if err != nil {
		return 0, err
	}
	if shown == visible {
		return capture.ToggleSkippedUnchanged, nil
	}

	style := "hidden"
	if visible {
		style = "visible"
	}
	if _, err := el.Eval(`(v) => { this.style.visibility = v }`, style); err != nil {
		return 0, err
	}
	return capture.ToggleApplied, nil
}

func (s *Session) ScrollElementToTop(ctx context.Context, selector string) error {
	el, err := s.element(ctx, selector)
	if err != nil {
		return err
	}
	_, err = el.Eval(`() => { this.scrollTop = 0 }`)
	return err
}

func (s *Session) ScrollElementBy(ctx context.Context, selector string, delta int) error {
	el, err := s.element(ctx, selector)
	if err != nil {
		return err
	}
	_, err = el.Eval(`(delta) => { this.scrollTop += delta }`, delta)
	return err
}

func (s *Session) ElementHeight(ctx context.Context, selector string) (int, error) {
	el, err := s.element(ctx, selector)
	if err != nil {
		return 0, err
	}
	res, err := el.Eval(`() => this.clientHeight`)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (s *Session) ElementAtBottom(ctx context.Context, selector string) (bool, error) {
	el, err := s.element(ctx, selector)
	if err != nil {
		return false, err
	}
	res, err := el.Eval(`() => this.scrollTop + this.clientHeight >= this.scrollHeight`)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// WaitStable polls the DOM until it stops changing or the timeout elapses.
// Best effort: the capture engine treats a timed-out wait as settled.
func (s *Session) WaitStable(ctx context.Context, timeout time.Duration) error {
	err := s.page.Context(ctx).Timeout(timeout).WaitDOMStable(200*time.Millisecond, 0.1)
	if err != nil {
		s.log.Debug("browser: dom stable wait", "error", err)
	}
	return nil
}

func (s *Session) Mobile() bool { return s.mobile }

func (s *Session) element(ctx context.Context, selector string) (*rod.Element, error) {
	has, el, err := s.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("browser: no element matches %q", selector)
	}
	return el, nil
}
