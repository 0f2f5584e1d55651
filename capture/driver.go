package capture

import (
	"context"
	"time"
)

// ToggleState classifies the outcome of a visibility toggle for a single
// selector. Skipped states are tolerated during a sweep; only hard failures
// abort it.
type ToggleState int

const (
	// ToggleApplied means the element's visibility was changed.
	ToggleApplied ToggleState = iota
	// ToggleSkippedMissing means no element matched the selector.
	ToggleSkippedMissing
	// ToggleSkippedUnchanged means the element was already in the
	// requested state.
	ToggleSkippedUnchanged
)

func (s ToggleState) String() string {
	switch s {
	case ToggleApplied:
		return "applied"
	case ToggleSkippedMissing:
		return "missing"
	case ToggleSkippedUnchanged:
		return "unchanged"
	}
	return "unknown"
}

// ToggleOutcome records the per-selector result of a visibility sweep.
type ToggleOutcome struct {
	Selector string
	State    ToggleState
}

// Driver is the browser capability the capture engine drives. Every method
// is a blocking round trip to the live page; the engine never caches scroll
// or viewport reads across mutations. Implementations are not safe for
// concurrent captures against the same page.
type Driver interface {
	// Screenshot returns the raw screenshot of the page as encoded image
	// bytes (PNG or JPEG).
	Screenshot(ctx context.Context) ([]byte, error)

	// ScrollTo sets the document's vertical scroll offset.
	ScrollTo(ctx context.Context, y int) error

	// ScrollToBottom scrolls the document to its full height.
	ScrollToBottom(ctx context.Context) error

	// ScrollPosition returns the document's current vertical scroll offset.
	ScrollPosition(ctx context.Context) (int, error)

	// ViewportSize returns the dimensions of the visible capture area.
	ViewportSize(ctx context.Context) (width, height int, err error)

	// SetVisible toggles visibility of the first element matching selector.
	// A missing element or one already in the requested state is reported
	// through the ToggleState, not as an error.
	SetVisible(ctx context.Context, selector string, visible bool) (ToggleState, error)

	// ScrollElementToTop resets an element's own scroll offset to zero.
	ScrollElementToTop(ctx context.Context, selector string) error

	// ScrollElementBy advances an element's own scroll offset by delta pixels.
	ScrollElementBy(ctx context.Context, selector string, delta int) error

	// ElementHeight returns the visible (client) height of the element.
	ElementHeight(ctx context.Context, selector string) (int, error)

	// ElementAtBottom reports whether the element is scrolled to its bottom.
	ElementAtBottom(ctx context.Context, selector string) (bool, error)

	// WaitStable waits until the page layout settles or the timeout
	// elapses. Best effort: hitting the timeout is not an error.
	WaitStable(ctx context.Context, timeout time.Duration) error

	// Mobile reports whether the browsing context declares the mobile
	// capability. Mobile raw screenshots are already viewport sized and
	// are never cropped.
	Mobile() bool
}
