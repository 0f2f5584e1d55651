// Package capture assembles complete-page images of a rendered browser
// document. It drives a browser through the Driver interface to coordinate
// scroll state and sticky-element visibility, crops screenshots to the
// visible viewport band, and merges header and footer captures into one
// seamless image by exact pixel-row matching.
//
// A Capturer owns no browser state beyond its configuration; the browser's
// scroll and visibility state belongs to one capture call at a time, so
// concurrent captures against the same page must be serialized by the
// caller.
package capture

import (
	"context"
	"image"
	"log/slog"
)

// Capturer orchestrates the capture strategies over a Driver.
type Capturer struct {
	drv Driver
	cfg Config
	log *slog.Logger
}

// New creates a Capturer. The configuration is fixed for the Capturer's
// lifetime.
func New(drv Driver, cfg Config) *Capturer {
	cfg.defaults()
	return &Capturer{drv: drv, cfg: cfg, log: cfg.Logger}
}

// PageOptions adjusts a single Page call.
type PageOptions struct {
	// ViewportOnly captures just the currently visible area.
	ViewportOnly bool
	// ScrollPadding overrides the configured padding when positive.
	ScrollPadding int
}

// ElementOptions adjusts a single ScrollingElement call.
type ElementOptions struct {
	// FullPage captures the whole page at each scroll step instead of the
	// viewport band. Useful when the scrollable element is taller than
	// the viewport.
	FullPage bool
	// ScrollPadding overrides the configured padding when positive.
	ScrollPadding int
}

// Page captures the document. Depending on the options and configuration it
// returns a single viewport image, a single full-page image (stitched around
// sticky headers and footers when configured), or the ordered paginated
// sequence. An error at any step aborts the call; no partial sequence is
// returned.
func (c *Capturer) Page(ctx context.Context, opts PageOptions) ([]image.Image, error) {
	switch {
	case opts.ViewportOnly:
		img, err := c.captureViewport(ctx)
		if err != nil {
			return nil, err
		}
		return []image.Image{img}, nil
	case c.cfg.Paginated:
		return c.paginate(ctx, c.padding(opts.ScrollPadding))
	default:
		img, err := c.fullPage(ctx)
		if err != nil {
			return nil, err
		}
		return []image.Image{img}, nil
	}
}

// ScrollingElement scrolls the element matching selector from its top to its
// bottom, capturing at each step. The element advances by its height minus
// the scroll padding so successive images overlap, and the sequence ends
// with the capture in which the element reports being at its bottom.
func (c *Capturer) ScrollingElement(ctx context.Context, selector string, opts ElementOptions) ([]image.Image, error) {
	padding := c.padding(opts.ScrollPadding)

	if err := c.drv.ScrollElementToTop(ctx, selector); err != nil {
		return nil, interactionErr("scroll element to top", selector, err)
	}

	var images []image.Image
	for {
		var (
			img image.Image
			err error
		)
		if opts.FullPage {
			img, err = c.fullPage(ctx)
		} else {
			img, err = c.captureViewport(ctx)
		}
		if err != nil {
			return nil, err
		}
		images = append(images, img)

		atBottom, err := c.drv.ElementAtBottom(ctx, selector)
		if err != nil {
			return nil, interactionErr("check element scroll bottom", selector, err)
		}
		if atBottom {
			break
		}

		height, err := c.drv.ElementHeight(ctx, selector)
		if err != nil {
			return nil, interactionErr("read element height", selector, err)
		}
		if err := c.drv.ScrollElementBy(ctx, selector, height-padding); err != nil {
			return nil, interactionErr("scroll element", selector, err)
		}
	}

	c.log.Debug("scrolling element captured", "selector", selector, "images", len(images))
	return images, nil
}

// fullPage captures the whole page in one image. With both header and footer
// stickies configured it takes two captures, one from the top with footers
// hidden and one from the bottom with headers hidden, and stitches them.
func (c *Capturer) fullPage(ctx context.Context) (image.Image, error) {
	headers, footers := c.cfg.HeaderSelectors, c.cfg.FooterSelectors

	switch {
	case len(headers) > 0 && len(footers) > 0:
		if err := c.drv.ScrollTo(ctx, 0); err != nil {
			return nil, interactionErr("scroll to top", "", err)
		}
		if _, err := c.hideAll(ctx, footers); err != nil {
			return nil, err
		}
		header, err := c.captureViewport(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := c.showAll(ctx, footers); err != nil {
			return nil, err
		}

		if err := c.drv.ScrollToBottom(ctx); err != nil {
			return nil, interactionErr("scroll to bottom", "", err)
		}
		if _, err := c.hideAll(ctx, headers); err != nil {
			return nil, err
		}
		footer, err := c.captureRaw(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := c.showAll(ctx, headers); err != nil {
			return nil, err
		}

		img, err := Stitch(header, footer, c.cfg.PixelMatchOffset)
		if err != nil {
			return nil, captureErr("stitch header and footer captures", err)
		}
		return img, nil

	case len(headers) > 0:
		// Keep the headers at the top of the page so they cover nothing.
		if err := c.drv.ScrollTo(ctx, 0); err != nil {
			return nil, interactionErr("scroll to top", "", err)
		}
		c.settle(ctx)
		return c.captureRaw(ctx)

	case len(footers) > 0:
		if err := c.drv.ScrollToBottom(ctx); err != nil {
			return nil, interactionErr("scroll to bottom", "", err)
		}
		c.settle(ctx)
		return c.captureRaw(ctx)

	default:
		return c.captureRaw(ctx)
	}
}

// paginate captures the page viewport by viewport, keeping padding pixels of
// overlap between successive images. The loop ends when a scroll advance
// leaves the position unchanged, which only happens at the bottom of the
// document.
func (c *Capturer) paginate(ctx context.Context, padding int) ([]image.Image, error) {
	if err := c.drv.ScrollTo(ctx, 0); err != nil {
		return nil, interactionErr("scroll to top", "", err)
	}
	pos, err := c.drv.ScrollPosition(ctx)
	if err != nil {
		return nil, interactionErr("read scroll position", "", err)
	}

	var images []image.Image
	for {
		img, err := c.captureViewport(ctx)
		if err != nil {
			return nil, err
		}
		images = append(images, img)

		_, vh, err := c.drv.ViewportSize(ctx)
		if err != nil {
			return nil, interactionErr("read viewport size", "", err)
		}
		if err := c.drv.ScrollTo(ctx, pos+vh-padding); err != nil {
			return nil, interactionErr("scroll to next page", "", err)
		}
		c.settle(ctx)

		next, err := c.drv.ScrollPosition(ctx)
		if err != nil {
			return nil, interactionErr("read scroll position", "", err)
		}
		if next == pos {
			break
		}
		pos = next
	}

	c.log.Debug("paginated capture finished", "pages", len(images))
	return images, nil
}

func (c *Capturer) padding(override int) int {
	if override > 0 {
		return override
	}
	return c.cfg.ScrollPadding
}

// settle waits for the layout to catch up with the last mutation. Best
// effort: a wait that times out or fails is logged and ignored.
func (c *Capturer) settle(ctx context.Context) {
	if err := c.drv.WaitStable(ctx, c.cfg.SettleTimeout); err != nil {
		c.log.Debug("settle wait failed", "error", err)
	}
}
