package capture

import (
	"log/slog"
	"time"
)

// Format identifies an image encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// Config configures a Capturer. It is read once at construction and never
// mutated by a capture strategy; per-call overrides are passed explicitly.
type Config struct {
	// Paginated makes full-page captures produce a sequence of
	// viewport-sized images instead of one stitched image.
	Paginated bool `json:"paginated" yaml:"paginated"`

	// HeaderSelectors lists CSS selectors for elements that stick to the
	// top of the viewport while scrolling. They are hidden and shown
	// during capture so they appear only at the top of the final image.
	HeaderSelectors []string `json:"header_selectors" yaml:"header_selectors"`

	// FooterSelectors lists CSS selectors for elements that stick to the
	// bottom of the viewport while scrolling.
	FooterSelectors []string `json:"footer_selectors" yaml:"footer_selectors"`

	// ScrollPadding is the pixel overlap kept between successive paginated
	// captures, and the amount subtracted from an element's height when
	// advancing a scrolling-element capture. Default: 100.
	ScrollPadding int `json:"scroll_padding" yaml:"scroll_padding"`

	// PixelMatchOffset is the number of trailing header rows compared
	// against the footer image to locate the stitch seam. Default: 100.
	PixelMatchOffset int `json:"pixel_match_offset" yaml:"pixel_match_offset"`

	// Format selects the output encoding. Default: png.
	Format Format `json:"format" yaml:"format"`

	// SettleTimeout bounds the layout-stability wait after a scroll or
	// visibility mutation. Default: 500ms.
	SettleTimeout time.Duration `json:"settle_timeout" yaml:"settle_timeout"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.ScrollPadding <= 0 {
		c.ScrollPadding = 100
	}
	if c.PixelMatchOffset <= 0 {
		c.PixelMatchOffset = 100
	}
	if c.Format == "" {
		c.Format = FormatPNG
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = 500 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
