package capture

import (
	"bytes"
	"context"
	"image"

	_ "image/jpeg" // decoders for driver screenshot bytes
	_ "image/png"
)

// captureRaw acquires a screenshot from the driver and decodes it.
func (c *Capturer) captureRaw(ctx context.Context) (image.Image, error) {
	data, err := c.drv.Screenshot(ctx)
	if err != nil {
		return nil, interactionErr("screenshot", "", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, captureErr("decode screenshot", err)
	}
	return img, nil
}

// captureViewport acquires a screenshot and crops it to the band that is
// currently visible, using the live scroll offset and viewport size. Mobile
// contexts return raw screenshots that are already viewport sized, so they
// pass through uncropped.
func (c *Capturer) captureViewport(ctx context.Context) (image.Image, error) {
	img, err := c.captureRaw(ctx)
	if err != nil {
		return nil, err
	}
	if c.drv.Mobile() {
		return img, nil
	}

	pos, err := c.drv.ScrollPosition(ctx)
	if err != nil {
		return nil, interactionErr("read scroll position", "", err)
	}
	vw, vh, err := c.drv.ViewportSize(ctx)
	if err != nil {
		return nil, interactionErr("read viewport size", "", err)
	}

	return crop(img, image.Rect(0, pos, vw, pos+vh)), nil
}
