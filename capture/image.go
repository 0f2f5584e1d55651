package capture

import (
	"image"
	"image/draw"
)

// toNRGBA returns img as an *image.NRGBA with bounds anchored at the origin.
// The source is copied, never aliased, so captured images stay immutable.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// crop copies the region r out of img. The crop box is clamped to the image
// bounds; a region that falls entirely outside yields an empty image.
func crop(img image.Image, r image.Rectangle) *image.NRGBA {
	r = r.Intersect(img.Bounds())
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	if !r.Empty() {
		draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	}
	return dst
}

// row returns the raw pixel bytes of row y, width w pixels.
func row(img *image.NRGBA, y, w int) []byte {
	off := img.PixOffset(0, y)
	return img.Pix[off : off+w*4]
}
