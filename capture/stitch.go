package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
)

// Stitch merges a header capture and a footer capture into one seamless
// image. It takes the last offset rows of the header as a reference block
// and scans the footer top to bottom for the first position where that
// whole block repeats, pixel for pixel. Everything above and including the
// repeated block is cropped off the footer, and the remainder is pasted
// directly below the header.
//
// Exact row equality is intentional: between the two captures the page is
// only scrolled and sticky elements toggled, never re-rendered, so the
// overlapping region is pixel stable. If no position matches (or the image
// widths differ, which can never row-match), the footer is pasted below the
// header unchanged.
func Stitch(header, footer image.Image, pixelMatchOffset int) (image.Image, error) {
	if pixelMatchOffset <= 0 {
		return nil, fmt.Errorf("capture: pixel match offset must be positive, got %d", pixelMatchOffset)
	}

	h := toNRGBA(header)
	f := toNRGBA(footer)
	hw, hh := h.Rect.Dx(), h.Rect.Dy()
	fw, fh := f.Rect.Dx(), f.Rect.Dy()
	if hw == 0 || hh == 0 || fw == 0 || fh == 0 {
		return nil, fmt.Errorf("capture: cannot stitch empty image (header %dx%d, footer %dx%d)", hw, hh, fw, fh)
	}

	// The offset never exceeds the header height.
	offset := pixelMatchOffset
	if offset > hh {
		offset = hh
	}

	// Without a matching block anywhere in the footer, the whole footer
	// is pasted below the header with no overlap removed.
	cropped := f
	if cropRow := matchRow(h, f, offset); cropRow > 0 {
		cropped = crop(f, image.Rect(0, cropRow, fw, fh))
	}
	ch := cropped.Rect.Dy()

	out := image.NewNRGBA(image.Rect(0, 0, fw, hh+ch))
	draw.Draw(out, image.Rect(0, 0, hw, hh), h, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, hh, fw, hh+ch), cropped, image.Point{}, draw.Src)
	return out, nil
}

// matchRow scans the footer for the reference block (the header's trailing
// offset rows) and returns the first row index below a full match, or 0 if
// none qualifies. Rows can only compare equal when the widths agree, and a
// candidate too close to the footer's bottom edge to hold the whole block
// never qualifies.
func matchRow(h, f *image.NRGBA, offset int) int {
	hw, hh := h.Rect.Dx(), h.Rect.Dy()
	fw, fh := f.Rect.Dx(), f.Rect.Dy()
	if hw != fw {
		return 0
	}

	blockTop := hh - offset
	for i := 0; i+offset <= fh; i++ {
		if !bytes.Equal(row(f, i, fw), row(h, blockTop, hw)) {
			continue
		}
		matched := true
		for y := 1; y < offset; y++ {
			if !bytes.Equal(row(f, i+y, fw), row(h, blockTop+y, hw)) {
				matched = false
				break
			}
		}
		if matched {
			// First qualifying position wins.
			return i + offset
		}
	}
	return 0
}
