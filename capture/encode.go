package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Encode serializes img into an in-memory buffer in the requested format,
// ready for immediate upload or write.
func Encode(img image.Image, format Format) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	var err error
	switch format {
	case FormatPNG:
		err = png.Encode(buf, img)
	case FormatJPEG:
		err = jpeg.Encode(buf, img, nil)
	case FormatGIF:
		err = gif.Encode(buf, img, nil)
	case FormatBMP:
		err = bmp.Encode(buf, img)
	case FormatTIFF:
		err = tiff.Encode(buf, img, nil)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, captureErr("encode image", err, "format", string(format))
	}
	return buf, nil
}

// EncodeAll serializes a capture sequence in order.
func EncodeAll(images []image.Image, format Format) ([]*bytes.Buffer, error) {
	bufs := make([]*bytes.Buffer, 0, len(images))
	for i, img := range images {
		buf, err := Encode(img, format)
		if err != nil {
			return nil, captureErr("encode image sequence", err, "index", fmt.Sprint(i))
		}
		bufs = append(bufs, buf)
	}
	return bufs, nil
}
