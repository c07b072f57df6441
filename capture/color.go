package capture

import "github.com/pkg/errors"

func clamp8(v int32) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// yuvToRGB applies the studio-range BT.601 matrix in fixed point.
func yuvToRGB(y, u, v byte) (r, g, b byte) {
	c := int32(y) - 16
	d := int32(u) - 128
	e := int32(v) - 128

	r = clamp8((298*c + 409*e + 128) >> 8)
	g = clamp8((298*c - 100*d - 208*e + 128) >> 8)
	b = clamp8((298*c + 516*d + 128) >> 8)
	return
}

// YUYVToRGB converts packed Y0 U Y1 V groups from src into RGB triples in
// dst and returns the number of bytes written. Both pixels of a group share
// its chroma pair. A trailing partial group is dropped, and conversion
// stops early if dst runs out of room for a whole group.
func YUYVToRGB(dst, src []byte) int {
	n := 0
	for i := 0; i+4 <= len(src) && n+6 <= len(dst); i += 4 {
		y0, u, y1, v := src[i], src[i+1], src[i+2], src[i+3]
		dst[n], dst[n+1], dst[n+2] = yuvToRGB(y0, u, v)
		dst[n+3], dst[n+4], dst[n+5] = yuvToRGB(y1, u, v)
		n += 6
	}
	return n
}

// ErrShortFrame is returned when a buffer holds less than one whole frame.
var ErrShortFrame = errors.New("short frame")

// Converter turns YUYV frames of one Format into RGB, reusing a single
// destination buffer. It is not safe for concurrent use.
type Converter struct {
	format Format
	rgb    []byte
}

func NewConverter(format Format) *Converter {
	return &Converter{
		format: format,
		rgb:    make([]byte, format.RGBSize()),
	}
}

// Convert converts one frame. Line padding beyond Width*2 bytes is skipped.
// The returned slice is overwritten by the next call.
func (c *Converter) Convert(src []byte) ([]byte, error) {
	f := c.format
	line := f.LineSize()
	// the last line may come without padding
	if need := f.BytesPerLine*(f.Height-1) + line; len(src) < need {
		return nil, errors.Wrapf(ErrShortFrame, "got %d bytes, want %d", len(src), need)
	}

	if f.BytesPerLine == line {
		YUYVToRGB(c.rgb, src[:line*f.Height])
		return c.rgb, nil
	}

	out := f.Width * 3
	for y := 0; y < f.Height; y++ {
		row := src[y*f.BytesPerLine : y*f.BytesPerLine+line]
		YUYVToRGB(c.rgb[y*out:(y+1)*out], row)
	}
	return c.rgb, nil
}
