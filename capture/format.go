package capture

import (
	"fmt"

	"github.com/blackjack/webcam"
)

// PixelFormatYUYV is the packed 4:2:2 fourcc 'YUYV' (Y0 U Y1 V).
const PixelFormatYUYV webcam.PixelFormat = 'Y' | 'U'<<8 | 'Y'<<16 | 'V'<<24

// Format is the capture format negotiated with the device. It never changes
// for the lifetime of a session.
type Format struct {
	Width        int
	Height       int
	PixelFormat  webcam.PixelFormat
	BytesPerLine int
	ImageSize    int
}

func (f Format) String() string {
	return fmt.Sprintf("%dx%d %s stride=%d size=%d",
		f.Width, f.Height, fourcc(f.PixelFormat), f.BytesPerLine, f.ImageSize)
}

// LineSize is the number of meaningful bytes in one packed line.
func (f Format) LineSize() int {
	return f.Width * 2
}

// RGBSize is the size of one converted frame.
func (f Format) RGBSize() int {
	return f.Width * f.Height * 3
}

// FrameBytes is the minimum filled length of a complete frame.
func (f Format) FrameBytes() int {
	return f.BytesPerLine * f.Height
}

// Valid reports whether f describes whole frames of whole YUYV groups.
func (f Format) Valid() bool {
	return f.Width > 0 && f.Height > 0 && f.Width%2 == 0 &&
		f.BytesPerLine >= f.LineSize() && f.ImageSize >= f.FrameBytes()
}

// normalize raises stride and image size to their minimum legal values,
// for drivers that report less than they deliver.
func (f Format) normalize() Format {
	if n := f.LineSize(); f.BytesPerLine < n {
		f.BytesPerLine = n
	}
	if n := f.BytesPerLine * f.Height; f.ImageSize < n {
		f.ImageSize = n
	}
	return f
}

func fourcc(p webcam.PixelFormat) string {
	return string([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
}
