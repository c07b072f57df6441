//go:build linux

package capture

import (
	"unsafe"

	"github.com/blackjack/webcam"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const v4l2BufTypeVideoCapture = 1

// v4l2PixFormat mirrors struct v4l2_pix_format (48 bytes).
type v4l2PixFormat struct {
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	bytesperline uint32
	sizeimage    uint32
	colorspace   uint32
	priv         uint32
	flags        uint32
	ycbcrEnc     uint32
	quantization uint32
	xferFunc     uint32
}

// v4l2Format mirrors struct v4l2_format. The kernel union holds pointers,
// so it starts on a pointer-aligned offset.
type v4l2Format struct {
	typ uint32
	_   [unsafe.Sizeof(uintptr(0)) - 4]byte
	raw [200]byte
}

func (f *v4l2Format) pix() *v4l2PixFormat {
	return (*v4l2PixFormat)(unsafe.Pointer(&f.raw[0]))
}

// _IOWR('V', 4, struct v4l2_format)
var vidiocGFmt = uintptr(3<<30 | uint32(unsafe.Sizeof(v4l2Format{}))<<16 | 'V'<<8 | 4)

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
		switch errno {
		case 0:
			return nil
		case unix.EINTR:
			continue
		default:
			return errno
		}
	}
}

// queryFormat reads back the format the driver actually applied. The
// webcam handle does not expose stride or image size, so a second
// descriptor is opened for the query.
func queryFormat(path string) (Format, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return Format{}, errors.Wrap(err, "open")
	}
	defer unix.Close(fd)

	var f v4l2Format
	f.typ = v4l2BufTypeVideoCapture
	if err := ioctl(fd, vidiocGFmt, unsafe.Pointer(&f)); err != nil {
		return Format{}, errors.Wrap(err, "VIDIOC_G_FMT")
	}

	pix := f.pix()
	return Format{
		Width:        int(pix.width),
		Height:       int(pix.height),
		PixelFormat:  webcam.PixelFormat(pix.pixelformat),
		BytesPerLine: int(pix.bytesperline),
		ImageSize:    int(pix.sizeimage),
	}, nil
}

func isCharDevice(path string) (bool, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false, err
	}
	return st.Mode&unix.S_IFMT == unix.S_IFCHR, nil
}
