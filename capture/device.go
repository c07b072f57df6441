package capture

import (
	"log/slog"

	"github.com/blackjack/webcam"
	"github.com/pkg/errors"
)

// V4L2 control ids and values used for exposure setup.
const (
	cidExposureAuto     webcam.ControlID = 0x009a0901
	cidExposureAbsolute webcam.ControlID = 0x009a0902
	cidGain             webcam.ControlID = 0x00980913

	exposureManual = 1
)

// Device is an open capture device.
type Device struct {
	path   string
	cam    *webcam.Webcam
	format Format
}

// Open opens path, which must be a character device able to capture with
// streaming I/O.
func Open(path string) (*Device, error) {
	ok, err := isCharDevice(path)
	if err != nil {
		return nil, deviceErr(NotFound, path, err, "can not identify device")
	}
	if !ok {
		return nil, deviceErr(NotFound, path, nil, "not a character device")
	}

	cam, err := webcam.Open(path)
	if err != nil {
		return nil, deviceErr(NotFound, path, err, "can not open device")
	}
	return &Device{path: path, cam: cam}, nil
}

// Driver exposes the streaming side of the device to a Pool.
func (d *Device) Driver() Driver {
	return d.cam
}

// Negotiate sets YUYV at width x height. The driver may round stride and
// image size up, so both are read back rather than computed.
func (d *Device) Negotiate(width, height int) (Format, error) {
	if _, ok := d.cam.GetSupportedFormats()[PixelFormatYUYV]; !ok {
		return Format{}, deviceErr(UnsupportedFormat, d.path, nil, "YUYV is not offered")
	}

	pf, w, h, err := d.cam.SetImageFormat(PixelFormatYUYV, uint32(width), uint32(height))
	if err != nil {
		return Format{}, deviceErr(UnsupportedFormat, d.path, err, "can not set format")
	}
	if pf != PixelFormatYUYV || int(w) != width || int(h) != height {
		return Format{}, deviceErr(UnsupportedFormat, d.path,
			errors.Errorf("requested YUYV %dx%d, device chose %s %dx%d", width, height, fourcc(pf), w, h), "")
	}

	format, err := queryFormat(d.path)
	if err != nil {
		return Format{}, deviceErr(UnsupportedFormat, d.path, err, "can not read back format")
	}
	if format.PixelFormat != PixelFormatYUYV || format.Width != width || format.Height != height {
		return Format{}, deviceErr(UnsupportedFormat, d.path,
			errors.Errorf("device reports %s", format), "format changed after negotiation")
	}

	format = format.normalize()
	if !format.Valid() {
		return Format{}, deviceErr(UnsupportedFormat, d.path,
			errors.Errorf("device reports %s", format), "unusable frame layout")
	}

	d.format = format
	slog.Info("Negotiated capture format", "device", d.path, "format", d.format)
	return d.format, nil
}

// SetExposure switches to manual exposure with the given absolute value and
// applies gain when positive. Failures are logged and otherwise ignored.
func (d *Device) SetExposure(exposure, gain int) {
	if exposure > 0 {
		if err := d.cam.SetControl(cidExposureAuto, exposureManual); err != nil {
			slog.Warn("Exposure mode could not be modified", "device", d.path, "error", err)
		} else if err := d.cam.SetControl(cidExposureAbsolute, int32(exposure)); err != nil {
			slog.Warn("Exposure time could not be set", "device", d.path, "error", err)
		} else {
			slog.Info("Exposure set", "device", d.path, "exposure", exposure)
		}
	}

	if gain > 0 {
		if err := d.cam.SetControl(cidGain, int32(gain)); err != nil {
			slog.Warn("Gain could not be set", "device", d.path, "error", err)
		}
	}
}

func (d *Device) Close() error {
	return d.cam.Close()
}
