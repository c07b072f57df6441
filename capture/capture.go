package capture

import (
	"log/slog"

	"github.com/pkg/errors"
)

// Processor receives converted frames until it returns false or an error.
type Processor func(frame []byte) (bool, error)

type Option struct {
	Device   string
	Width    int
	Height   int
	Buffers  int
	Timeout  uint32 // seconds to wait for one frame
	Exposure int
	Gain     int
}

// Source produces converted RGB frames from a streaming pool, one at a
// time, on the calling goroutine.
type Source struct {
	dev     *Device
	pool    *Pool
	conv    *Converter
	format  Format
	path    string
	timeout uint32
}

// NewSource opens the device, negotiates YUYV, sets up the buffer pool and
// starts streaming.
func NewSource(opt *Option) (*Source, error) {
	dev, err := Open(opt.Device)
	if err != nil {
		return nil, err
	}

	dev.SetExposure(opt.Exposure, opt.Gain)

	format, err := dev.Negotiate(opt.Width, opt.Height)
	if err != nil {
		dev.Close()
		return nil, err
	}

	pool, err := NewPool(dev.Driver(), opt.Buffers)
	if err != nil {
		dev.Close()
		return nil, withPath(err, opt.Device)
	}
	if err := pool.Start(); err != nil {
		dev.Close()
		return nil, withPath(err, opt.Device)
	}

	s := NewPoolSource(pool, format, opt.Timeout)
	s.dev = dev
	s.path = opt.Device
	return s, nil
}

// NewPoolSource builds a Source over an already started pool.
func NewPoolSource(pool *Pool, format Format, timeout uint32) *Source {
	return &Source{
		pool:    pool,
		conv:    NewConverter(format),
		format:  format,
		timeout: timeout,
	}
}

// FrameSize is the size of every frame NextFrame returns.
func (s *Source) FrameSize() int {
	return s.format.RGBSize()
}

// NextFrame blocks for the next filled buffer, converts it and requeues it
// before returning. The frame is valid until the next call. Buffers holding
// less than a whole frame are requeued and skipped.
func (s *Source) NextFrame() ([]byte, error) {
	for {
		var frame []byte
		err := s.pool.Borrow(s.timeout, func(data []byte) error {
			var err error
			frame, err = s.conv.Convert(data)
			return err
		})
		if errors.Is(err, ErrShortFrame) {
			slog.Warn("Dropped incomplete frame", "device", s.path, "error", err)
			continue
		}
		if err != nil {
			return nil, withPath(err, s.path)
		}
		return frame, nil
	}
}

// Close stops streaming, tears the pool down and closes the device.
func (s *Source) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	keep(s.pool.Stop())
	keep(s.pool.Teardown())
	if s.dev != nil {
		keep(s.dev.Close())
	}
	return withPath(firstErr, s.path)
}

// Capture streams frames from opt.Device into processor until it stops.
func Capture(opt *Option, processor Processor) error {
	src, err := NewSource(opt)
	if err != nil {
		return err
	}
	defer src.Close()

	for {
		frame, err := src.NextFrame()
		if err != nil {
			return err
		}

		cont, err := processor(frame)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}

func withPath(err error, path string) error {
	var de *DeviceError
	if err == nil || path == "" || !errors.As(err, &de) || de.Path != "" {
		return err
	}
	return &DeviceError{Kind: de.Kind, Path: path, Err: de.Err}
}
