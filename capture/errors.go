package capture

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies device failures. All of them end the capture session.
type ErrorKind int

const (
	NotFound ErrorKind = iota + 1
	UnsupportedFormat
	Buffers
	Stream
	Timeout
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "device not found"
	case UnsupportedFormat:
		return "unsupported format"
	case Buffers:
		return "buffer setup failed"
	case Stream:
		return "stream failed"
	case Timeout:
		return "frame timeout"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// DeviceError is returned for every failure on the capture device side.
type DeviceError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *DeviceError) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

func deviceErr(kind ErrorKind, path string, err error, msg string) error {
	if err != nil && msg != "" {
		err = errors.Wrap(err, msg)
	} else if err == nil && msg != "" {
		err = errors.New(msg)
	}
	return &DeviceError{Kind: kind, Path: path, Err: err}
}

// IsKind reports whether err carries a DeviceError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *DeviceError
	return errors.As(err, &de) && de.Kind == kind
}

var (
	// ErrTimeout is returned by Pool.Dequeue when no buffer was filled in time.
	ErrTimeout = &DeviceError{Kind: Timeout}

	// ErrNotInUse is returned when a buffer is requeued without being borrowed.
	ErrNotInUse = errors.New("buffer is not in use")

	// ErrStreaming is returned by Teardown while the pool is still streaming.
	ErrStreaming = errors.New("pool is still streaming")
)
