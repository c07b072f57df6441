package protocol

import (
	"context"
	"io"
	"net"
	"strconv"

	"github.com/pkg/errors"
)

const DefaultPort = 9000

func DefaultListenAddress() string {
	return ":" + strconv.Itoa(DefaultPort)
}

// FrameSize is the payload size of one RGB frame. It is not sent on the
// wire, both ends derive it from the same configuration.
func FrameSize(width, height int) int {
	return width * height * 3
}

// ErrProtocolViolation means the byte stream no longer lines up with frame
// boundaries, e.g. the peer closed in the middle of a frame.
var ErrProtocolViolation = errors.New("protocol violation")

type TransportError struct {
	Op   string
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	msg := e.Op
	if e.Addr != "" {
		msg += " " + e.Addr
	}
	return msg + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func Listen(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, &TransportError{Op: "listen", Addr: addr, Err: err}
	}
	return ln, nil
}

func Dial(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &TransportError{Op: "dial", Addr: addr, Err: err}
	}
	return conn, nil
}

// no header
func WriteFrame(w io.Writer, frame []byte) error {
	n, err := w.Write(frame)
	if err == nil && n < len(frame) {
		err = io.ErrShortWrite
	}
	return err
}

// ReadFrame fills buf completely, looping over short reads. It returns
// io.EOF if the stream ended exactly on a frame boundary and
// ErrProtocolViolation if it ended inside a frame.
func ReadFrame(r io.Reader, buf []byte) error {
	n, err := io.ReadFull(r, buf)
	switch err {
	case nil, io.EOF:
		return err
	case io.ErrUnexpectedEOF:
		return errors.Wrapf(ErrProtocolViolation, "peer closed after %d of %d bytes", n, len(buf))
	}
	return err
}

// Session is one paired connection carrying frames of a fixed size in
// capture order.
type Session struct {
	rw   io.ReadWriter
	addr string
	size int
	seq  uint64
	buf  []byte
}

func NewSession(rw io.ReadWriter, frameSize int) *Session {
	s := &Session{rw: rw, size: frameSize}
	if c, ok := rw.(net.Conn); ok && c.RemoteAddr() != nil {
		s.addr = c.RemoteAddr().String()
	}
	return s
}

func (s *Session) FrameSize() int {
	return s.size
}

func (s *Session) Seq() uint64 {
	return s.seq
}

// Send writes one frame. A frame of the wrong size is refused before
// anything reaches the wire.
func (s *Session) Send(frame []byte) error {
	if len(frame) != s.size {
		return errors.Wrapf(ErrProtocolViolation, "frame of %d bytes on a %d byte session", len(frame), s.size)
	}
	if err := WriteFrame(s.rw, frame); err != nil {
		return &TransportError{Op: "write", Addr: s.addr, Err: err}
	}
	s.seq++
	return nil
}

// Recv reads the next whole frame into a buffer reused across calls.
func (s *Session) Recv() ([]byte, error) {
	if s.buf == nil {
		s.buf = make([]byte, s.size)
	}
	err := ReadFrame(s.rw, s.buf)
	switch {
	case err == nil:
		s.seq++
		return s.buf, nil
	case err == io.EOF, errors.Is(err, ErrProtocolViolation):
		return nil, err
	}
	return nil, &TransportError{Op: "read", Addr: s.addr, Err: err}
}
