package yuvstream

import (
	"context"
	"io"
	"log/slog"
	"net"

	"github.com/abihf/yuvstream/protocol"
	"github.com/pkg/errors"
)

// Sink stores a retained frame under its sequence number, starting at 1.
type Sink interface {
	WriteFrame(seq int, rgb []byte) error
}

// Receiver pulls fixed-size frames, drops the first Warmup of them while
// exposure settles and hands the next Total frames to Sink.
type Receiver struct {
	FrameSize int
	Warmup    int
	Total     int
	Sink      Sink
}

// Receive reads from conn until Total frames are stored and returns how
// many were stored. Read errors are not retried.
func (r *Receiver) Receive(ctx context.Context, conn io.ReadWriter) (int, error) {
	if c, ok := conn.(net.Conn); ok {
		stop := context.AfterFunc(ctx, func() { c.Close() })
		defer stop()
	}

	sess := protocol.NewSession(conn, r.FrameSize)
	stored := 0
	for stored < r.Total {
		frame, err := sess.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return stored, ctx.Err()
			}
			if err == io.EOF {
				return stored, &protocol.TransportError{
					Op:  "read",
					Err: errors.Wrapf(io.EOF, "sender closed after %d frames", sess.Seq()),
				}
			}
			return stored, err
		}

		if sess.Seq() <= uint64(r.Warmup) {
			slog.Debug("Discarded warm-up frame", "frame", sess.Seq(), "warmup", r.Warmup)
			continue
		}

		if err := r.Sink.WriteFrame(stored+1, frame); err != nil {
			return stored, err
		}
		stored++
		slog.Info("Frame stored", "seq", stored, "received", sess.Seq())
	}
	return stored, nil
}
