package yuvstream

import (
	"context"
	"io"
	"log/slog"
	"net"

	"github.com/abihf/yuvstream/protocol"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// FrameSource yields one complete frame per call. The frame may be reused
// by the next call. *capture.Source implements it.
type FrameSource interface {
	NextFrame() ([]byte, error)
}

// Sender pushes frames to one receiver at a time. When a receiver goes away
// it returns to accepting instead of exiting.
type Sender struct {
	Source    FrameSource
	FrameSize int
}

var errSourceDone = errors.New("source exhausted")

// Serve alternates between listening and serving until ctx is done, the
// source fails, or the source returns io.EOF. Capture, conversion and the
// write of a frame all finish before the next frame is captured.
func (s *Sender) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		slog.Info("Waiting for receiver", "addr", ln.Addr().String())
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &protocol.TransportError{Op: "accept", Addr: ln.Addr().String(), Err: err}
		}

		switch err := s.serve(ctx, conn); err {
		case nil:
		case errSourceDone:
			return nil
		default:
			return err
		}
	}
}

// serve streams to conn until the peer is lost (nil) or the source fails.
func (s *Sender) serve(ctx context.Context, conn net.Conn) error {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	log := slog.With("session", uuid.New().String(), "peer", conn.RemoteAddr().String())
	log.Info("Receiver connected")

	sess := protocol.NewSession(conn, s.FrameSize)
	for ctx.Err() == nil {
		frame, err := s.Source.NextFrame()
		if err == io.EOF {
			log.Info("Source exhausted", "frames", sess.Seq())
			return errSourceDone
		}
		if err != nil {
			return err
		}

		if err := sess.Send(frame); err != nil {
			var te *protocol.TransportError
			if errors.As(err, &te) {
				log.Warn("Receiver lost", "frames", sess.Seq(), "error", err)
				return nil
			}
			return err
		}
		log.Debug("Frame sent", "frame", sess.Seq())
	}
	return nil
}
