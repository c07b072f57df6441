// Package yuvstream streams YUYV camera frames, converted to RGB, to a
// single paired receiver over TCP.
package yuvstream

import (
	"github.com/abihf/yuvstream/capture"
	"github.com/abihf/yuvstream/protocol"
	"github.com/abihf/yuvstream/sink"
	"github.com/pkg/errors"
)

// Process exit statuses, one per failure class.
const (
	ExitOK        = 0
	ExitUsage     = 1
	ExitDevice    = 2
	ExitTransport = 3
	ExitProtocol  = 4
	ExitSink      = 5
)

// ExitStatus maps err to the exit status of its failure class.
func ExitStatus(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		de *capture.DeviceError
		te *protocol.TransportError
		se *sink.Error
	)
	switch {
	case errors.Is(err, protocol.ErrProtocolViolation):
		return ExitProtocol
	case errors.As(err, &de):
		return ExitDevice
	case errors.As(err, &se):
		return ExitSink
	case errors.As(err, &te):
		return ExitTransport
	}
	return ExitUsage
}
