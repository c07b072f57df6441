package capture

import (
	"fmt"
	"log/slog"

	"github.com/blackjack/webcam"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Driver is the streaming half of a capture device. *webcam.Webcam
// implements it: GetFrame dequeues a filled buffer and ReleaseFrame queues
// it back to the driver.
type Driver interface {
	SetBufferCount(count uint32) error
	StartStreaming() error
	WaitForFrame(timeout uint32) error
	GetFrame() ([]byte, uint32, error)
	ReleaseFrame(index uint32) error
	StopStreaming() error
}

// BufferState is the owner of one hardware buffer. The driver owns Queued
// buffers, the application owns Filled and InUse ones.
type BufferState int

const (
	Queued BufferState = iota
	Filled
	InUse
)

func (s BufferState) String() string {
	switch s {
	case Queued:
		return "queued"
	case Filled:
		return "filled"
	case InUse:
		return "in use"
	}
	return fmt.Sprintf("BufferState(%d)", int(s))
}

type slot struct {
	state BufferState
	data  []byte
}

// RawFrame identifies a dequeued buffer. It is only meaningful until the
// buffer is requeued.
type RawFrame struct {
	index uint32
	size  int
}

func (f RawFrame) Index() uint32 { return f.index }
func (f RawFrame) Len() int      { return f.size }

// Pool tracks the hardware buffers of one device through
// Queued -> Filled -> InUse -> Queued.
type Pool struct {
	driver    Driver
	slots     []slot
	streaming bool
	torn      bool
}

// NewPool asks the driver for count buffers. Fewer than two cannot overlap
// capture with conversion.
func NewPool(driver Driver, count int) (*Pool, error) {
	if count < 2 {
		return nil, deviceErr(Buffers, "", nil, fmt.Sprintf("need at least 2 buffers, got %d", count))
	}
	if err := driver.SetBufferCount(uint32(count)); err != nil {
		return nil, deviceErr(Buffers, "", err, "can not set buffer count")
	}
	return &Pool{
		driver: driver,
		slots:  make([]slot, count),
	}, nil
}

// Start maps the buffers, hands all of them to the driver and turns the
// stream on.
func (p *Pool) Start() error {
	if p.torn {
		return deviceErr(Buffers, "", nil, "pool was torn down")
	}
	if p.streaming {
		return nil
	}
	if err := p.driver.StartStreaming(); err != nil {
		return deviceErr(Buffers, "", err, "can not start streaming")
	}
	for i := range p.slots {
		p.slots[i] = slot{state: Queued}
	}
	p.streaming = true
	return nil
}

// Dequeue waits up to timeout seconds for the driver to fill a buffer.
// "No data yet" and transient I/O errors are retried here; a timeout is
// reported as ErrTimeout and anything else as a Stream error.
func (p *Pool) Dequeue(timeout uint32) (RawFrame, error) {
	if !p.streaming {
		return RawFrame{}, deviceErr(Stream, "", nil, "not streaming")
	}

	for {
		err := p.driver.WaitForFrame(timeout)
		var t *webcam.Timeout
		switch {
		case err == nil:
		case errors.As(err, &t):
			return RawFrame{}, ErrTimeout
		case retryable(err):
			continue
		default:
			return RawFrame{}, deviceErr(Stream, "", err, "wait for frame")
		}

		data, index, err := p.driver.GetFrame()
		if err != nil {
			if retryable(err) {
				slog.Debug("Dequeue retried", "error", err)
				continue
			}
			return RawFrame{}, deviceErr(Stream, "", err, "dequeue buffer")
		}

		if int(index) >= len(p.slots) {
			// the driver granted more buffers than requested
			slog.Debug("Buffer pool grown", "index", index, "requested", len(p.slots))
			p.slots = append(p.slots, make([]slot, int(index)+1-len(p.slots))...)
		}
		s := &p.slots[index]
		if s.state != Queued {
			return RawFrame{}, deviceErr(Stream, "", nil,
				fmt.Sprintf("driver returned buffer %d while %s", index, s.state))
		}
		s.state = Filled
		s.data = data
		return RawFrame{index: index, size: len(data)}, nil
	}
}

// Acquire moves a filled buffer to InUse and returns its memory. The slice
// aliases driver memory and must not be used after Requeue.
func (p *Pool) Acquire(f RawFrame) ([]byte, error) {
	if int(f.index) >= len(p.slots) || p.slots[f.index].state != Filled {
		return nil, errors.Errorf("buffer %d is not filled", f.index)
	}
	s := &p.slots[f.index]
	s.state = InUse
	return s.data, nil
}

// Requeue hands an InUse buffer back to the driver. Requeueing any other
// buffer is a caller bug: it panics in debug builds and is ignored otherwise.
func (p *Pool) Requeue(f RawFrame) error {
	if int(f.index) >= len(p.slots) || p.slots[f.index].state != InUse {
		assertf("requeue of buffer %d which is not in use", f.index)
		return ErrNotInUse
	}
	s := &p.slots[f.index]
	if err := p.driver.ReleaseFrame(f.index); err != nil {
		return deviceErr(Stream, "", err, "requeue buffer")
	}
	s.state = Queued
	s.data = nil
	return nil
}

// Borrow dequeues one filled buffer, lends its memory to fn and requeues it
// once fn returns. fn must not keep the slice.
func (p *Pool) Borrow(timeout uint32, fn func(data []byte) error) error {
	f, err := p.Dequeue(timeout)
	if err != nil {
		return err
	}
	data, err := p.Acquire(f)
	if err != nil {
		return err
	}

	fnErr := fn(data)
	if err := p.Requeue(f); err != nil {
		return err
	}
	return fnErr
}

func (p *Pool) InUse() int {
	n := 0
	for _, s := range p.slots {
		if s.state == InUse {
			n++
		}
	}
	return n
}

func (p *Pool) State(index int) BufferState {
	return p.slots[index].state
}

func (p *Pool) Len() int {
	return len(p.slots)
}

// Stop turns the stream off. Calling it again is a no-op.
func (p *Pool) Stop() error {
	if !p.streaming {
		return nil
	}
	p.streaming = false
	if err := p.driver.StopStreaming(); err != nil {
		return deviceErr(Stream, "", err, "can not stop streaming")
	}
	return nil
}

// Teardown drops every buffer mapping. The webcam driver unmaps its buffers
// when streaming stops, so Teardown only forgets the views this pool holds.
// It must follow Stop and is a no-op the second time.
func (p *Pool) Teardown() error {
	if p.streaming {
		return ErrStreaming
	}
	if p.torn {
		return nil
	}
	p.torn = true
	for i := range p.slots {
		p.slots[i].data = nil
	}
	p.slots = nil
	return nil
}

func retryable(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EIO) || errors.Is(err, unix.EINTR)
}
