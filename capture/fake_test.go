package capture

import (
	"github.com/blackjack/webcam"
	"github.com/pkg/errors"
)

// fakeDriver fills its buffers in round robin. A released buffer becomes
// ready again at the back of the queue.
type fakeDriver struct {
	buffers  [][]byte
	lengths  map[uint32]int
	ready    []uint32
	waitErrs []error
	getErrs  []error
	onGet    func()

	count     uint32
	streaming bool
	starts    int
	stops     int
	released  []uint32
}

func newFakeDriver(n, size int) *fakeDriver {
	d := &fakeDriver{lengths: map[uint32]int{}}
	for i := 0; i < n; i++ {
		d.buffers = append(d.buffers, make([]byte, size))
	}
	return d
}

func (d *fakeDriver) SetBufferCount(count uint32) error {
	d.count = count
	return nil
}

func (d *fakeDriver) StartStreaming() error {
	if d.streaming {
		return errors.New("already streaming")
	}
	d.streaming = true
	d.starts++
	for i := range d.buffers {
		d.ready = append(d.ready, uint32(i))
	}
	return nil
}

func (d *fakeDriver) WaitForFrame(timeout uint32) error {
	if len(d.waitErrs) > 0 {
		err := d.waitErrs[0]
		d.waitErrs = d.waitErrs[1:]
		return err
	}
	if len(d.ready) == 0 {
		return new(webcam.Timeout)
	}
	return nil
}

func (d *fakeDriver) GetFrame() ([]byte, uint32, error) {
	if len(d.getErrs) > 0 {
		err := d.getErrs[0]
		d.getErrs = d.getErrs[1:]
		return nil, 0, err
	}
	if d.onGet != nil {
		d.onGet()
	}
	index := d.ready[0]
	d.ready = d.ready[1:]
	buf := d.buffers[index]
	if n, ok := d.lengths[index]; ok {
		delete(d.lengths, index)
		return buf[:n], index, nil
	}
	return buf, index, nil
}

func (d *fakeDriver) ReleaseFrame(index uint32) error {
	d.released = append(d.released, index)
	d.ready = append(d.ready, index)
	return nil
}

func (d *fakeDriver) StopStreaming() error {
	if !d.streaming {
		return errors.New("Request to stop streaming when not streaming")
	}
	d.streaming = false
	d.stops++
	return nil
}
