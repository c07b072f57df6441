package capture

import (
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func startedPool(t *testing.T, d *fakeDriver) *Pool {
	t.Helper()
	p, err := NewPool(d, len(d.buffers))
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return p
}

func TestNewPoolRejectsSingleBuffer(t *testing.T) {
	for _, n := range []int{-1, 0, 1} {
		_, err := NewPool(newFakeDriver(1, 4), n)
		if !IsKind(err, Buffers) {
			t.Errorf("NewPool(%d): expected Buffers error, got %v", n, err)
		}
	}
}

func TestNewPoolRequestsCount(t *testing.T) {
	d := newFakeDriver(4, 8)
	p, err := NewPool(d, 4)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	if d.count != 4 || p.Len() != 4 {
		t.Errorf("Expected 4 buffers, driver got %d, pool has %d", d.count, p.Len())
	}
}

func TestBufferLifecycle(t *testing.T) {
	d := newFakeDriver(2, 8)
	p := startedPool(t, d)

	f, err := p.Dequeue(1)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if s := p.State(int(f.Index())); s != Filled {
		t.Fatalf("Expected filled, got %s", s)
	}
	if f.Len() != 8 {
		t.Errorf("Expected 8 bytes, got %d", f.Len())
	}

	if _, err := p.Acquire(f); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if s := p.State(int(f.Index())); s != InUse {
		t.Fatalf("Expected in use, got %s", s)
	}
	if _, err := p.Acquire(f); err == nil {
		t.Error("Expected second Acquire to fail")
	}

	if err := p.Requeue(f); err != nil {
		t.Fatalf("Requeue failed: %v", err)
	}
	if s := p.State(int(f.Index())); s != Queued {
		t.Errorf("Expected queued, got %s", s)
	}
	if len(d.released) != 1 || d.released[0] != f.Index() {
		t.Errorf("Expected buffer %d released once, got %v", f.Index(), d.released)
	}
}

func TestBorrowRequeuesOnError(t *testing.T) {
	d := newFakeDriver(2, 8)
	p := startedPool(t, d)
	boom := errors.New("boom")

	err := p.Borrow(1, func(data []byte) error {
		if p.InUse() != 1 {
			t.Errorf("Expected 1 buffer in use, got %d", p.InUse())
		}
		return boom
	})
	if err != boom {
		t.Errorf("Expected boom, got %v", err)
	}
	if p.InUse() != 0 || len(d.released) != 1 {
		t.Errorf("Expected buffer requeued, in use %d, released %v", p.InUse(), d.released)
	}
}

func TestDequeueRetriesTransientErrors(t *testing.T) {
	d := newFakeDriver(2, 8)
	d.waitErrs = []error{unix.EINTR}
	d.getErrs = []error{unix.EAGAIN, unix.EIO}
	p := startedPool(t, d)

	if _, err := p.Dequeue(1); err != nil {
		t.Errorf("Expected transient errors to be retried, got %v", err)
	}
}

func TestDequeueFatalError(t *testing.T) {
	d := newFakeDriver(2, 8)
	d.getErrs = []error{unix.ENODEV}
	p := startedPool(t, d)

	_, err := p.Dequeue(1)
	if !IsKind(err, Stream) {
		t.Fatalf("Expected Stream error, got %v", err)
	}
	if !errors.Is(err, unix.ENODEV) {
		t.Errorf("Expected ENODEV in chain, got %v", err)
	}
}

func TestDequeueTimeout(t *testing.T) {
	d := newFakeDriver(2, 8)
	p := startedPool(t, d)
	d.ready = nil

	_, err := p.Dequeue(1)
	if !errors.Is(err, ErrTimeout) || !IsKind(err, Timeout) {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}
}

func TestDequeueRequiresStreaming(t *testing.T) {
	p, _ := NewPool(newFakeDriver(2, 8), 2)
	if _, err := p.Dequeue(1); !IsKind(err, Stream) {
		t.Errorf("Expected Stream error, got %v", err)
	}
}

func TestDequeueRejectsBufferStillOwned(t *testing.T) {
	d := newFakeDriver(2, 8)
	p := startedPool(t, d)

	f, _ := p.Dequeue(1)
	d.ready = append([]uint32{f.Index()}, d.ready...)
	if _, err := p.Dequeue(1); !IsKind(err, Stream) {
		t.Errorf("Expected Stream error for a buffer dequeued twice, got %v", err)
	}
}

func TestDequeueGrowsForExtraBuffers(t *testing.T) {
	d := newFakeDriver(3, 8)
	p, _ := NewPool(d, 2)
	p.Start()

	for i := 0; i < 3; i++ {
		if err := p.Borrow(1, func([]byte) error { return nil }); err != nil {
			t.Fatalf("Borrow %d failed: %v", i, err)
		}
	}
	if p.Len() != 3 {
		t.Errorf("Expected pool of 3, got %d", p.Len())
	}
}

func TestStopAndTeardownOnce(t *testing.T) {
	d := newFakeDriver(2, 8)
	p := startedPool(t, d)

	if err := p.Teardown(); err != ErrStreaming {
		t.Errorf("Expected ErrStreaming, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := p.Stop(); err != nil {
			t.Fatalf("Stop %d failed: %v", i, err)
		}
		if err := p.Teardown(); err != nil {
			t.Fatalf("Teardown %d failed: %v", i, err)
		}
	}
	if d.stops != 1 {
		t.Errorf("Expected buffers released once, got %d", d.stops)
	}
	if p.Len() != 0 {
		t.Errorf("Expected no buffers after teardown, got %d", p.Len())
	}
	if err := p.Start(); !IsKind(err, Buffers) {
		t.Errorf("Expected Start after teardown to fail, got %v", err)
	}
}
