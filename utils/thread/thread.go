package thread

import (
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// SetCPUAffinity locks the calling goroutine to its OS thread and pins that
// thread to coreID. The lock is never released, so call it from the
// goroutine that runs the capture loop.
func SetCPUAffinity(coreID int) error {
	if coreID < 0 || coreID >= runtime.NumCPU() {
		return errors.Errorf("cpu %d out of range 0..%d", coreID, runtime.NumCPU()-1)
	}

	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(coreID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errors.Wrapf(err, "can not pin thread to cpu %d", coreID)
	}
	return nil
}
