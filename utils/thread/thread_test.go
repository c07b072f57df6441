package thread

import (
	"runtime"
	"testing"
)

func TestSetCPUAffinityRejectsUnknownCore(t *testing.T) {
	for _, core := range []int{-1, runtime.NumCPU()} {
		if err := SetCPUAffinity(core); err == nil {
			t.Errorf("Expected error for cpu %d", core)
		}
	}
}
