// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_stub.go) guarded by build tags.

package affinity

import (
	"fmt"

	"github.com/momentics/hioload-xfer/api"
)

// SetAffinity pins the current OS thread to the given logical CPU. The caller
// must hold the thread with runtime.LockOSThread for the pin to stick to the
// goroutine. Returns api.ErrNotSupported where affinity is unavailable.
func SetAffinity(cpuID int) error {
	if cpuID < 0 {
		return fmt.Errorf("affinity: cpu %d: %w", cpuID, api.ErrInvalidArgument)
	}
	return setMaskPlatform([]int{cpuID})
}

// Pin pins the current OS thread to cpuID and returns a function restoring
// the previous CPU set. The thread must stay locked until restore runs.
func Pin(cpuID int) (restore func() error, err error) {
	prev, err := Current()
	if err != nil {
		return nil, err
	}
	if err := SetAffinity(cpuID); err != nil {
		return nil, err
	}
	return func() error { return setMaskPlatform(prev) }, nil
}

// Current reports the CPUs the current OS thread may run on.
func Current() ([]int, error) {
	return currentPlatform()
}
