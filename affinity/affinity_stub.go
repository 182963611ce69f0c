//go:build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package affinity

import (
	"fmt"

	"github.com/momentics/hioload-xfer/api"
)

func setMaskPlatform(cpus []int) error {
	return fmt.Errorf("affinity: %w", api.ErrNotSupported)
}

func currentPlatform() ([]int, error) {
	return nil, fmt.Errorf("affinity: %w", api.ErrNotSupported)
}
