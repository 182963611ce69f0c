// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral constructor for the readiness poller.

package reactor

import "github.com/momentics/hioload-xfer/api"

// DefaultMaxEvents bounds how many notifications a single Wait reports.
const DefaultMaxEvents = 128

// New constructs the platform-specific poller.
func New() (api.Poller, error) {
	return newPoller()
}

// readinessFor folds the observed conditions onto the registered interest.
// Error and hang-up conditions wake the registered side so that the waiting
// task observes the failure on its next syscall.
func readinessFor(readable, writable, failed bool, registered api.Interest) api.Interest {
	var got api.Interest
	if readable {
		got |= api.Readable
	}
	if writable {
		got |= api.Writable
	}
	if failed {
		got |= registered
	}
	got &= registered
	if got == 0 {
		return registered
	}
	return got
}
