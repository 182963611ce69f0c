// Package api
// Author: momentics
//
// Readiness poller contract: the OS multiplexing facility the cooperative
// scheduler parks its tasks on.

package api

// Interest selects which readiness condition a descriptor is watched for.
type Interest uint8

const (
	// Readable fires when a read (or accept) would not block.
	Readable Interest = 1 << iota
	// Writable fires when a write would not block.
	Writable
)

func (i Interest) String() string {
	switch i {
	case Readable:
		return "readable"
	case Writable:
		return "writable"
	case Readable | Writable:
		return "readable|writable"
	default:
		return "none"
	}
}

// Readiness is a single notification returned by Poller.Wait.
type Readiness struct {
	FD       int      // descriptor that became ready
	Interest Interest // condition observed; error/hang-up maps onto the registered interest
}

// Poller represents a level-triggered readiness multiplexer (epoll, poll).
// Add/Remove/Wait/Close are called from the loop goroutine only; Wake may be
// called from any goroutine.
type Poller interface {
	// Add starts watching fd for the given interest.
	Add(fd int, interest Interest) error

	// Remove stops watching fd.
	Remove(fd int) error

	// Wait blocks until at least one descriptor is ready or Wake is called,
	// and fills events. It returns the number of events written; a wakeup or
	// an interrupted wait yields zero events and a nil error.
	Wait(events []Readiness) (int, error)

	// Wake interrupts a blocked Wait.
	Wake() error

	// Close releases the poller backend.
	Close() error
}
