// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/momentics/hioload-xfer/api"
)

// fakePoller replays scripted readiness batches, one per Wait call.
type fakePoller struct {
	interests map[int]api.Interest
	script    [][]api.Readiness
	adds      []int
	removes   []int
	wakes     atomic.Int32 // Wake may be called from a context goroutine
	closed    bool
}

func newFakePoller(script ...[]api.Readiness) *fakePoller {
	return &fakePoller{interests: make(map[int]api.Interest), script: script}
}

func ready(fds ...int) []api.Readiness {
	out := make([]api.Readiness, len(fds))
	for i, fd := range fds {
		out[i] = api.Readiness{FD: fd, Interest: api.Readable}
	}
	return out
}

func (p *fakePoller) Add(fd int, interest api.Interest) error {
	if _, ok := p.interests[fd]; ok {
		return fmt.Errorf("fake add fd=%d: %w", fd, api.ErrAlreadyRegistered)
	}
	p.interests[fd] = interest
	p.adds = append(p.adds, fd)
	return nil
}

func (p *fakePoller) Remove(fd int) error {
	if _, ok := p.interests[fd]; !ok {
		return fmt.Errorf("fake remove fd=%d: %w", fd, api.ErrNotRegistered)
	}
	delete(p.interests, fd)
	p.removes = append(p.removes, fd)
	return nil
}

func (p *fakePoller) Wait(events []api.Readiness) (int, error) {
	if len(p.script) == 0 {
		return 0, errors.New("fake poller: script exhausted")
	}
	batch := p.script[0]
	p.script = p.script[1:]
	return copy(events, batch), nil
}

func (p *fakePoller) Wake() error {
	p.wakes.Add(1)
	return nil
}

func (p *fakePoller) Close() error {
	p.closed = true
	return nil
}
