//go:build unix && !linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - poll(2) implementation for the BSDs and macOS.

package reactor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/momentics/hioload-xfer/api"
	"golang.org/x/sys/unix"
)

// pollReactor implements api.Poller on top of poll(2) with a self-pipe waker.
type pollReactor struct {
	wakeR, wakeW int
	interests    map[int]api.Interest
	fds          []unix.PollFd

	mu     sync.Mutex
	closed bool
}

func newPoller() (api.Poller, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(p[0])
			_ = unix.Close(p[1])
			return nil, fmt.Errorf("pipe nonblock: %w", err)
		}
	}
	return &pollReactor{
		wakeR:     p[0],
		wakeW:     p[1],
		interests: make(map[int]api.Interest),
	}, nil
}

func (r *pollReactor) Add(fd int, interest api.Interest) error {
	if _, ok := r.interests[fd]; ok {
		return fmt.Errorf("poll add fd=%d: %w", fd, api.ErrAlreadyRegistered)
	}
	r.interests[fd] = interest
	return nil
}

func (r *pollReactor) Remove(fd int) error {
	if _, ok := r.interests[fd]; !ok {
		return fmt.Errorf("poll remove fd=%d: %w", fd, api.ErrNotRegistered)
	}
	delete(r.interests, fd)
	return nil
}

func (r *pollReactor) Wait(events []api.Readiness) (int, error) {
	if len(events) == 0 {
		return 0, fmt.Errorf("poll wait: %w", api.ErrInvalidArgument)
	}
	r.fds = r.fds[:0]
	r.fds = append(r.fds, unix.PollFd{Fd: int32(r.wakeR), Events: unix.POLLIN})
	for fd, interest := range r.interests {
		var ev int16
		if interest&api.Readable != 0 {
			ev |= unix.POLLIN
		}
		if interest&api.Writable != 0 {
			ev |= unix.POLLOUT
		}
		r.fds = append(r.fds, unix.PollFd{Fd: int32(fd), Events: ev})
	}

	if _, err := unix.Poll(r.fds, -1); err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("poll: %w", err)
	}

	out := 0
	for _, pfd := range r.fds {
		if pfd.Revents == 0 {
			continue
		}
		fd := int(pfd.Fd)
		if fd == r.wakeR {
			r.drainWake()
			continue
		}
		if out == len(events) {
			break
		}
		registered := r.interests[fd]
		events[out] = api.Readiness{
			FD: fd,
			Interest: readinessFor(
				pfd.Revents&unix.POLLIN != 0,
				pfd.Revents&unix.POLLOUT != 0,
				pfd.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0,
				registered,
			),
		}
		out++
	}
	return out, nil
}

func (r *pollReactor) Wake() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return api.ErrPollerClosed
	}
	if _, err := unix.Write(r.wakeW, []byte{1}); err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("pipe write: %w", err)
	}
	return nil
}

func (r *pollReactor) drainWake() {
	var buf [64]byte
	for {
		n, err := unix.Read(r.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (r *pollReactor) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	_ = unix.Close(r.wakeW)
	return unix.Close(r.wakeR)
}
