//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - Linux epoll implementation.

package reactor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/momentics/hioload-xfer/api"
	"golang.org/x/sys/unix"
)

// epollReactor implements api.Poller using level-triggered Linux epoll.
type epollReactor struct {
	epfd      int                  // epoll file descriptor
	wakefd    int                  // eventfd used by Wake
	interests map[int]api.Interest // registered fds, loop goroutine only
	raw       []unix.EpollEvent

	mu     sync.Mutex // guards wakefd against concurrent Wake/Close
	closed bool
}

func newPoller() (api.Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add waker: %w", err)
	}
	return &epollReactor{
		epfd:      epfd,
		wakefd:    wakefd,
		interests: make(map[int]api.Interest),
	}, nil
}

// Add adds a file descriptor to the epoll watch list.
func (r *epollReactor) Add(fd int, interest api.Interest) error {
	var ev unix.EpollEvent
	if interest&api.Readable != 0 {
		ev.Events |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if interest&api.Writable != 0 {
		ev.Events |= unix.EPOLLOUT
	}
	ev.Fd = int32(fd)

	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		if errors.Is(err, unix.EEXIST) {
			return fmt.Errorf("epoll ctl add fd=%d: %w", fd, api.ErrAlreadyRegistered)
		}
		return fmt.Errorf("epoll ctl add fd=%d: %w", fd, err)
	}
	r.interests[fd] = interest
	return nil
}

// Remove removes a file descriptor from the epoll watch list.
func (r *epollReactor) Remove(fd int) error {
	if _, ok := r.interests[fd]; !ok {
		return fmt.Errorf("epoll ctl del fd=%d: %w", fd, api.ErrNotRegistered)
	}
	delete(r.interests, fd)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		// A descriptor closed behind our back has already left the set.
		if errors.Is(err, unix.EBADF) || errors.Is(err, unix.ENOENT) {
			return nil
		}
		return fmt.Errorf("epoll ctl del fd=%d: %w", fd, err)
	}
	return nil
}

// Wait blocks without timeout until registered descriptors are ready.
func (r *epollReactor) Wait(events []api.Readiness) (int, error) {
	if len(events) == 0 {
		return 0, fmt.Errorf("epoll wait: %w", api.ErrInvalidArgument)
	}
	if cap(r.raw) < len(events) {
		r.raw = make([]unix.EpollEvent, len(events))
	}
	raw := r.raw[:len(events)]

	n, err := unix.EpollWait(r.epfd, raw, -1)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil // interrupted by signal, normal
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}

	out := 0
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		if fd == r.wakefd {
			r.drainWake()
			continue
		}
		registered, ok := r.interests[fd]
		if !ok {
			continue
		}
		flags := raw[i].Events
		events[out] = api.Readiness{
			FD: fd,
			Interest: readinessFor(
				flags&unix.EPOLLIN != 0,
				flags&unix.EPOLLOUT != 0,
				flags&(unix.EPOLLERR|unix.EPOLLHUP|unix.EPOLLRDHUP) != 0,
				registered,
			),
		}
		out++
	}
	return out, nil
}

// Wake interrupts a blocked Wait. Safe for concurrent use.
func (r *epollReactor) Wake() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return api.ErrPollerClosed
	}
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(r.wakefd, buf[:]); err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

func (r *epollReactor) drainWake() {
	var buf [8]byte
	_, _ = unix.Read(r.wakefd, buf[:])
}

// Close releases the epoll and eventfd descriptors.
func (r *epollReactor) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	_ = unix.Close(r.wakefd)
	return unix.Close(r.epfd)
}
