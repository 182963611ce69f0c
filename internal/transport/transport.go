//go:build unix

// Package transport
// Author: momentics <momentics@gmail.com>
//
// Suspendable I/O primitives. Each call parks the task on the descriptor
// first and touches the socket only once the scheduler reports readiness.

package transport

import (
	"errors"
	"fmt"

	"github.com/momentics/hioload-xfer/internal/concurrency"
	"golang.org/x/sys/unix"
)

// Accept waits for a pending connection on ln and accepts it. Wakeups that
// find no connection (the peer gave up, or a signal interrupted the call)
// park the task again instead of failing.
func Accept(t *concurrency.Task, ln *Listener) (*Conn, error) {
	for {
		if err := t.Suspend(concurrency.WaitReadable(ln.fd)); err != nil {
			return nil, err
		}
		nfd, sa, err := accept(ln.fd)
		switch {
		case err == nil:
			return newConn(nfd, sa), nil
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR), errors.Is(err, unix.ECONNABORTED):
			continue
		default:
			return nil, fmt.Errorf("accept: %w", err)
		}
	}
}

// Receive waits until c is readable and performs a single read into buf.
// Zero bytes with a nil error means the peer closed its write side.
func Receive(t *concurrency.Task, c *Conn, buf []byte) (int, error) {
	for {
		if err := t.Suspend(concurrency.WaitReadable(c.fd)); err != nil {
			return 0, err
		}
		n, err := unix.Read(c.fd, buf)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
			continue
		default:
			return 0, fmt.Errorf("recv fd=%d: %w", c.fd, err)
		}
	}
}

// SendAll waits until c is writable and writes every byte of data. When the
// socket buffer fills up mid-way the task parks again and resumes from the
// first unsent byte; a short write never drops data.
func SendAll(t *concurrency.Task, c *Conn, data []byte) error {
	for len(data) > 0 {
		if err := t.Suspend(concurrency.WaitWritable(c.fd)); err != nil {
			return err
		}
		for len(data) > 0 {
			n, err := unix.Write(c.fd, data)
			if err != nil {
				if errors.Is(err, unix.EAGAIN) {
					break
				}
				if errors.Is(err, unix.EINTR) {
					continue
				}
				return fmt.Errorf("send fd=%d: %w", c.fd, err)
			}
			data = data[n:]
		}
	}
	return nil
}
