//go:build unix

// File: internal/transport/socket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Listener and Conn own raw non-blocking descriptors. Neither is safe for
// concurrent use; each is owned by exactly one task.

package transport

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Listener is a non-blocking listening TCP socket.
type Listener struct {
	fd     int
	addr   *net.TCPAddr
	closed bool
}

// Listen binds a listening socket on address ("host:port"; port 0 picks an
// ephemeral port). SO_REUSEADDR is set so a restarted server can rebind at once.
func Listen(address string) (*Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", address, err)
	}
	family, sa := sockaddrFor(tcpAddr)

	fd, err := newSocket(family)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", tcpAddr, err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("listen %s: %w", tcpAddr, err)
	}
	bound, err := unix.Getsockname(fd)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("getsockname: %w", err)
	}
	return &Listener{fd: fd, addr: tcpAddrOf(bound)}, nil
}

// FD returns the listening descriptor.
func (l *Listener) FD() int { return l.fd }

// Addr returns the bound address, with the real port when 0 was requested.
func (l *Listener) Addr() net.Addr { return l.addr }

// Close closes the listening socket. Calling it again is a no-op.
func (l *Listener) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return unix.Close(l.fd)
}

// Conn is an accepted non-blocking TCP connection.
type Conn struct {
	fd     int
	peer   net.Addr
	closed bool
}

func newConn(fd int, sa unix.Sockaddr) *Conn {
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	return &Conn{fd: fd, peer: tcpAddrOf(sa)}
}

// FD returns the connection descriptor.
func (c *Conn) FD() int { return c.fd }

// RemoteAddr returns the peer address captured at accept time.
func (c *Conn) RemoteAddr() net.Addr { return c.peer }

// Close closes the connection. Calling it again is a no-op.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return unix.Close(c.fd)
}
