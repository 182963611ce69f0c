//go:build unix

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/momentics/hioload-xfer/internal/concurrency"
	"github.com/momentics/hioload-xfer/reactor"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduler(t *testing.T) *concurrency.Scheduler {
	t.Helper()
	p, err := reactor.New()
	require.NoError(t, err)
	l := logrus.New()
	l.SetOutput(io.Discard)
	s := concurrency.New(p, concurrency.WithLogger(l))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func listen(t *testing.T) *Listener {
	t.Helper()
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return ln
}

func TestListenReportsEphemeralPort(t *testing.T) {
	ln := listen(t)
	addr, ok := ln.Addr().(*net.TCPAddr)
	require.True(t, ok)
	assert.NotZero(t, addr.Port)
	assert.True(t, addr.IP.Equal(net.IPv4(127, 0, 0, 1)))

	require.NoError(t, ln.Close())
	require.NoError(t, ln.Close())
}

func TestListenRejectsBadAddress(t *testing.T) {
	_, err := Listen("not a host:port")
	assert.Error(t, err)
}

// TestEchoLargePayload accepts one connection, reads the request until EOF,
// and answers with a payload far larger than the socket buffers so that
// SendAll has to park on writable several times.
func TestEchoLargePayload(t *testing.T) {
	s := newScheduler(t)
	ln := listen(t)

	payload := make([]byte, 8<<20)
	rand.New(rand.NewSource(7)).Read(payload)

	var request []byte
	var peer net.Addr
	_, err := s.Spawn("accept-once", func(task *concurrency.Task) error {
		conn, err := Accept(task, ln)
		if err != nil {
			return err
		}
		defer conn.Close()
		peer = conn.RemoteAddr()

		buf := make([]byte, 3)
		for {
			n, err := Receive(task, conn, buf)
			if err != nil {
				return err
			}
			if n == 0 {
				break
			}
			request = append(request, buf[:n]...)
		}
		return SendAll(task, conn, payload)
	})
	require.NoError(t, err)

	type result struct {
		data []byte
		err  error
		addr net.Addr
	}
	resc := make(chan result, 1)
	go func() {
		c, err := net.DialTimeout("tcp", ln.Addr().String(), 5*time.Second)
		if err != nil {
			resc <- result{err: err}
			return
		}
		defer c.Close()
		if _, err := c.Write([]byte("hello transport")); err != nil {
			resc <- result{err: err}
			return
		}
		_ = c.(*net.TCPConn).CloseWrite()
		data, err := io.ReadAll(c)
		resc <- result{data: data, err: err, addr: c.LocalAddr()}
	}()

	require.NoError(t, s.Run(context.Background()))
	res := <-resc
	require.NoError(t, res.err)
	assert.Equal(t, "hello transport", string(request))
	assert.True(t, bytes.Equal(payload, res.data), "payload mismatch: got %d bytes", len(res.data))
	assert.Equal(t, res.addr.String(), peer.String())
	assert.Equal(t, uint64(1), s.Stats().Completed)
}

func TestReceiveReportsPeerClose(t *testing.T) {
	s := newScheduler(t)
	ln := listen(t)

	got := -1
	_, err := s.Spawn("accept-once", func(task *concurrency.Task) error {
		conn, err := Accept(task, ln)
		if err != nil {
			return err
		}
		defer conn.Close()
		got, err = Receive(task, conn, make([]byte, 64))
		return err
	})
	require.NoError(t, err)

	go func() {
		c, err := net.Dial("tcp", ln.Addr().String())
		if err == nil {
			_ = c.Close()
		}
	}()

	require.NoError(t, s.Run(context.Background()))
	assert.Zero(t, got)
}

func TestConnCloseIsIdempotent(t *testing.T) {
	s := newScheduler(t)
	ln := listen(t)

	var conn *Conn
	_, err := s.Spawn("accept-once", func(task *concurrency.Task) error {
		var err error
		conn, err = Accept(task, ln)
		return err
	})
	require.NoError(t, err)

	go func() {
		c, err := net.Dial("tcp", ln.Addr().String())
		if err == nil {
			time.Sleep(50 * time.Millisecond)
			_ = c.Close()
		}
	}()

	require.NoError(t, s.Run(context.Background()))
	require.NotNil(t, conn)
	assert.Positive(t, conn.FD())
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
}
