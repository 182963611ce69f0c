//go:build unix

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package reactor

import (
	"testing"
	"time"

	"github.com/momentics/hioload-xfer/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe(p[:]))
	t.Cleanup(func() {
		_ = unix.Close(p[0])
		_ = unix.Close(p[1])
	})
	return p[0], p[1]
}

func TestPollerReportsReadable(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	r, w := newPipe(t)
	require.NoError(t, p.Add(r, api.Readable))

	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)

	events := make([]api.Readiness, DefaultMaxEvents)
	n, err := p.Wait(events)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, r, events[0].FD)
	assert.Equal(t, api.Readable, events[0].Interest)
}

func TestPollerReportsWritable(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	_, w := newPipe(t)
	require.NoError(t, p.Add(w, api.Writable))

	events := make([]api.Readiness, 4)
	n, err := p.Wait(events)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, w, events[0].FD)
	assert.Equal(t, api.Writable, events[0].Interest)
}

func TestPollerRejectsDuplicateAdd(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	r, _ := newPipe(t)
	require.NoError(t, p.Add(r, api.Readable))
	assert.ErrorIs(t, p.Add(r, api.Readable), api.ErrAlreadyRegistered)

	require.NoError(t, p.Remove(r))
	assert.ErrorIs(t, p.Remove(r), api.ErrNotRegistered)
	require.NoError(t, p.Add(r, api.Readable), "descriptor can be registered again after removal")
}

func TestPollerRemovedDescriptorIsSilent(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	r, w := newPipe(t)
	require.NoError(t, p.Add(r, api.Readable))
	require.NoError(t, p.Remove(r))
	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)

	done := make(chan int, 1)
	go func() {
		events := make([]api.Readiness, 4)
		n, _ := p.Wait(events)
		done <- n
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, p.Wake())

	select {
	case n := <-done:
		assert.Zero(t, n)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after Wake")
	}
}

func TestPollerWakeAfterClose(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Wake(), api.ErrPollerClosed)
}

func TestReadinessFor(t *testing.T) {
	assert.Equal(t, api.Readable, readinessFor(true, false, false, api.Readable))
	assert.Equal(t, api.Writable, readinessFor(false, false, true, api.Writable))
	assert.Equal(t, api.Readable, readinessFor(false, true, false, api.Readable))
}
