//go:build unix

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"context"
	"testing"
	"time"

	"github.com/momentics/hioload-xfer/reactor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func pipe(t *testing.T) (r, w int) {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe(p[:]))
	t.Cleanup(func() {
		_ = unix.Close(p[0])
		_ = unix.Close(p[1])
	})
	return p[0], p[1]
}

func TestSchedulerOverRealPoller(t *testing.T) {
	p, err := reactor.New()
	require.NoError(t, err)
	s := New(p, WithLogger(quietLogger()))
	defer s.Close()

	r, w := pipe(t)
	var got []byte
	spawn(t, s, "reader", func(task *Task) error {
		if err := task.Suspend(WaitReadable(r)); err != nil {
			return err
		}
		buf := make([]byte, 16)
		n, err := unix.Read(r, buf)
		got = buf[:n]
		return err
	})
	spawn(t, s, "writer", func(task *Task) error {
		if err := task.Suspend(WaitWritable(w)); err != nil {
			return err
		}
		_, err := unix.Write(w, []byte("ping"))
		return err
	})

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []byte("ping"), got)
	assert.Equal(t, uint64(2), s.Stats().Completed)
}

func TestContextCancelWakesBlockedPoll(t *testing.T) {
	p, err := reactor.New()
	require.NoError(t, err)
	s := New(p, WithLogger(quietLogger()))

	r, _ := pipe(t)
	var parkErr error
	spawn(t, s, "idle", func(task *Task) error {
		parkErr = task.Suspend(WaitReadable(r))
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	require.NoError(t, s.Close())
	assert.ErrorIs(t, parkErr, ErrTaskAborted)
}
