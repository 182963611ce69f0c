//go:build linux

package affinity

import (
	"runtime"
	"testing"

	"github.com/momentics/hioload-xfer/api"
	"github.com/stretchr/testify/assert"
)

func TestSetAffinityPinsThread(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		// The thread is discarded on exit, so the pin never leaks.
		runtime.LockOSThread()

		allowed, err := Current()
		if !assert.NoError(t, err) || !assert.NotEmpty(t, allowed) {
			return
		}

		target := allowed[len(allowed)-1]
		if !assert.NoError(t, SetAffinity(target)) {
			return
		}

		now, err := Current()
		assert.NoError(t, err)
		assert.Equal(t, []int{target}, now)
	}()
	<-done
}

func TestPinRestores(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		before, err := Current()
		if !assert.NoError(t, err) {
			return
		}
		restore, err := Pin(before[0])
		if !assert.NoError(t, err) {
			return
		}
		pinned, _ := Current()
		assert.Equal(t, []int{before[0]}, pinned)

		assert.NoError(t, restore())
		after, _ := Current()
		assert.Equal(t, before, after)
	}()
	<-done
}

func TestSetAffinityRejectsNegative(t *testing.T) {
	assert.ErrorIs(t, SetAffinity(-1), api.ErrInvalidArgument)
}
