// File: internal/concurrency/task.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"fmt"
	"iter"
	"runtime/debug"

	"github.com/momentics/hioload-xfer/api"
)

// Op tags a Suspension.
type Op uint8

const (
	// OpWaitReadable parks the task until FD is readable.
	OpWaitReadable Op = iota + 1
	// OpWaitWritable parks the task until FD is writable.
	OpWaitWritable
	// OpStop asks the scheduler to end its loop.
	OpStop
)

func (o Op) String() string {
	switch o {
	case OpWaitReadable:
		return "wait-readable"
	case OpWaitWritable:
		return "wait-writable"
	case OpStop:
		return "stop-loop"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Suspension is what a task hands to the scheduler when it cannot proceed.
// It is consumed immediately and never stored.
type Suspension struct {
	Op Op
	FD int
}

// WaitReadable requests a resume once fd is readable (or has a pending connection).
func WaitReadable(fd int) Suspension { return Suspension{Op: OpWaitReadable, FD: fd} }

// WaitWritable requests a resume once fd accepts writes.
func WaitWritable(fd int) Suspension { return Suspension{Op: OpWaitWritable, FD: fd} }

// StopLoop requests the end of the scheduler loop.
func StopLoop() Suspension { return Suspension{Op: OpStop, FD: -1} }

// Interest maps the suspension onto a poller interest.
func (s Suspension) Interest() api.Interest {
	switch s.Op {
	case OpWaitReadable:
		return api.Readable
	case OpWaitWritable:
		return api.Writable
	default:
		return 0
	}
}

// TaskFunc is the body of a task. A non-nil error is logged as a task fault.
type TaskFunc func(t *Task) error

type taskState uint8

const (
	stateQueued taskState = iota
	stateRunning
	stateParked
	stateRetired
)

// Task is a handler in flight. It lives either in the run-queue or in the
// readiness registry, never in both.
type Task struct {
	id     uint64
	name   string
	sched  *Scheduler
	state  taskState
	next   func() (Suspension, bool)
	stop   func()
	yield  func(Suspension) bool
	result error // value returned by the body
	cause  error // reason recorded at retirement
	onExit []func()
}

// PanicError carries a panic raised inside a task body.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

func newTask(s *Scheduler, id uint64, name string, fn TaskFunc) *Task {
	t := &Task{id: id, name: name, sched: s}
	t.next, t.stop = iter.Pull(t.body(fn))
	return t
}

func (t *Task) body(fn TaskFunc) iter.Seq[Suspension] {
	return func(yield func(Suspension) bool) {
		t.yield = yield
		defer func() {
			if r := recover(); r != nil {
				t.result = &PanicError{Value: r, Stack: debug.Stack()}
			}
		}()
		t.result = fn(t)
	}
}

// ID returns the scheduler-unique task id.
func (t *Task) ID() uint64 { return t.id }

// Name returns the name given at spawn time.
func (t *Task) Name() string { return t.name }

// Scheduler returns the scheduler driving this task.
func (t *Task) Scheduler() *Scheduler { return t.sched }

// Err returns why the task was retired: nil for a clean completion or a
// discard at shutdown, the fault otherwise.
func (t *Task) Err() error { return t.cause }

// Done reports whether the task has been retired.
func (t *Task) Done() bool { return t.state == stateRetired }

// OnExit registers fn to run once when the task is retired for any reason,
// including a discard of a task that never started. Hooks run in
// registration order on the loop goroutine.
func (t *Task) OnExit(fn func()) {
	if t.state == stateRetired {
		fn()
		return
	}
	t.onExit = append(t.onExit, fn)
}

// Suspend hands s to the scheduler and returns once the task is resumed.
// It returns ErrTaskAborted when the scheduler is discarding the task; the
// body should then return promptly. Must be called from the task body.
func (t *Task) Suspend(s Suspension) error {
	if t.yield == nil || !t.yield(s) {
		return ErrTaskAborted
	}
	return nil
}
