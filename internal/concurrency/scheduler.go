// File: internal/concurrency/scheduler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scheduler is the event loop: a FIFO run-queue drained before every poll,
// and a readiness registry holding at most one parked task per descriptor.

package concurrency

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-xfer/api"
	"github.com/sirupsen/logrus"
)

// Errors reported by the scheduler.
var (
	ErrTaskAborted       = api.ErrTaskAborted
	ErrSchedulerClosed   = api.ErrSchedulerClosed
	ErrAlreadyRegistered = api.ErrAlreadyRegistered
	ErrAlreadyRunning    = errors.New("scheduler already running")
	ErrUnknownOp         = errors.New("unknown suspension op")
)

const defaultMaxEvents = 128

type registration struct {
	interest api.Interest
	task     *Task
}

// Scheduler drives tasks on a single goroutine.
type Scheduler struct {
	poller   api.Poller
	log      logrus.FieldLogger
	metrics  Metrics
	runq     *queue.Queue         // *Task, oldest first
	registry map[int]registration // fd -> parked task
	events   []api.Readiness

	nextID   uint64
	stopping bool
	running  bool
	closed   bool
	stats    Stats
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used for task faults and loop lifecycle.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithMaxEvents bounds the number of readiness events consumed per poll.
func WithMaxEvents(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.events = make([]api.Readiness, n)
		}
	}
}

// New builds a scheduler over poller. The scheduler owns the poller and
// closes it in Close.
func New(poller api.Poller, opts ...Option) *Scheduler {
	s := &Scheduler{
		poller:   poller,
		log:      logrus.StandardLogger(),
		metrics:  NopMetrics{},
		runq:     queue.New(),
		registry: make(map[int]registration),
		events:   make([]api.Readiness, defaultMaxEvents),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Spawn creates a task for fn and appends it to the run-queue.
func (s *Scheduler) Spawn(name string, fn TaskFunc) (*Task, error) {
	if s.closed {
		return nil, ErrSchedulerClosed
	}
	s.nextID++
	t := newTask(s, s.nextID, name, fn)
	s.enqueue(t)
	s.stats.Spawned++
	s.metrics.TaskSpawned(name)
	return t, nil
}

// Stop sets the stop flag; Run returns before picking its next task.
func (s *Scheduler) Stop() {
	s.stopping = true
}

// Stopping reports whether the stop flag is set.
func (s *Scheduler) Stopping() bool {
	return s.stopping
}

// IsParked reports whether a task is registered for fd.
func (s *Scheduler) IsParked(fd int) bool {
	_, ok := s.registry[fd]
	return ok
}

// Stats returns a snapshot of queue sizes and lifetime counters.
func (s *Scheduler) Stats() Stats {
	st := s.stats
	st.Queued = s.runq.Length()
	st.Parked = len(s.registry)
	return st
}

// Run executes the loop until the stop flag is set, ctx is done, or no task
// can ever become runnable again (empty run-queue and empty registry).
// A stopped scheduler stays stopped; pending tasks are released by Close.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.closed {
		return ErrSchedulerClosed
	}
	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	defer func() { s.running = false }()

	if ctx.Done() != nil {
		release := context.AfterFunc(ctx, func() { _ = s.poller.Wake() })
		defer release()
	}

	s.log.WithField("queued", s.runq.Length()).Debug("event loop started")
	for !s.stopping {
		if err := ctx.Err(); err != nil {
			s.log.WithError(err).Info("event loop cancelled")
			return err
		}
		if s.runq.Length() > 0 {
			s.step(s.runq.Remove().(*Task))
			continue
		}
		if len(s.registry) == 0 {
			s.log.Debug("event loop has no runnable or parked tasks")
			return nil
		}
		if err := s.poll(); err != nil {
			return err
		}
	}
	s.log.Info("event loop stopped")
	return nil
}

// poll blocks until parked tasks become ready and moves them to the back of
// the run-queue in the order the poller reported them.
func (s *Scheduler) poll() error {
	s.metrics.QueueDepth(s.runq.Length(), len(s.registry))
	n, err := s.poller.Wait(s.events)
	if err != nil {
		return fmt.Errorf("poll: %w", err)
	}
	s.stats.Wakeups++
	s.metrics.PollWakeup(n)
	for _, ev := range s.events[:n] {
		reg, ok := s.registry[ev.FD]
		if !ok {
			continue
		}
		s.unpark(ev.FD)
		s.enqueue(reg.task)
	}
	return nil
}

// step resumes t once and dispatches on what it yields.
func (s *Scheduler) step(t *Task) {
	t.state = stateRunning
	susp, ok := s.resume(t)
	if !ok {
		if t.result != nil {
			s.retire(t, OutcomeFaulted, t.result)
		} else {
			s.retire(t, OutcomeCompleted, nil)
		}
		return
	}

	switch susp.Op {
	case OpWaitReadable, OpWaitWritable:
		if err := s.park(t, susp); err != nil {
			s.retire(t, OutcomeFaulted, err)
		}
	case OpStop:
		s.log.WithFields(logrus.Fields{"task": t.name, "task_id": t.id}).Info("stop requested")
		s.stopping = true
		s.enqueue(t)
	default:
		s.retire(t, OutcomeFaulted, fmt.Errorf("%w: %v", ErrUnknownOp, susp.Op))
	}
}

func (s *Scheduler) resume(t *Task) (susp Suspension, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			// Panics are caught inside the body; this covers the coroutine
			// machinery itself.
			t.result = &PanicError{Value: r}
			ok = false
		}
	}()
	return t.next()
}

func (s *Scheduler) park(t *Task, susp Suspension) error {
	if held, dup := s.registry[susp.FD]; dup {
		return fmt.Errorf("fd=%d %s requested by task %d while held by task %d: %w",
			susp.FD, susp.Op, t.id, held.task.id, ErrAlreadyRegistered)
	}
	interest := susp.Interest()
	if err := s.poller.Add(susp.FD, interest); err != nil {
		return fmt.Errorf("register fd=%d: %w", susp.FD, err)
	}
	s.registry[susp.FD] = registration{interest: interest, task: t}
	t.state = stateParked
	return nil
}

func (s *Scheduler) unpark(fd int) {
	delete(s.registry, fd)
	if err := s.poller.Remove(fd); err != nil {
		s.log.WithError(err).WithField("fd", fd).Warn("unregister failed")
	}
}

func (s *Scheduler) enqueue(t *Task) {
	t.state = stateQueued
	s.runq.Add(t)
}

// retire removes t for good: its coroutine is unwound if still suspended,
// exit hooks run, and the outcome is logged and counted.
func (s *Scheduler) retire(t *Task, outcome Outcome, cause error) {
	t.state = stateRetired
	t.cause = cause
	s.guard(t, "unwind", t.stop)
	hooks := t.onExit
	t.onExit = nil
	for _, fn := range hooks {
		s.guard(t, "exit hook", fn)
	}

	entry := s.log.WithFields(logrus.Fields{"task": t.name, "task_id": t.id})
	switch outcome {
	case OutcomeCompleted:
		s.stats.Completed++
		entry.Debug("task completed")
	case OutcomeDiscarded:
		s.stats.Discarded++
		entry.Debug("task discarded")
	case OutcomeFaulted:
		s.stats.Faulted++
		var pe *PanicError
		if errors.As(cause, &pe) {
			entry.WithField("stack", string(pe.Stack)).Errorf("task panicked: %v", pe.Value)
		} else {
			entry.WithError(cause).Warn("task faulted")
		}
	}
	s.metrics.TaskRetired(t.name, outcome)
}

func (s *Scheduler) guard(t *Task, what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{"task": t.name, "task_id": t.id}).Errorf("%s panicked: %v", what, r)
		}
	}()
	fn()
}

// Close discards every pending task, oldest first within the run-queue and
// then parked tasks by id, and closes the poller. Safe to call twice.
func (s *Scheduler) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	for s.runq.Length() > 0 {
		s.retire(s.runq.Remove().(*Task), OutcomeDiscarded, nil)
	}

	parked := make([]int, 0, len(s.registry))
	for fd := range s.registry {
		parked = append(parked, fd)
	}
	sort.Slice(parked, func(i, j int) bool {
		return s.registry[parked[i]].task.id < s.registry[parked[j]].task.id
	})
	for _, fd := range parked {
		reg := s.registry[fd]
		s.unpark(fd)
		s.retire(reg.task, OutcomeDiscarded, nil)
	}

	return s.poller.Close()
}
