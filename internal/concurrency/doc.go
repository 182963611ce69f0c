// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cooperative, single-goroutine task scheduling for hioload-xfer.
//
// A Task is a stackful coroutine (iter.Pull) that runs until it needs I/O
// readiness, then hands the scheduler a Suspension naming the descriptor and
// the interest it is waiting for. The Scheduler keeps two disjoint homes for
// tasks: a FIFO run-queue of tasks that can run now, and a readiness registry
// of tasks parked on a descriptor. It drains the run-queue first and only
// blocks in the poller when there is nothing else to do, so ready work is
// never starved by I/O waits and an idle loop costs no CPU.
//
// Every method of Scheduler and Task must be called from the goroutine that
// runs Scheduler.Run (task bodies run on that goroutine too). Only the
// poller's Wake, used for context cancellation, crosses goroutines.
package concurrency
