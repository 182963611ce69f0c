// File: internal/concurrency/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

// Outcome classifies how a task left the scheduler.
type Outcome uint8

const (
	// OutcomeCompleted: the body returned nil.
	OutcomeCompleted Outcome = iota
	// OutcomeFaulted: the body returned an error, panicked, or asked for
	// something the scheduler refused.
	OutcomeFaulted
	// OutcomeDiscarded: the scheduler was closed while the task was pending.
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFaulted:
		return "faulted"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Metrics receives scheduler observations. Implementations are called from
// the loop goroutine.
type Metrics interface {
	TaskSpawned(name string)
	TaskRetired(name string, outcome Outcome)
	QueueDepth(queued, parked int)
	PollWakeup(ready int)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) TaskSpawned(string)          {}
func (NopMetrics) TaskRetired(string, Outcome) {}
func (NopMetrics) QueueDepth(int, int)         {}
func (NopMetrics) PollWakeup(int)              {}

// Stats is a point-in-time snapshot of the scheduler.
type Stats struct {
	Queued    int    // tasks in the run-queue
	Parked    int    // tasks waiting in the readiness registry
	Spawned   uint64 // tasks ever spawned
	Completed uint64
	Faulted   uint64
	Discarded uint64
	Wakeups   uint64 // poller waits that returned
}
