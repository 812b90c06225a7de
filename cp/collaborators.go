package cp

import "github.com/sarchlab/cpfifo/timing"

// SyncReason tells the consumer why the producer needs it to catch up.
type SyncReason int

// Reasons for a consumer sync.
const (
	SyncReasonOther SyncReason = iota
	SyncReasonDistanceWrite
)

func (r SyncReason) String() string {
	switch r {
	case SyncReasonDistanceWrite:
		return "DistanceWrite"
	default:
		return "Other"
	}
}

// Consumer is the side that drains the FIFO.
type Consumer interface {
	// RequestRun wakes the consumer. It is a hint and never blocks.
	RequestRun()

	// RequestSync blocks until the consumer caught up with the producer.
	RequestSync(reason SyncReason)

	// RequestFlush blocks until the consumer drained the FIFO.
	RequestFlush()

	// IsAtBreakpoint reports whether the consumer stopped at the breakpoint.
	IsAtBreakpoint() bool

	// IsDeterministicTimelineMode reports whether the consumer replays the
	// producer deterministically on its own timeline.
	IsDeterministicTimelineMode() bool
}

// InterruptSink is the platform interrupt controller.
type InterruptSink interface {
	SetInterruptLine(cause uint32, asserted bool)
}

// Scheduler runs deferred work on the scheduler timeline.
type Scheduler interface {
	timing.TimeTeller
	timing.EventScheduler

	// ForceExceptionCheck shortens the producer's current time slice.
	ForceExceptionCheck()
}

// FifoShadow is the platform's bus-mastering copy of the FIFO bounds.
type FifoShadow struct {
	WritePointer uint32
	Base         uint32
	End          uint32
}

// BusMirror holds the FIFO shadow registers of the platform interface.
type BusMirror interface {
	FifoShadow() FifoShadow
	SetFifoShadow(s FifoShadow)
}

// TimelineMode tells whether the consumer shares the producer's timeline.
type TimelineMode int

// Timeline modes.
const (
	SingleTimeline TimelineMode = iota
	DualTimeline
)

func (m TimelineMode) String() string {
	if m == DualTimeline {
		return "dual"
	}

	return "single"
}
