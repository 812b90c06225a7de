package cp

import (
	"log"

	"github.com/sarchlab/cpfifo/timing"
)

// Builder can build CommandProcessors.
type Builder struct {
	engine       Scheduler
	consumer     Consumer
	sink         InterruptSink
	mirror       BusMirror
	timelineMode TimelineMode
	addressWidth AddressWidth
	logger       *log.Logger
}

// MakeBuilder creates a builder with default parameters: single timeline,
// 26-bit addresses, and the standard logger.
func MakeBuilder() Builder {
	return Builder{
		timelineMode: SingleTimeline,
		addressWidth: AddressWidth26,
		logger:       log.Default(),
	}
}

// WithEngine sets the scheduler that runs deferred interrupts.
func (b Builder) WithEngine(engine Scheduler) Builder {
	b.engine = engine
	return b
}

// WithConsumer sets the consumer that drains the FIFO.
func (b Builder) WithConsumer(consumer Consumer) Builder {
	b.consumer = consumer
	return b
}

// WithInterruptSink sets the platform interrupt controller.
func (b Builder) WithInterruptSink(sink InterruptSink) Builder {
	b.sink = sink
	return b
}

// WithBusMirror sets the platform FIFO shadow registers.
func (b Builder) WithBusMirror(mirror BusMirror) Builder {
	b.mirror = mirror
	return b
}

// WithTimelineMode selects whether the consumer runs on its own timeline.
func (b Builder) WithTimelineMode(mode TimelineMode) Builder {
	b.timelineMode = mode
	return b
}

// WithAddressWidth sets the guest physical address width.
func (b Builder) WithAddressWidth(width AddressWidth) Builder {
	b.addressWidth = width
	return b
}

// WithLogger sets the logger used for invalid register accesses and
// malformed command reports.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates and initializes a CommandProcessor.
func (b Builder) Build(name string) *CommandProcessor {
	b.mustHaveCollaborators()

	c := &CommandProcessor{
		HookableBase: timing.NewHookableBase(),
		name:         name,
		timelineMode: b.timelineMode,
		addressWidth: b.addressWidth,
		logger:       b.logger,
		engine:       b.engine,
		consumer:     b.consumer,
		sink:         b.sink,
		mirror:       b.mirror,
	}

	c.Init()

	return c
}

func (b Builder) mustHaveCollaborators() {
	if b.engine == nil {
		log.Panic("command processor requires an engine")
	}

	if b.sink == nil {
		log.Panic("command processor requires an interrupt sink")
	}

	if b.mirror == nil {
		log.Panic("command processor requires a bus mirror")
	}

	if b.addressWidth != AddressWidth26 && b.addressWidth != AddressWidth29 {
		log.Panicf("unsupported address width %d", b.addressWidth)
	}

	if b.logger == nil {
		log.Panic("command processor requires a logger")
	}
}
