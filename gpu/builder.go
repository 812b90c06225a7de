package gpu

import (
	"log"

	"github.com/sarchlab/cpfifo/cp"
	"github.com/sarchlab/cpfifo/timing"
)

// Builder can build Consumers.
type Builder struct {
	engine        timing.Engine
	controller    *cp.CommandProcessor
	timelineMode  cp.TimelineMode
	deterministic bool
}

// MakeBuilder creates a builder with a single timeline.
func MakeBuilder() Builder {
	return Builder{timelineMode: cp.SingleTimeline}
}

// WithEngine sets the engine that ticks the consumer.
func (b Builder) WithEngine(engine timing.Engine) Builder {
	b.engine = engine
	return b
}

// WithController sets the controller to drain. It can also be attached
// later with SetController.
func (b Builder) WithController(controller *cp.CommandProcessor) Builder {
	b.controller = controller
	return b
}

// WithTimelineMode selects whether the consumer runs on its own goroutine.
func (b Builder) WithTimelineMode(mode cp.TimelineMode) Builder {
	b.timelineMode = mode
	return b
}

// WithDeterministicTimeline marks the consumer's timeline as replayed
// deterministically.
func (b Builder) WithDeterministicTimeline(deterministic bool) Builder {
	b.deterministic = deterministic
	return b
}

// Build creates a Consumer.
func (b Builder) Build(name string) *Consumer {
	if b.engine == nil {
		log.Panic("consumer requires an engine")
	}

	c := &Consumer{
		controller:    b.controller,
		timelineMode:  b.timelineMode,
		deterministic: b.deterministic,
		wake:          make(chan struct{}, 1),
		requests:      make(chan chan struct{}),
	}
	c.TickingComponent = timing.NewTickingComponent(name, b.engine, 1, c)

	return c
}
