package cmd

import (
	"github.com/sarchlab/cpfifo/cp"
	"github.com/sarchlab/cpfifo/monitoring"
	"github.com/sarchlab/cpfifo/timing"
)

// Producer is a synthetic gather pipe. Each tick is one time slice during
// which it commits bursts until the slice is used up, the ring is full, or
// the controller asks for an early exception check.
type Producer struct {
	*timing.TickingComponent

	engine     timing.Engine
	controller *cp.CommandProcessor
	slice      int
	remaining  int
	progress   *monitoring.ProgressBar

	Committed uint64
	Stalls    uint64
	CutShort  uint64
}

// NewProducer creates a producer that commits the given number of bursts,
// at most slice of them per cycle.
func NewProducer(
	name string,
	engine timing.Engine,
	controller *cp.CommandProcessor,
	bursts, slice int,
) *Producer {
	p := &Producer{
		engine:     engine,
		controller: controller,
		slice:      slice,
		remaining:  bursts,
	}
	p.TickingComponent = timing.NewTickingComponent(name, engine, 1, p)

	return p
}

// SetProgressBar reports every committed burst to the bar.
func (p *Producer) SetProgressBar(bar *monitoring.ProgressBar) {
	p.progress = bar
}

// Remaining returns the number of bursts still to be committed.
func (p *Producer) Remaining() int {
	return p.remaining
}

// Tick runs one time slice.
func (p *Producer) Tick() bool {
	for i := 0; i < p.slice && p.remaining > 0; i++ {
		if !p.hasRoom() {
			p.Stalls++
			break
		}

		p.controller.GatherPipeBursted()
		p.remaining--
		p.Committed++

		if p.progress != nil {
			p.progress.IncrementFinished(1)
		}

		if p.engine.TakeExceptionCheck() {
			p.CutShort++
			break
		}
	}

	return p.remaining > 0
}

func (p *Producer) hasRoom() bool {
	f := p.controller.Fifo()
	return f.Distance.Load()+cp.BurstSize <= f.Capacity()
}
