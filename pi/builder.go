package pi

import "github.com/sarchlab/cpfifo/timing"

// Builder can build ProcessorInterfaces.
type Builder struct {
	timeTeller timing.TimeTeller
	mask       uint32
}

// MakeBuilder creates a builder. All causes are unmasked by default.
func MakeBuilder() Builder {
	return Builder{mask: 0xFFFFFFFF}
}

// WithTimeTeller sets the clock used to stamp hook invocations.
func (b Builder) WithTimeTeller(tt timing.TimeTeller) Builder {
	b.timeTeller = tt
	return b
}

// WithInterruptMask sets the initial interrupt mask.
func (b Builder) WithInterruptMask(mask uint32) Builder {
	b.mask = mask
	return b
}

// Build creates a ProcessorInterface.
func (b Builder) Build(name string) *ProcessorInterface {
	p := &ProcessorInterface{
		HookableBase: timing.NewHookableBase(),
		name:         name,
		timeTeller:   b.timeTeller,
	}
	p.mask.Store(b.mask)

	return p
}
