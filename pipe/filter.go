package pipe

import (
	"fmt"

	"github.com/google/uuid"
)

// ArmState is a seam lifecycle event issued by the host.
type ArmState int

// Seam lifecycle events, in the order the host issues them.
const (
	SeamSeriesStart ArmState = iota
	SeamStart
	SeamIntervalStart
	SeamIntervalChange
	SeamEnd
	SeamSeriesEnd
)

func (a ArmState) String() string {
	switch a {
	case SeamSeriesStart:
		return "SeamSeriesStart"
	case SeamStart:
		return "SeamStart"
	case SeamIntervalStart:
		return "SeamIntervalStart"
	case SeamIntervalChange:
		return "SeamIntervalChange"
	case SeamEnd:
		return "SeamEnd"
	case SeamSeriesEnd:
		return "SeamSeriesEnd"
	}
	return fmt.Sprintf("ArmState(%d)", int(a))
}

// ProductData is the per-seam metadata the host injects before arming.
type ProductData struct {
	SeamSeries         int
	Seam               int
	InspectionVelocity int // µm/s
	TriggerDelta       int // µm between triggers
	NumTrigger         int // expected number of triggers of the seam
}

// Filter is what the host schedules.
type Filter interface {
	Name() string
	ID() uuid.UUID
	SetProductData(ProductData)
	Arm(ArmState)
}

// Base carries identity, product data and the trigger counter common to all
// filters. Filters embed it.
type Base struct {
	name    string
	id      uuid.UUID
	product ProductData
	counter int
	// PreSignalAction is called by a filter right before it signals its
	// outputs for one trigger.
	PreSignalAction func(filter string, counter int)
}

// NewBase creates the common part of a filter. id is the filter type's
// well-known UUID; pass "" for a random one.
func NewBase(name, id string) Base {
	b := Base{name: name}
	if id == "" {
		b.id = uuid.New()
	} else {
		b.id = uuid.MustParse(id)
	}
	return b
}

// Name of the filter instance.
func (b *Base) Name() string { return b.name }

// ID of the filter type.
func (b *Base) ID() uuid.UUID { return b.id }

// SetProductData is part of interface Filter.
func (b *Base) SetProductData(p ProductData) { b.product = p }

// ProductData returns the injected per-seam metadata.
func (b *Base) ProductData() ProductData { return b.product }

// Counter is the number of triggers processed since the last seam start.
func (b *Base) Counter() int { return b.counter }

// ResetCounter rewinds the trigger counter; filters call it at seam start.
func (b *Base) ResetCounter() { b.counter = 0 }

// PreSignal runs the pre-signal hook and advances the trigger counter.
// Filters call it once per trigger, directly before signalling.
func (b *Base) PreSignal() {
	if b.PreSignalAction != nil {
		b.PreSignalAction(b.name, b.counter)
	}
	b.counter++
}

// ArmAll forwards a lifecycle event to a set of filters, after handing them
// the product data.
func ArmAll(state ArmState, product ProductData, filters ...Filter) {
	tracer().Debugf("arm %d filters: %s", len(filters), state)
	for _, f := range filters {
		f.SetProductData(product)
		f.Arm(state)
	}
}
