package buffer

import (
	"fmt"
	"sync"

	scanmaster "github.com/IEcheandia/scanmaster-sub004"
	"github.com/IEcheandia/scanmaster-sub004/pipe"
)

// OneSampleSlots is the number of slots of a OneSampleStore.
const OneSampleSlots = 20

// OneSampleStore relays a single value per slot from one image to the
// next. Every write moves the slot's current value to its previous value;
// reads always return the previous value. This stays correct when image
// numbers jump backwards, as they do when a simulation is rewound.
type OneSampleStore struct {
	mu    sync.Mutex
	slots [OneSampleSlots]oneSample
}

type oneSample struct {
	current, previous Sample
	image             int
}

// NewOneSampleStore creates a store with all slots holding rank-0 zeros.
func NewOneSampleStore() *OneSampleStore {
	return &OneSampleStore{}
}

func checkSlot(slot int) error {
	if slot < 0 || slot >= OneSampleSlots {
		return fmt.Errorf("%w: slot %d, have %d", ErrUnknownKey, slot, OneSampleSlots)
	}
	return nil
}

// Write stores the value recorded for image.
func (s *OneSampleStore) Write(slot, image int, v Sample) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := &s.slots[slot]
	tracer().Debugf("one-sample slot %d: image %d follows image %d", slot, image, sl.image)
	sl.previous = sl.current
	sl.current = v
	sl.image = image
	return nil
}

// Read returns the value recorded before the most recent write.
func (s *OneSampleStore) Read(slot int) (Sample, error) {
	if err := checkSlot(slot); err != nil {
		return Sample{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[slot].previous, nil
}

// Reset sets every slot back to rank-0 zeros.
func (s *OneSampleStore) Reset() {
	s.mu.Lock()
	s.slots = [OneSampleSlots]oneSample{}
	s.mu.Unlock()
}

// --- Filters ---------------------------------------------------------------

// OneSampleRecorder writes the current value into its slot.
type OneSampleRecorder struct {
	pipe.Base
	Data  *pipe.In[scanmaster.GeoDoublearray]
	Slot  int
	store *OneSampleStore
}

// NewOneSampleRecorder creates a recorder writing into slot of store.
func NewOneSampleRecorder(name string, store *OneSampleStore, slot int) *OneSampleRecorder {
	return &OneSampleRecorder{
		Base:  pipe.NewBase(name, ""),
		Data:  pipe.NewIn[scanmaster.GeoDoublearray]("Data", "", false),
		Slot:  slot,
		store: store,
	}
}

// Arm is part of interface pipe.Filter.
func (r *OneSampleRecorder) Arm(state pipe.ArmState) {
	if state == pipe.SeamStart {
		r.ResetCounter()
	}
}

// Proceed records the current value.
func (r *OneSampleRecorder) Proceed() {
	g, err := r.Data.Read()
	if err != nil {
		tracer().Errorf("%s: %v", r.Name(), err)
	}
	v, rank := g.Array.First()
	if err := r.store.Write(r.Slot, g.Context.ImageNumber, Sample{Value: v, Rank: rank}); err != nil {
		tracer().Errorf("%s: %v", r.Name(), err)
	}
	r.PreSignal()
}

// OneSamplePlayer emits the value its slot held before the latest write.
type OneSamplePlayer struct {
	pipe.Base
	Data  *pipe.Pipe[scanmaster.GeoDoublearray]
	Slot  int
	store *OneSampleStore
}

// NewOneSamplePlayer creates a player reading slot of store.
func NewOneSamplePlayer(name string, store *OneSampleStore, slot int) *OneSamplePlayer {
	return &OneSamplePlayer{
		Base:  pipe.NewBase(name, ""),
		Data:  pipe.NewPipe[scanmaster.GeoDoublearray]("Data"),
		Slot:  slot,
		store: store,
	}
}

// Arm is part of interface pipe.Filter.
func (p *OneSamplePlayer) Arm(state pipe.ArmState) {
	if state == pipe.SeamStart {
		p.ResetCounter()
	}
}

// Proceed emits the previous value of the slot, tagged with ctx.
func (p *OneSamplePlayer) Proceed(ctx scanmaster.ImageContext) {
	s, err := p.store.Read(p.Slot)
	if err != nil {
		tracer().Errorf("%s: %v", p.Name(), err)
	}
	p.PreSignal()
	p.Data.Signal(scanmaster.Scalar(ctx, s.Value, s.Rank))
}

var (
	_ pipe.Filter = (*OneSampleRecorder)(nil)
	_ pipe.Filter = (*OneSamplePlayer)(nil)
)
