package ringbuffer

import (
	scanmaster "github.com/IEcheandia/scanmaster-sub004"
	"github.com/IEcheandia/scanmaster-sub004/buffer"
	"github.com/IEcheandia/scanmaster-sub004/config"
	"github.com/IEcheandia/scanmaster-sub004/pipe"
)

// Well-known input connector ids.
const (
	DataInputID     = "4ECA47C8-2406-459B-81DE-804F3658D6FA"
	PositionInputID = "03B71FB6-B06E-45B7-9AF6-466B879B8A4A"
)

// Recorder collects one value per trigger during a seam. At seam end it
// processes the revolution and copies the result into the series of the
// seam in a buffer.Store, where a buffer.Player can pick it up.
type Recorder struct {
	pipe.Base
	Data     *pipe.In[scanmaster.GeoDoublearray]
	Position *pipe.In[scanmaster.GeoDoublearray] // optional
	store    *buffer.Store
	params   *config.RingBufferParams
	state    recorderState
}

type recorderState struct {
	acc    *Accumulator
	handle *buffer.Handle
}

func (s *recorderState) reset(acc *Accumulator, h *buffer.Handle) {
	*s = recorderState{acc: acc, handle: h}
}

// NewRecorder creates a ring buffer recorder writing into store.
func NewRecorder(name string, store *buffer.Store) *Recorder {
	return &Recorder{
		Base:     pipe.NewBase(name, ""),
		Data:     pipe.NewIn[scanmaster.GeoDoublearray]("data", DataInputID, false),
		Position: pipe.NewIn[scanmaster.GeoDoublearray]("pos", PositionInputID, true),
		store:    store,
		params:   &config.RingBufferParams{},
	}
}

// SetParameter replaces the parameter set.
func (r *Recorder) SetParameter(p *config.RingBufferParams) {
	if p == nil {
		p = &config.RingBufferParams{}
	}
	r.params = p
}

// Arm is part of interface pipe.Filter. Seam start clears the collected
// samples and (re-)initializes the series of the seam; seam end processes
// the samples and stores the result.
func (r *Recorder) Arm(state pipe.ArmState) {
	switch state {
	case pipe.SeamStart:
		pd := r.ProductData()
		k := buffer.Key{
			Slot:       uint(r.params.GetSlot()),
			SeamSeries: uint(max(pd.SeamSeries, 0)),
			Seam:       uint(max(pd.Seam, 0)),
		}
		acc := NewAccumulator(r.params.GetTicks(), r.params.GetWidth(), r.params.GetWidthMedian())
		r.state.reset(acc, r.store.Init(k, pd.NumTrigger))
		r.ResetCounter()
		tracer().Infof("%s: recording revolution into %s", r.Name(), k)
	case pipe.SeamEnd:
		r.flush()
	}
}

func (r *Recorder) flush() {
	if r.state.acc == nil {
		return
	}
	acc := r.state.acc
	acc.Process(Mode(r.params.GetMode()))
	for i := 0; i < acc.Len(); i++ {
		e := acc.At(i)
		err := r.state.handle.Write(i,
			buffer.Sample{Value: e.Data, Rank: e.DataRank},
			buffer.Sample{Value: e.Pos, Rank: e.PosRank})
		if err != nil {
			tracer().Errorf("%s: %v", r.Name(), err)
			r.state.reset(nil, nil)
			return
		}
	}
	tracer().Infof("%s: stored %d entries in %s", r.Name(), acc.Len(), r.state.handle.Key())
	r.state.reset(nil, nil)
}

// Proceed collects the current data value. Samples outside an armed seam
// or beyond the configured number of triggers are dropped.
func (r *Recorder) Proceed() {
	defer r.PreSignal()
	trigger := r.Counter()
	if r.state.acc == nil {
		tracer().Errorf("%s: %v, dropping sample", r.Name(), buffer.ErrNotInitialized)
		return
	}
	if trigger >= r.state.handle.Size() {
		tracer().Errorf("%s: %v, dropping sample %d", r.Name(), buffer.ErrBufferFull, trigger)
		return
	}
	data := first(r.Data)
	pos := buffer.Sample{
		Value: float64(trigger * r.ProductData().TriggerDelta),
		Rank:  scanmaster.RankMax,
	}
	if r.Position.Connected() {
		pos = first(r.Position)
	}
	r.state.acc.Add(Entry{Data: data.Value, DataRank: data.Rank, Pos: pos.Value, PosRank: pos.Rank})
}

func first(in *pipe.In[scanmaster.GeoDoublearray]) buffer.Sample {
	g, err := in.Read()
	if err != nil {
		tracer().Debugf("%v", err)
		return buffer.Sample{}
	}
	v, rank := g.Array.First()
	return buffer.Sample{Value: v, Rank: rank}
}

var _ pipe.Filter = (*Recorder)(nil)
