package buffer

import (
	scanmaster "github.com/IEcheandia/scanmaster-sub004"
	"github.com/IEcheandia/scanmaster-sub004/config"
	"github.com/IEcheandia/scanmaster-sub004/pipe"
)

// Recorder writes one value per trigger into the series of the current
// seam.
type Recorder struct {
	pipe.Base
	Data     *pipe.In[scanmaster.GeoDoublearray]
	Position *pipe.In[scanmaster.GeoDoublearray] // optional
	store    *Store
	params   *config.BufferParams
	state    recorderState
}

// recorderState lives from one seam start to the next.
type recorderState struct {
	handle *Handle
	cursor int // next element to write
}

func (s *recorderState) reset(h *Handle) {
	*s = recorderState{handle: h}
}

// NewRecorder creates a recorder writing into store.
func NewRecorder(name string, store *Store) *Recorder {
	return &Recorder{
		Base:     pipe.NewBase(name, ""),
		Data:     pipe.NewIn[scanmaster.GeoDoublearray]("Data", "", false),
		Position: pipe.NewIn[scanmaster.GeoDoublearray]("Position", "", true),
		store:    store,
		params:   &config.BufferParams{},
	}
}

// SetParameter replaces the parameter set.
func (r *Recorder) SetParameter(p *config.BufferParams) {
	if p == nil {
		p = &config.BufferParams{}
	}
	r.params = p
}

// Arm is part of interface pipe.Filter. At seam start the series of the
// current seam is (re-)initialized to the expected number of triggers.
func (r *Recorder) Arm(state pipe.ArmState) {
	if state != pipe.SeamStart {
		return
	}
	pd := r.ProductData()
	k := Key{
		Slot:       uint(r.params.GetSlot()),
		SeamSeries: uint(max(pd.SeamSeries, 0)),
		Seam:       uint(max(pd.Seam, 0)),
	}
	r.state.reset(r.store.Init(k, pd.NumTrigger))
	r.ResetCounter()
	tracer().Infof("%s: recording into %s", r.Name(), k)
}

// Proceed records the current data value.
func (r *Recorder) Proceed() {
	defer r.PreSignal()
	if r.state.handle == nil {
		tracer().Errorf("%s: %v, dropping sample", r.Name(), ErrNotInitialized)
		return
	}
	data := firstSample(r.Data)
	pos := Sample{
		Value: float64(r.Counter() * r.ProductData().TriggerDelta),
		Rank:  scanmaster.RankMax,
	}
	if r.Position.Connected() {
		pos = firstSample(r.Position)
	}
	if r.state.cursor > 0 {
		lastData, lastPos, _ := r.state.handle.At(r.state.cursor - 1)
		if pos.Value == lastPos.Value && pos.Rank >= lastPos.Rank && data.Rank >= lastData.Rank {
			r.state.cursor--
		}
	}
	if err := r.state.handle.Write(r.state.cursor, data, pos); err != nil {
		tracer().Errorf("%s: %v, dropping sample", r.Name(), err)
		return
	}
	r.state.cursor++
}

// firstSample reads element 0 of an input, or a rank-0 zero if there is
// none.
func firstSample(in *pipe.In[scanmaster.GeoDoublearray]) Sample {
	g, err := in.Read()
	if err != nil {
		tracer().Debugf("%v", err)
		return Sample{}
	}
	v, r := g.Array.First()
	return Sample{Value: v, Rank: r}
}

var _ pipe.Filter = (*Recorder)(nil)
