package buffer

import (
	scanmaster "github.com/IEcheandia/scanmaster-sub004"
	"github.com/IEcheandia/scanmaster-sub004/config"
	"github.com/IEcheandia/scanmaster-sub004/pipe"
)

// bracketNudge separates two bracketing elements at the same position.
const bracketNudge = 0.01

// Player reads back a series recorded for another seam, interpolated at
// the positions of its own triggers.
//
// The read cursor persists between triggers, so queries are expected to be
// non-decreasing in position. A query lying before the element the last
// hit was bracketed from restarts the scan at the beginning of the series.
type Player struct {
	pipe.Base
	Position *pipe.In[scanmaster.GeoDoublearray] // optional
	Data     *pipe.Pipe[scanmaster.GeoDoublearray]
	store    *Store
	params   *config.BufferParams
	state    playerState
}

// playerState lives from one seam start to the next.
type playerState struct {
	ready  bool
	handle *Handle
	cursor int
}

func (s *playerState) reset() {
	*s = playerState{}
}

// NewPlayer creates a player reading from store.
func NewPlayer(name string, store *Store) *Player {
	return &Player{
		Base:     pipe.NewBase(name, ""),
		Position: pipe.NewIn[scanmaster.GeoDoublearray]("Position", "", true),
		Data:     pipe.NewPipe[scanmaster.GeoDoublearray]("Data"),
		store:    store,
		params:   &config.BufferParams{},
	}
}

// SetParameter replaces the parameter set.
func (p *Player) SetParameter(params *config.BufferParams) {
	if params == nil {
		params = &config.BufferParams{}
	}
	p.params = params
}

// Ready tells whether the player found a series at the last seam start.
func (p *Player) Ready() bool {
	return p.state.ready
}

// Arm is part of interface pipe.Filter. At seam start the player locates
// the series of the seam at the configured offsets from the current one.
func (p *Player) Arm(state pipe.ArmState) {
	if state != pipe.SeamStart {
		return
	}
	p.state.reset()
	p.ResetCounter()
	pd := p.ProductData()
	series := pd.SeamSeries + p.params.GetSeamSeriesOffset()
	seam := pd.Seam + p.params.GetSeamOffset()
	if series < 0 || seam < 0 {
		tracer().Infof("%s: no seam at series %d, seam %d", p.Name(), series, seam)
		return
	}
	k := Key{Slot: uint(p.params.GetSlot()), SeamSeries: uint(series), Seam: uint(seam)}
	h, err := p.store.Get(k)
	if err != nil {
		tracer().Infof("%s: %v", p.Name(), err)
		return
	}
	p.state.handle = h
	p.state.ready = true
	tracer().Infof("%s: playing %s, %d elements", p.Name(), k, h.Len())
}

// Proceed emits the interpolated value for the current trigger. ctx is
// the image context the output is tagged with. With a position input
// connected, its analysis result is passed on.
func (p *Player) Proceed(ctx scanmaster.ImageContext) {
	q := float64(p.Counter() * p.ProductData().TriggerDelta)
	analysis := scanmaster.AnalysisOK
	if p.Position.Connected() {
		if g, err := p.Position.Read(); err == nil {
			q, _ = g.Array.First()
			analysis = g.Analysis
		} else {
			tracer().Debugf("%v", err)
			q = 0
		}
	}
	q += float64(p.params.GetDataOffset())
	s, ok := p.lookup(q)
	out := scanmaster.GeoDoublearray{
		Context:  ctx,
		Array:    scanmaster.NewDoublearray(1, s.Value, s.Rank),
		Analysis: analysis,
		Rank:     scanmaster.Valid,
	}
	if !ok {
		out.Array = scanmaster.NewDoublearray(1, 0, scanmaster.RankMin)
		out.Rank = scanmaster.NotPresent
	}
	p.PreSignal()
	p.Data.Signal(out)
}

// lookup interpolates the series at position q.
func (p *Player) lookup(q float64) (Sample, bool) {
	if !p.state.ready {
		return Sample{}, false
	}
	h := p.state.handle
	if p.state.cursor > 0 {
		if _, prev, ok := h.At(p.state.cursor - 1); ok && q <= prev.Value {
			tracer().Debugf("%s: query %g before cursor, rescanning", p.Name(), q)
			p.state.cursor = 0
		}
	}
	i := h.Search(p.state.cursor, q)
	if i < 0 {
		tracer().Debugf("%s: no element at or beyond %g", p.Name(), q)
		return Sample{}, false
	}
	p.state.cursor = i
	hiData, hiPos, _ := h.At(i)
	loData, loPos, _ := h.At(max(i-1, 0))
	return interpolate(q, loData, loPos, hiData, hiPos), true
}

func interpolate(q float64, loData, loPos, hiData, hiPos Sample) Sample {
	upper := hiPos.Value
	if upper == loPos.Value {
		upper += bracketNudge
	}
	frac := (q - loPos.Value) / (upper - loPos.Value)
	s := Sample{Rank: min(loData.Rank, hiData.Rank)}
	switch {
	case frac <= 0:
		s.Value = loData.Value
	case frac >= 1:
		s.Value = hiData.Value
	default:
		s.Value = loData.Value + frac*(hiData.Value-loData.Value)
	}
	return s
}

var _ pipe.Filter = (*Player)(nil)
