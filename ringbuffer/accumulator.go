/*
Package ringbuffer post-processes samples recorded around one revolution of
a rotating part.

Samples arrive in encoder order, possibly over more than one revolution,
and possibly with pockets of invalid (rank 0) samples where there is
nothing to measure. At seam end the Accumulator sorts them, bridges the
pockets, cuts the capture down to a single centred revolution, folds the
positions into [0, ticks) and smooths the data with a window that wraps
around from the end of the revolution to its start.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package ringbuffer

import (
	"fmt"
	"math"
	"sort"

	"github.com/npillmayer/schuko/tracing"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// tracer writes to trace with key 'scanmaster.ringbuffer'
func tracer() tracing.Trace {
	return tracing.Select("scanmaster.ringbuffer")
}

// Mode selects the smoothing applied at seam end.
type Mode int

// Modes 10 to 12 trim and bridge pockets before smoothing like 0 to 2.
const (
	ModeMean             Mode = 0
	ModeMedian           Mode = 1
	ModeMedianMean       Mode = 2
	ModePocketMean       Mode = 10
	ModePocketMedian     Mode = 11
	ModePocketMedianMean Mode = 12
)

func (m Mode) String() string {
	switch m {
	case ModeMean:
		return "mean"
	case ModeMedian:
		return "median"
	case ModeMedianMean:
		return "median+mean"
	case ModePocketMean:
		return "pocket/mean"
	case ModePocketMedian:
		return "pocket/median"
	case ModePocketMedianMean:
		return "pocket/median+mean"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Pockets tells whether m handles pockets of invalid samples.
func (m Mode) Pockets() bool {
	return m >= ModePocketMean
}

// Entry is one recorded sample.
type Entry struct {
	Data     float64
	DataRank int
	Pos      float64
	PosRank  int
}

// Accumulator collects the entries of one seam.
type Accumulator struct {
	entries     []Entry
	ticks       int // encoder ticks per revolution
	widthMean   int // degrees
	widthMedian int // degrees
}

// NewAccumulator creates an empty accumulator for a revolution of ticks
// encoder ticks. Window widths are given in degrees.
func NewAccumulator(ticks, widthMean, widthMedian int) *Accumulator {
	if ticks <= 0 {
		ticks = 360
	}
	return &Accumulator{ticks: ticks, widthMean: widthMean, widthMedian: widthMedian}
}

// Reset drops all entries.
func (a *Accumulator) Reset() {
	a.entries = a.entries[:0]
}

// Add appends an entry.
func (a *Accumulator) Add(e Entry) {
	a.entries = append(a.entries, e)
}

// Len is the number of entries.
func (a *Accumulator) Len() int {
	return len(a.entries)
}

// At returns entry i, or a zero entry if i is out of range.
func (a *Accumulator) At(i int) Entry {
	if i < 0 || i >= len(a.entries) {
		return Entry{}
	}
	return a.entries[i]
}

// Entries returns a copy of all entries.
func (a *Accumulator) Entries() []Entry {
	return append([]Entry(nil), a.entries...)
}

// IsSorted tells whether entries are in ascending position order.
func (a *Accumulator) IsSorted() bool {
	return sort.SliceIsSorted(a.entries, a.posLess)
}

// Sort orders entries by position. Entries at equal positions keep their
// recording order.
func (a *Accumulator) Sort() {
	sort.SliceStable(a.entries, a.posLess)
}

func (a *Accumulator) posLess(i, j int) bool {
	return a.entries[i].Pos < a.entries[j].Pos
}

// MinPos is the smallest position, or 0 if empty.
func (a *Accumulator) MinPos() float64 {
	if len(a.entries) == 0 {
		return 0
	}
	return floats.Min(a.positions())
}

// MaxPos is the largest position, or 0 if empty.
func (a *Accumulator) MaxPos() float64 {
	if len(a.entries) == 0 {
		return 0
	}
	return floats.Max(a.positions())
}

func (a *Accumulator) positions() []float64 {
	pos := make([]float64, len(a.entries))
	for i, e := range a.entries {
		pos[i] = e.Pos
	}
	return pos
}

// Is360 tells whether the entries span more than one revolution.
func (a *Accumulator) Is360() bool {
	return a.MaxPos()-a.MinPos() > float64(a.ticks)
}

// StartEnd returns the index range of the centred single revolution of
// sorted entries. If the entries span no more than one revolution, this
// is the whole range.
func (a *Accumulator) StartEnd() (start, end int) {
	n := len(a.entries)
	if n == 0 {
		return 0, -1
	}
	start, end = 0, n-1
	lo, hi := a.MinPos(), a.MaxPos()
	if hi-lo <= float64(a.ticks) {
		return start, end
	}
	startPos := (hi-lo-float64(a.ticks))/2 + lo
	endPos := startPos + float64(a.ticks)
	for i := 0; i < n; i++ {
		if a.entries[i].Pos >= startPos {
			start = i
			break
		}
	}
	for i := n - 1; i >= 0; i-- {
		if a.entries[i].Pos <= endPos {
			end = i
			break
		}
	}
	return start, end
}

// Reduce keeps entries start..end (inclusive). Ranges that are empty or
// reach past the last entry are ignored.
func (a *Accumulator) Reduce(start, end int) {
	if start < 0 || end <= start || end >= len(a.entries) {
		return
	}
	a.entries = append(a.entries[:0], a.entries[start:end+1]...)
}

// FoldModulo rounds positions to whole ticks and folds them into one
// revolution [0, ticks). Positions before the first tick wrap to the end.
func (a *Accumulator) FoldModulo() {
	for i := range a.entries {
		p := round(a.entries[i].Pos) % a.ticks
		if p < 0 {
			p += a.ticks
		}
		a.entries[i].Pos = float64(p)
	}
}

// IsInRange tells whether two positions, given in ticks, lie within
// maxAngle degrees of each other on the circle. A zero maxAngle means
// equal positions.
func (a *Accumulator) IsInRange(pos1, pos2, maxAngle float64) bool {
	if math.Abs(maxAngle) < 1e-6 {
		return math.Abs(pos1-pos2) < 1e-6
	}
	ticksPerDegree := float64(a.ticks) / 360.0
	a1 := normDegrees(pos1 / ticksPerDegree)
	a2 := normDegrees(pos2 / ticksPerDegree)
	return math.Abs(a1-a2) <= maxAngle ||
		math.Abs(a1+360-a2) <= maxAngle ||
		math.Abs(a1-a2-360) <= maxAngle
}

func normDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// LowPass smooths every entry over all entries within the mode's window
// width on the circle.
func (a *Accumulator) LowPass(mode Mode) {
	switch mode {
	case ModeMedianMean:
		a.LowPass(ModeMedian)
		a.LowPass(ModeMean)
		return
	case ModePocketMean, ModePocketMedian, ModePocketMedianMean:
		a.LowPass(mode - ModePocketMean)
		return
	case ModeMean, ModeMedian:
	default:
		tracer().Errorf("ring buffer: unknown low-pass %s", mode)
		return
	}
	width, reduce := float64(a.widthMean), mean
	if mode == ModeMedian {
		width, reduce = float64(a.widthMedian), median
	}
	n := len(a.entries)
	out := make([]Entry, n)
	data := make([]float64, 0, n)
	ranks := make([]float64, 0, n)
	for i, e := range a.entries {
		data, ranks = data[:0], ranks[:0]
		for _, o := range a.entries {
			if a.IsInRange(e.Pos, o.Pos, width) {
				data = append(data, o.Data)
				ranks = append(ranks, float64(o.DataRank))
			}
		}
		out[i] = Entry{
			Data:     reduce(data),
			DataRank: round(reduce(ranks)),
			Pos:      e.Pos,
			PosRank:  e.PosRank,
		}
	}
	a.entries = out
}

// CutPockets removes leading and trailing entries of rank 0 or below.
// It returns false and leaves the entries untouched if no valid range
// remains.
func (a *Accumulator) CutPockets() bool {
	n := len(a.entries)
	first := 0
	for first < n && a.entries[first].DataRank <= 0 {
		first++
	}
	last := n - 1
	for last >= 0 && a.entries[last].DataRank <= 0 {
		last--
	}
	if first >= last {
		return false
	}
	a.entries = append(a.entries[:0], a.entries[first:last+1]...)
	return true
}

// LowPassAndInterpolate smooths each run of valid entries on its own and
// bridges each pocket of invalid entries linearly between the valid
// entries around it. The first and last entries are expected to be valid,
// see CutPockets.
func (a *Accumulator) LowPassAndInterpolate(mode Mode) {
	n := len(a.entries)
	onValid := true
	last := 0
	for i := 1; i < n; i++ {
		valid := a.entries[i].DataRank > 0
		switch {
		case onValid && (!valid || i == n-1):
			if mode == ModePocketMedian || mode == ModePocketMedianMean {
				a.lowPassOnRange(last, i-1, a.widthMedian, median)
			}
			if mode == ModePocketMean || mode == ModePocketMedianMean {
				a.lowPassOnRange(last, i-1, a.widthMean, mean)
			}
			onValid = false
			last = i - 1
		case !onValid && valid:
			a.interpolate(last, i)
			onValid = true
			last = i
		}
	}
}

// lowPassOnRange smooths entries first..last over a sliding window of
// size entries, not looking outside the range.
func (a *Accumulator) lowPassOnRange(first, last, size int, reduce func([]float64) float64) {
	if first < 0 || last >= len(a.entries) || size <= 1 {
		return
	}
	out := a.Entries()
	data := make([]float64, 0, size)
	ranks := make([]float64, 0, size)
	for i := first; i <= last; i++ {
		data, ranks = data[:0], ranks[:0]
		for j := max(i-size/2, first); j <= min(i+size/2, last); j++ {
			data = append(data, a.entries[j].Data)
			ranks = append(ranks, float64(a.entries[j].DataRank))
		}
		out[i].Data = reduce(data)
		out[i].DataRank = round(reduce(ranks))
	}
	a.entries = out
}

// interpolate replaces data and rank of the entries strictly between from
// and to by linear interpolation over position.
func (a *Accumulator) interpolate(from, to int) {
	if from < 0 || to >= len(a.entries) || to-from <= 1 {
		return
	}
	s, e := a.entries[from], a.entries[to]
	dist := e.Pos - s.Pos
	var dataPerTick, rankPerTick float64
	if dist != 0 {
		dataPerTick = (e.Data - s.Data) / dist
		rankPerTick = float64(e.DataRank-s.DataRank) / dist
	}
	for i := from + 1; i < to; i++ {
		d := a.entries[i].Pos - s.Pos
		a.entries[i].Data = s.Data + d*dataPerTick
		a.entries[i].DataRank = round(float64(s.DataRank) + d*rankPerTick)
	}
}

// MeanWithMinRank is the mean of all data of rank minRank or better, or 0.
func (a *Accumulator) MeanWithMinRank(minRank int) float64 {
	data := make([]float64, 0, len(a.entries))
	for _, e := range a.entries {
		if e.DataRank >= minRank {
			data = append(data, e.Data)
		}
	}
	return mean(data)
}

// SetDataForBadRank overwrites the data of entries of rank badRank or
// worse.
func (a *Accumulator) SetDataForBadRank(badRank int, v float64) {
	for i := range a.entries {
		if a.entries[i].DataRank <= badRank {
			a.entries[i].Data = v
		}
	}
}

// Process runs the seam end sequence for mode.
func (a *Accumulator) Process(mode Mode) {
	if !a.Is360() {
		tracer().Infof("ring buffer: %d entries span %g ticks, less than one revolution of %d",
			len(a.entries), a.MaxPos()-a.MinPos(), a.ticks)
	}
	if !a.IsSorted() {
		a.Sort()
	}
	if mode.Pockets() {
		if !a.CutPockets() {
			tracer().Infof("ring buffer: no valid samples between pockets")
		}
		a.LowPassAndInterpolate(mode)
	}
	a.Reduce(a.StartEnd())
	a.FoldModulo()
	if !a.IsSorted() {
		a.Sort()
	}
	a.LowPass(mode)
	tracer().Debugf("ring buffer: %d entries after %s", len(a.entries), mode)
}

// --- Statistics ------------------------------------------------------------

// round rounds half up, for negative values as well.
func round(x float64) int {
	return int(math.Floor(x + 0.5))
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// median averages the two middle values of an even count.
func median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	if n%2 == 0 {
		return (s[n/2-1] + s[n/2]) / 2
	}
	return s[n/2]
}
