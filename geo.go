package scanmaster

// Rank bounds. A rank of RankMin marks an invalid sample, RankMax full
// confidence. Most computations only look at samples with rank > 0.
const (
	RankMin = 0
	RankMax = 255
)

// Array level ranks of geo payloads.
const (
	NotPresent = 0.0
	Limit      = 0.5
	Valid      = 1.0
)

// ResultType is the analysis status propagated alongside a payload.
type ResultType int

// Analysis states passed through unchanged by the filters.
const (
	AnalysisOK ResultType = iota
	AnalysisErrBadLaserline
	AnalysisErrNoBeadOrGap
)

// Doublearray is a ranked sequence of values: Data[i] carries Rank[i].
type Doublearray struct {
	Data []float64
	Rank []int
}

// NewDoublearray creates an array of n elements, all set to (value, rank).
func NewDoublearray(n int, value float64, rank int) Doublearray {
	a := Doublearray{
		Data: make([]float64, n),
		Rank: make([]int, n),
	}
	for i := 0; i < n; i++ {
		a.Data[i] = value
		a.Rank[i] = rank
	}
	return a
}

// Len is the number of elements.
func (a Doublearray) Len() int {
	return len(a.Data)
}

// Append adds one ranked value.
func (a *Doublearray) Append(value float64, rank int) {
	a.Data = append(a.Data, value)
	a.Rank = append(a.Rank, rank)
}

// At returns value and rank of element i. Elements without a rank entry are
// reported with RankMin.
func (a Doublearray) At(i int) (float64, int) {
	if i < 0 || i >= len(a.Data) {
		return 0, RankMin
	}
	if i >= len(a.Rank) {
		tracer().Debugf("doublearray: no rank for element %d of %d", i, len(a.Data))
		return a.Data[i], RankMin
	}
	return a.Data[i], a.Rank[i]
}

// First returns element 0, or (0, RankMin) for an empty array.
func (a Doublearray) First() (float64, int) {
	return a.At(0)
}

// AtOrLast returns element i, falling back to the last element when the
// array is shorter. Used for per-sub-line inputs that may carry a single
// value for all sub-lines.
func (a Doublearray) AtOrLast(i int) (float64, int) {
	if i >= len(a.Data) {
		i = len(a.Data) - 1
	}
	return a.At(i)
}

// ImageContext carries frame information shared by every payload of one
// trigger.
type ImageContext struct {
	Trafo       *Trafo
	HWROI       Pair // origin of the hardware ROI on the sensor
	ImageNumber int
}

// SensorOffset maps image pixels onto sensor pixels: frame origin plus
// hardware ROI origin.
func (c ImageContext) SensorOffset() Pair {
	return c.Trafo.Offset() + c.HWROI
}

// GeoDoublearray is a ranked array tagged with its context.
type GeoDoublearray struct {
	Context  ImageContext
	Array    Doublearray
	Analysis ResultType
	Rank     float64
}

// GeoVecDoublearray is a set of ranked arrays (e.g. oversampled laser
// lines) tagged with their context.
type GeoVecDoublearray struct {
	Context  ImageContext
	Lines    []Doublearray
	Analysis ResultType
	Rank     float64
}

// IsEmpty reports whether there is no sub-line to work on.
func (g GeoVecDoublearray) IsEmpty() bool {
	return len(g.Lines) == 0 || g.Lines[0].Len() == 0
}

// Scalar wraps a single ranked value into a payload with the given context.
func Scalar(ctx ImageContext, value float64, rank int) GeoDoublearray {
	return GeoDoublearray{
		Context:  ctx,
		Array:    NewDoublearray(1, value, rank),
		Analysis: AnalysisOK,
		Rank:     Valid,
	}
}
