package line2d

// Kind classifies a Value.
type Kind int

// Kinds of line query results.
const (
	KindMeasured Kind = iota
	KindVertical
	KindParallel
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindMeasured:
		return "measured"
	case KindVertical:
		return "vertical"
	case KindParallel:
		return "parallel"
	}
	return "invalid"
}

// Value is either a measurement or one of the degenerate cases of a line
// query.
type Value struct {
	kind Kind
	v    float64
}

var (
	invalid  = Value{kind: KindInvalid}
	vertical = Value{kind: KindVertical}
	parallel = Value{kind: KindParallel}
	// the perpendicular of a horizontal line
	steep = Value{kind: KindVertical, v: BigSlope}
)

// Measured wraps a genuine result.
func Measured(v float64) Value {
	return Value{kind: KindMeasured, v: v}
}

// Kind tells which case this value is.
func (v Value) Kind() Kind { return v.kind }

// Ok is true for measured values.
func (v Value) Ok() bool { return v.kind == KindMeasured }

// Float returns the numeric value together with Ok. For degenerate cases
// the number is the sentinel the untagged accessors return: BigSlope for a
// vertical ortho slope, 0 otherwise.
func (v Value) Float() (float64, bool) {
	return v.v, v.kind == KindMeasured
}
