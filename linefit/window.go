package linefit

import "fmt"

// MinWindowWidth is the narrowest window a line fit is attempted on.
const MinWindowWidth = 5

// Window is the x-range [Start,End) of a profile a fit runs over.
type Window struct {
	Start, End int
}

func (w Window) String() string {
	return fmt.Sprintf("[%d,%d)", w.Start, w.End)
}

// Width of the window in pixels.
func (w Window) Width() int {
	return w.End - w.Start
}

// Possible is true if the window is wide enough for a meaningful fit.
func (w Window) Possible() bool {
	return w.Width() >= MinWindowWidth
}

// Clamp moves both bounds into [0,n-1]. corrected tells whether anything
// had to be moved.
func (w Window) Clamp(n int) (clamped Window, corrected bool) {
	clamped = w
	limit := func(v int) int {
		if v < 0 {
			corrected = true
			return 0
		}
		if v > n-1 {
			corrected = true
			return n - 1
		}
		return v
	}
	clamped.Start = limit(w.Start)
	clamped.End = limit(w.End)
	return clamped, corrected
}

// PercentWindow spans from startPct to endPct percent of a line of n
// pixels. The end is exclusive.
func PercentWindow(n, startPct, endPct int) Window {
	return Window{
		Start: int(0.5 + float64(n)*float64(startPct)/100.0),
		End:   int(0.5 + float64(n)*float64(endPct)/100.0),
	}
}

// InnerPercentWindow is PercentWindow with the end pulled in by one
// pixel, so the pixel at endPct itself is not fitted.
func InnerPercentWindow(n, startPct, endPct int) Window {
	return Window{
		Start: int(0.5 + float64(n)*float64(startPct)/100.0),
		End:   int(0.5 + float64(n)*float64(endPct)/100.0 - 1),
	}
}
