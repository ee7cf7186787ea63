package avionics

/*------------------------------------------------------------------
 *
 * Purpose:	First-order IIR low-pass filter with preload/spool support.
 *
 * Description:	y[n] = k1*y[n-1] + k2*x[n]. Reset zeros the filter history;
 *		Preload seeds it with a sample so the very first output isn't
 *		a spurious transient from a zeroed history.
 *
 *------------------------------------------------------------------*/

// FilterState is a first-order IIR low-pass filter.
type FilterState struct {
	K1, K2     float64
	prevOutput float64
	Preloaded  bool
}

// NewFilterState returns a filter with the given recurrence coefficients.
func NewFilterState(k1, k2 float64) *FilterState {
	return &FilterState{K1: k1, K2: k2}
}

// Reset zeros the filter history.
func (f *FilterState) Reset() {
	f.prevOutput = 0
	f.Preloaded = false
}

// Preload seeds the filter history with x, avoiding a startup transient.
func (f *FilterState) Preload(x float64) {
	f.prevOutput = x
	f.Preloaded = true
}

// Step runs one recurrence step and returns the new output.
func (f *FilterState) Step(x float64) float64 {
	y := f.K1*f.prevOutput + f.K2*x
	f.prevOutput = y
	return y
}

// Output returns the most recent output without advancing the filter.
func (f *FilterState) Output() float64 {
	return f.prevOutput
}
