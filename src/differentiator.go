package avionics

/*------------------------------------------------------------------
 *
 * Purpose:	Rate-limited differentiator used by turn_rate, with a delta
 *		window that substitutes the previous output instead of
 *		reporting a spike when the input wraps (heading 179 -> -179).
 *
 * Description:	raw = (x[n] - x[n-1]) * sample_rate_hz, clamped to
 *		[lower_limit, upper_limit]. A single-pole smoothing term
 *		(K1) is blended on top of the clamped raw rate so the
 *		reported value isn't as jumpy sample-to-sample as a bare
 *		derivative would be. If the unclamped step exceeds
 *		upper_delta or falls below lower_delta, the sample is
 *		treated as a wrap rather than real motion and prev_output
 *		is reported unchanged.
 *
 *------------------------------------------------------------------*/

// DifferentiatorState is a rate-limited, wrap-guarded derivative estimator.
type DifferentiatorState struct {
	K1            float64
	SampleRateHz  float64
	UpperLimit    float64
	LowerLimit    float64
	UpperDelta    float64
	LowerDelta    float64

	prevInput  float64
	prevOutput float64
	Preloaded  bool
}

// NewDifferentiatorState returns a differentiator with the given parameters.
func NewDifferentiatorState(k1, sampleRateHz, lowerLimit, upperLimit, lowerDelta, upperDelta float64) *DifferentiatorState {
	return &DifferentiatorState{
		K1:           k1,
		SampleRateHz: sampleRateHz,
		LowerLimit:   lowerLimit,
		UpperLimit:   upperLimit,
		LowerDelta:   lowerDelta,
		UpperDelta:   upperDelta,
	}
}

// Reset zeros the differentiator history.
func (d *DifferentiatorState) Reset() {
	d.prevInput = 0
	d.prevOutput = 0
	d.Preloaded = false
}

// Preload seeds prev_input with x and reports a zero rate, avoiding a
// spurious spike on the first sample after a reset.
func (d *DifferentiatorState) Preload(x float64) {
	d.prevInput = x
	d.prevOutput = 0
	d.Preloaded = true
}

// Step runs one cycle and returns the rate-limited, wrap-guarded derivative.
func (d *DifferentiatorState) Step(x float64) float64 {
	delta := x - d.prevInput

	var y float64
	if delta > d.UpperDelta || delta < d.LowerDelta {
		// Treat as a wrap discontinuity, not real motion.
		y = d.prevOutput
	} else {
		raw := delta * d.SampleRateHz
		if raw > d.UpperLimit {
			raw = d.UpperLimit
		} else if raw < d.LowerLimit {
			raw = d.LowerLimit
		}
		y = d.K1*d.prevOutput + (1-d.K1)*raw
	}

	d.prevInput = x
	d.prevOutput = y
	return y
}

// Output returns the most recent output without advancing the differentiator.
func (d *DifferentiatorState) Output() float64 {
	return d.prevOutput
}
