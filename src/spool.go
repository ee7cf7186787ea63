package avionics

/*------------------------------------------------------------------
 *
 * Purpose:	Spool protocol shared by the turn-rate differentiator and the
 *		slip-angle filter: a warm-up period during which a filter's
 *		output is not yet trusted, followed by graceful reset back
 *		to spooling the moment input becomes invalid.
 *
 * Description:	Any invalid input resets count to zero and good to false.
 *		The first valid sample after a reset preloads the underlying
 *		filter and reports a zero output. Every valid sample after
 *		that steps the filter; once more than spoolThreshold valid
 *		samples have been seen, the filter is declared good and its
 *		output is reported with a real validity SSM from then on -
 *		including the very cycle where it turns good, since the
 *		filter has already been stepped for that sample by the time
 *		the threshold check runs.
 *
 *------------------------------------------------------------------*/

const spoolThreshold = 10

// SpoolState is the per-filter warm-up tracking state.
type SpoolState struct {
	Good  bool
	Count int
}

// Step runs one cycle of the spool protocol. reset/preload/step are the
// underlying filter's (FilterState or DifferentiatorState) corresponding
// methods, passed as closures so this one implementation serves both.
func (s *SpoolState) Step(validInput bool, sample float64, reset func(), preload func(float64), step func(float64) float64, cfg *LabelConfig) (output float64, ssm SSM) {
	if !validInput {
		s.Good = false
		s.Count = 0
		return 0, BnrFailureWarning
	}

	if !s.Good {
		if s.Count == 0 {
			reset()
			preload(sample)
			output = 0
		} else {
			output = step(sample)
		}
		s.Count++
		if s.Count > spoolThreshold {
			s.Good = true
			return output, CheckBNRValidity(output, cfg)
		}
		return output, BnrFailureWarning
	}

	output = step(sample)
	return output, CheckBNRValidity(output, cfg)
}
