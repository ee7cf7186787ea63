package avionics

/*------------------------------------------------------------------
 *
 * Purpose:	Compose outgoing ARINC-429 words from the AHR group's
 *		received slots: differentiated/filtered new labels (turn
 *		rate, slip angle), straight copies with inherited SSM, and
 *		the three AHRS status words.
 *
 * Description:	Every calculator reads one or two labels via
 *		get_latest_label_data, decides validity from (found, fresh,
 *		not-babbling), and encodes a BNR/BCD word. A failed
 *		precondition is reported by setting the outgoing SSM to
 *		BnrFailureWarning (value 3, i.e. both SSM bits set) rather
 *		than separately OR-ing a failure mask onto a freshly built
 *		word - the two are equivalent since the word is built from
 *		scratch each cycle.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"math"
)

// DerivedWordEngine owns the filter/differentiator/spool state behind the
// turn-rate and slip-angle calculators, plus the label configs for the new
// labels it originates (340, 250, and the Eclipse-narrowed 320/333).
type DerivedWordEngine struct {
	AHR *RxGroup

	turnRateOut    *LabelConfig
	slipAngleOut   *LabelConfig
	magHeadingOut  *LabelConfig
	normalAccelOut *LabelConfig

	turnRateDiff  *DifferentiatorState
	turnRateSpool SpoolState

	slipAngleFilter *FilterState
	slipAngleSpool  SpoolState
}

// NewDerivedWordEngine builds the engine's own output label configs and
// filter/differentiator states from the configured coefficients (spec.md
// section 6's config block: filter k1/k2, differentiator k1/sample-rate/
// limits/deltas).
// eclipseNarrow selects the 12-bit/0.021975-deg narrowed new-mag-heading
// output (strap-selected; see gpio_strap.go) in place of the normal 11-bit/
// 0.04395-deg output.
func NewDerivedWordEngine(ahr *RxGroup, filterK1, filterK2 float64, diffK1, sampleRateHz, lowerLimit, upperLimit, lowerDelta, upperDelta float64, eclipseNarrow bool) (*DerivedWordEngine, error) {
	if ahr == nil {
		return nil, fmt.Errorf("%w: NewDerivedWordEngine: nil AHR group", ErrConfiguration)
	}

	turnRateOut, err := NewLabelConfig(LabelConfig{
		Label: OctalLabelToWire(0o340), MsgType: BNR,
		NumSigBits: 12, Resolution: 0.015625,
		MinTransmitIntervalMs: 1, MaxTransmitIntervalMs: 1000,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: NewDerivedWordEngine: turn rate output: %w", ErrConfiguration, err)
	}

	slipAngleOut, err := NewLabelConfig(LabelConfig{
		Label: OctalLabelToWire(0o250), MsgType: BNR,
		NumSigBits: 11, Resolution: 0.04395,
		MinTransmitIntervalMs: 1, MaxTransmitIntervalMs: 1000,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: NewDerivedWordEngine: slip angle output: %w", ErrConfiguration, err)
	}

	magHeadingBits, magHeadingRes := 11, 0.04395
	if eclipseNarrow {
		magHeadingBits, magHeadingRes = 12, 0.021975
	}
	magHeadingOut, err := NewLabelConfig(LabelConfig{
		Label: OctalLabelToWire(0o320), MsgType: BNR,
		NumSigBits: magHeadingBits, Resolution: magHeadingRes,
		MinTransmitIntervalMs: 1, MaxTransmitIntervalMs: 1000,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: NewDerivedWordEngine: mag heading output: %w", ErrConfiguration, err)
	}

	minAccel, maxAccel := -3.0, 5.0
	normalAccelOut, err := NewLabelConfig(LabelConfig{
		Label: OctalLabelToWire(0o333), MsgType: BNR,
		NumSigBits: 12, Resolution: 0.00049,
		MinValidValue: &minAccel, MaxValidValue: &maxAccel,
		MinTransmitIntervalMs: 1, MaxTransmitIntervalMs: 1000,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: NewDerivedWordEngine: normal accel output: %w", ErrConfiguration, err)
	}

	return &DerivedWordEngine{
		AHR:             ahr,
		turnRateOut:     turnRateOut,
		slipAngleOut:    slipAngleOut,
		magHeadingOut:   magHeadingOut,
		normalAccelOut:  normalAccelOut,
		turnRateDiff:    NewDifferentiatorState(diffK1, sampleRateHz, lowerLimit, upperLimit, lowerDelta, upperDelta),
		slipAngleFilter: NewFilterState(filterK1, filterK2),
	}, nil
}

func (e *DerivedWordEngine) fresh(label uint8) (slot RxSlot, valid bool, err error) {
	wire := OctalLabelToWire(label)
	slot, isFresh, status := e.AHR.GetLatestLabelData(wire)
	if status != GetSuccess {
		return slot, false, nil
	}
	return slot, isFresh && slot.IsNotBabbling, nil
}

// TurnRate differentiates magnetic heading (label 320) into a turn rate,
// subject to the spool protocol. spec.md section 4.5.
func (e *DerivedWordEngine) TurnRate() (uint32, error) {
	slot, valid, err := e.fresh(0o320)
	if err != nil {
		return 0, err
	}

	output, ssm := e.turnRateSpool.Step(valid, slot.EngFloat, e.turnRateDiff.Reset, e.turnRateDiff.Preload, e.turnRateDiff.Step, e.turnRateOut)
	word, _, err := EncodeBNR(TxMsg{Config: e.turnRateOut, SSM: ssm, EngValue: output})
	return word, err
}

// SlipAngle computes arctan2(-aY, filt(aZ)+1) in degrees from labels 332/333,
// filtering aZ and running the result through the spool protocol. aY (332)
// must itself be valid for the cycle to count.
func (e *DerivedWordEngine) SlipAngle() (uint32, error) {
	ySlot, yValid, err := e.fresh(0o332)
	if err != nil {
		return 0, err
	}
	zSlot, zValid, err := e.fresh(0o333)
	if err != nil {
		return 0, err
	}
	valid := yValid && zValid

	step := func(x float64) float64 {
		filteredZ := e.slipAngleFilter.Step(x)
		return math.Atan2(-ySlot.EngFloat, filteredZ+1.0) * 180.0 / math.Pi
	}
	preload := func(x float64) { e.slipAngleFilter.Preload(x) }

	output, ssm := e.slipAngleSpool.Step(valid, zSlot.EngFloat, e.slipAngleFilter.Reset, preload, step, e.slipAngleOut)
	word, _, err := EncodeBNR(TxMsg{Config: e.slipAngleOut, SSM: ssm, EngValue: output})
	return word, err
}

// NewMagHeading republishes label 320 as the Eclipse-narrowed output,
// forcing BnrFailureWarning when 271's MSU-fail bit (bit 11) is set.
func (e *DerivedWordEngine) NewMagHeading() (uint32, error) {
	slot, valid, err := e.fresh(0o320)
	if err != nil {
		return 0, err
	}
	r271, haveR271, err := e.fresh(0o271)
	if err != nil {
		return 0, err
	}

	ssm := slot.SSM
	switch {
	case !valid:
		ssm = BnrFailureWarning
	case haveR271 && r271.RawWord&(1<<11) != 0:
		ssm = BnrFailureWarning
	}

	word, _, err := EncodeBNR(TxMsg{Config: e.magHeadingOut, SSM: ssm, SDI: slot.SDI, EngValue: slot.EngFloat})
	return word, err
}

// copyWithInheritedSSM republishes a label's engineering value verbatim,
// inheriting its SSM, and forcing BnrFailureWarning if it's not currently
// valid to republish. Used by NewPitch and NewRoll.
func (e *DerivedWordEngine) copyWithInheritedSSM(label uint8) (uint32, error) {
	cfg, ok := e.AHR.Config(OctalLabelToWire(label))
	if !ok {
		return 0, fmt.Errorf("%w: copyWithInheritedSSM: label %03o not configured", ErrInternal, label)
	}
	slot, valid, err := e.fresh(label)
	if err != nil {
		return 0, err
	}
	ssm := slot.SSM
	if !valid {
		ssm = BnrFailureWarning
	}
	word, _, err := EncodeBNR(TxMsg{Config: cfg, SSM: ssm, SDI: slot.SDI, EngValue: slot.EngFloat})
	return word, err
}

// NewPitch republishes label 324, inheriting SSM.
func (e *DerivedWordEngine) NewPitch() (uint32, error) { return e.copyWithInheritedSSM(0o324) }

// NewRoll republishes label 325, inheriting SSM.
func (e *DerivedWordEngine) NewRoll() (uint32, error) { return e.copyWithInheritedSSM(0o325) }

// BodyLatAccel republishes label 332 with its sign negated.
func (e *DerivedWordEngine) BodyLatAccel() (uint32, error) {
	cfg, ok := e.AHR.Config(OctalLabelToWire(0o332))
	if !ok {
		return 0, fmt.Errorf("%w: BodyLatAccel: label 332 not configured", ErrInternal)
	}
	slot, valid, err := e.fresh(0o332)
	if err != nil {
		return 0, err
	}
	ssm := slot.SSM
	if !valid {
		ssm = BnrFailureWarning
	}
	word, _, err := EncodeBNR(TxMsg{Config: cfg, SSM: ssm, SDI: slot.SDI, EngValue: -slot.EngFloat})
	return word, err
}

// NormalAccel republishes label 333 offset by +1.0 g, re-validating the
// result against the output's own -3..+5 g range rather than inheriting 333's
// own SSM.
func (e *DerivedWordEngine) NormalAccel() (uint32, error) {
	slot, valid, err := e.fresh(0o333)
	if err != nil {
		return 0, err
	}
	eng := slot.EngFloat + 1.0
	ssm := BnrFailureWarning
	if valid {
		ssm = CheckBNRValidity(eng, e.normalAccelOut)
	}
	word, _, err := EncodeBNR(TxMsg{Config: e.normalAccelOut, SSM: ssm, SDI: slot.SDI, EngValue: eng})
	return word, err
}

// BaroCorrectionValid reports whether label 235 currently holds a "plus"
// reading that passes through unmodified - the gate the scheduler uses
// before running the ~17 Hz ADC pass-through block.
func (e *DerivedWordEngine) BaroCorrectionValid() bool {
	slot, valid, err := e.fresh(0o235)
	return err == nil && valid && slot.SSM == BcdPlus
}

// BaroCorrection passes label 235 through unmodified when its SSM is
// BcdPlus; otherwise it emits BcdNoComputedData with a zeroed data field.
func (e *DerivedWordEngine) BaroCorrection() (uint32, error) {
	cfg, ok := e.AHR.Config(OctalLabelToWire(0o235))
	if !ok {
		return 0, fmt.Errorf("%w: BaroCorrection: label 235 not configured", ErrInternal)
	}
	slot, valid, err := e.fresh(0o235)
	if err != nil {
		return 0, err
	}
	if !valid || slot.SSM != BcdPlus {
		word, _, err := EncodeBCD(TxMsg{Config: cfg, SSM: BcdNoComputedData, EngValue: 0})
		return word, err
	}
	word, _, err := EncodeBCD(TxMsg{Config: cfg, SSM: slot.SSM, SDI: slot.SDI, EngValue: slot.EngFloat})
	return word, err
}

// AHRS status word bit/mask constants, in terms of the final 32-bit word
// (these already include the flipped label in their low byte - e.g. 0x5D is
// octal label 272 bit-reversed - so they're composed directly rather than
// through LabelConfig/EncodeDiscrete).
const (
	ahrsStatus272Base = 0x0000005D
	ahrsStatus274Base = 0x0000003D
	ahrsStatus275Base = 0x000040BD

	ahrsStatusSdiSsmMask = 0x60000300 // SSM (bits 29-30) | SDI (bits 8-9)
	msuFailBit           = 1 << 11
)

// AhrsStatus272 composes the 272 status word: base pattern, 271's SDI/SSM
// bits mirrored in, bit 25 on ADC timeout, bits 10+11 on 271's MSU-fail.
func AhrsStatus272(raw271 uint32, adcTimeout bool) uint32 {
	word := uint32(ahrsStatus272Base) | (raw271 & ahrsStatusSdiSsmMask)
	if adcTimeout {
		word |= 1 << 25
	}
	if raw271&msuFailBit != 0 {
		word |= (1 << 10) | (1 << 11)
	}
	return word
}

// AhrsStatus274 composes the 274 status word: bit 28 on 271's MSU-fail, bit
// 11 on 270's MSU-calibrating, bit 13 on ADC timeout.
func AhrsStatus274(raw271, raw270 uint32, adcTimeout bool) uint32 {
	word := uint32(ahrsStatus274Base)
	if raw271&msuFailBit != 0 {
		word |= 1 << 28
	}
	if raw270&msuFailBit != 0 {
		word |= 1 << 11
	}
	if adcTimeout {
		word |= 1 << 13
	}
	return word
}

// AhrsStatus275 composes the 275 status word: bit 23 on 271's MSU-fail, bit
// 25 iff 323's SSM is BnrNormalOperation.
func AhrsStatus275(raw271 uint32, ssm323 SSM) uint32 {
	word := uint32(ahrsStatus275Base)
	if raw271&msuFailBit != 0 {
		word |= 1 << 23
	}
	if ssm323 == BnrNormalOperation {
		word |= 1 << 25
	}
	return word
}
