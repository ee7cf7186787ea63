package avionics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ahrGroup(t *testing.T, clock Clock) *RxGroup {
	t.Helper()
	cfgs := []LabelConfig{
		{Label: OctalLabelToWire(0o320), MsgType: BNR, NumSigBits: 11, Resolution: 1, MaxTransmitIntervalMs: 100000},
		{Label: OctalLabelToWire(0o332), MsgType: BNR, NumSigBits: 14, Resolution: 1, MaxTransmitIntervalMs: 100000},
		{Label: OctalLabelToWire(0o333), MsgType: BNR, NumSigBits: 14, Resolution: 1, MaxTransmitIntervalMs: 100000},
		{Label: OctalLabelToWire(0o271), MsgType: Discrete, NumDiscreteBits: 19, MaxTransmitIntervalMs: 100000},
		{Label: OctalLabelToWire(0o270), MsgType: Discrete, NumDiscreteBits: 19, MaxTransmitIntervalMs: 100000},
		{Label: OctalLabelToWire(0o323), MsgType: BNR, NumSigBits: 10, Resolution: 1, MaxTransmitIntervalMs: 100000},
		{Label: OctalLabelToWire(0o235), MsgType: BCD, NumSigDigits: 5, Resolution: 0.001, MaxTransmitIntervalMs: 100000},
		{Label: OctalLabelToWire(0o324), MsgType: BNR, NumSigBits: 10, Resolution: 1, MaxTransmitIntervalMs: 100000},
		{Label: OctalLabelToWire(0o325), MsgType: BNR, NumSigBits: 10, Resolution: 1, MaxTransmitIntervalMs: 100000},
	}
	g, err := NewRxGroup(clock, 1000, cfgs)
	require.NoError(t, err)
	return g
}

func bnrWordN(label ArincLabel, raw int32, ssm SSM, numSigBits int) uint32 {
	shift := uint(28 - numSigBits)
	mask := uint32(1)<<uint(numSigBits+1) - 1
	return (uint32(raw)&mask)<<shift | uint32(label) | uint32(ssm)<<ssmBitOffset
}

func newTestEngine(t *testing.T, ahr *RxGroup, diffK1, sampleRateHz, limit, delta float64) *DerivedWordEngine {
	t.Helper()
	e, err := NewDerivedWordEngine(ahr, 0.7777678, 0.2222322, diffK1, sampleRateHz, -limit, limit, -delta, delta, false)
	require.NoError(t, err)
	return e
}

// TestTurnRateConverges exercises scenario (d): a steadily changing heading
// produces a turn rate that reaches a steady value once the spool protocol's
// 11-sample warm-up completes, reporting BnrNormalOperation from then on.
func TestTurnRateConverges(t *testing.T) {
	clock := NewFakeClock(0)
	ahr := ahrGroup(t, clock)
	// K1=0 so the differentiator reports the clamped raw rate directly.
	e := newTestEngine(t, ahr, 0.0, 10, 1000, 1000)

	turnRateCfg, err := NewLabelConfig(LabelConfig{Label: OctalLabelToWire(0o340), MsgType: BNR, NumSigBits: 12, Resolution: 0.015625})
	require.NoError(t, err)

	heading := int32(0)
	var word uint32
	for i := 1; i <= 11; i++ {
		heading++ // 1 deg per 100ms sample -> 10.0 deg/s at sampleRateHz=10.
		clock.Set(uint32(i * 100))
		_, err := ahr.ProcessReceived(bnrWordN(OctalLabelToWire(0o320), heading, BnrNormalOperation, 11))
		require.NoError(t, err)
		word, err = e.TurnRate()
		require.NoError(t, err)
	}

	fields, err := DecodeBNR(turnRateCfg, word)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, fields.EngFloat, 1e-6)
	assert.Equal(t, BnrNormalOperation, fields.SSM)
}

func TestTurnRateInvalidInputReportsFailure(t *testing.T) {
	clock := NewFakeClock(0)
	ahr := ahrGroup(t, clock)
	e := newTestEngine(t, ahr, 0.99, 50, 180, 360)

	// 320 never received: fresh() reports invalid, spool reports failure.
	word, err := e.TurnRate()
	require.NoError(t, err)
	assert.Equal(t, BnrFailureWarning, SSM((word>>ssmBitOffset)&0x3))
}

// TestNewMagHeadingForcesFailureOnMsuFail exercises the 271 MSU-fail gate:
// even a valid, fresh 320 gets republished as BnrFailureWarning once 271's
// bit 11 is set.
func TestNewMagHeadingForcesFailureOnMsuFail(t *testing.T) {
	clock := NewFakeClock(0)
	ahr := ahrGroup(t, clock)
	e := newTestEngine(t, ahr, 0.99, 50, 180, 360)

	_, err := ahr.ProcessReceived(bnrWordN(OctalLabelToWire(0o320), 100, BnrNormalOperation, 11))
	require.NoError(t, err)

	word271 := uint32(OctalLabelToWire(0o271)) | (1 << 11)
	_, err = ahr.ProcessReceived(word271)
	require.NoError(t, err)

	word, err := e.NewMagHeading()
	require.NoError(t, err)
	assert.Equal(t, BnrFailureWarning, SSM((word>>ssmBitOffset)&0x3))
}

func TestNewMagHeadingPassesThroughWhenClean(t *testing.T) {
	clock := NewFakeClock(0)
	ahr := ahrGroup(t, clock)
	e := newTestEngine(t, ahr, 0.99, 50, 180, 360)

	_, err := ahr.ProcessReceived(bnrWordN(OctalLabelToWire(0o320), 100, BnrNormalOperation, 11))
	require.NoError(t, err)

	word, err := e.NewMagHeading()
	require.NoError(t, err)
	assert.Equal(t, BnrNormalOperation, SSM((word>>ssmBitOffset)&0x3))
}

func TestBodyLatAccelNegatesSign(t *testing.T) {
	clock := NewFakeClock(0)
	ahr := ahrGroup(t, clock)
	e := newTestEngine(t, ahr, 0.99, 50, 180, 360)

	_, err := ahr.ProcessReceived(bnrWordN(OctalLabelToWire(0o332), 7, BnrNormalOperation, 14))
	require.NoError(t, err)

	word, err := e.BodyLatAccel()
	require.NoError(t, err)

	cfg, ok := ahr.Config(OctalLabelToWire(0o332))
	require.True(t, ok)
	fields, err := DecodeBNR(cfg, word)
	require.NoError(t, err)
	assert.EqualValues(t, -7, fields.EngInt)
}

func TestNormalAccelOffsetsAndRevalidates(t *testing.T) {
	clock := NewFakeClock(0)
	ahr := ahrGroup(t, clock)
	e := newTestEngine(t, ahr, 0.99, 50, 180, 360)

	// Raw 333 of 10 is within its own range, but +1.0 offset (11) is outside
	// the output's re-validated -3..+5 range.
	_, err := ahr.ProcessReceived(bnrWordN(OctalLabelToWire(0o333), 10, BnrNormalOperation, 14))
	require.NoError(t, err)

	word, err := e.NormalAccel()
	require.NoError(t, err)
	assert.Equal(t, BnrFailureWarning, SSM((word>>ssmBitOffset)&0x3))
}

func TestBaroCorrectionPassesThroughOnPlus(t *testing.T) {
	clock := NewFakeClock(0)
	ahr := ahrGroup(t, clock)
	e := newTestEngine(t, ahr, 0.99, 50, 180, 360)

	cfg, ok := ahr.Config(OctalLabelToWire(0o235))
	require.True(t, ok)
	word235, _, err := EncodeBCD(TxMsg{Config: cfg, SSM: BcdPlus, EngValue: 29.921})
	require.NoError(t, err)
	_, err = ahr.ProcessReceived(word235)
	require.NoError(t, err)

	assert.True(t, e.BaroCorrectionValid())

	word, err := e.BaroCorrection()
	require.NoError(t, err)
	fields, err := DecodeBCD(cfg, word)
	require.NoError(t, err)
	assert.InDelta(t, 29.921, fields.EngFloat, 1e-9)
}

func TestBaroCorrectionFallsBackOnMinus(t *testing.T) {
	clock := NewFakeClock(0)
	ahr := ahrGroup(t, clock)
	e := newTestEngine(t, ahr, 0.99, 50, 180, 360)

	cfg, ok := ahr.Config(OctalLabelToWire(0o235))
	require.True(t, ok)
	word235, _, err := EncodeBCD(TxMsg{Config: cfg, SSM: BcdMinus, EngValue: 1.0})
	require.NoError(t, err)
	_, err = ahr.ProcessReceived(word235)
	require.NoError(t, err)

	assert.False(t, e.BaroCorrectionValid())

	word, err := e.BaroCorrection()
	require.NoError(t, err)
	fields, err := DecodeBCD(cfg, word)
	require.NoError(t, err)
	assert.Equal(t, BcdNoComputedData, fields.SSM)
	assert.Equal(t, 0.0, fields.EngFloat)
}

// TestAhrsStatus272Composition is testable property 9: 272's word is the
// base pattern with 271's SDI/SSM bits mirrored in, bit 25 set iff the ADC
// has timed out, and bits 10/11 set iff 271's MSU-fail bit is set.
func TestAhrsStatus272Composition(t *testing.T) {
	// Scenario (f): ADC ok, clean 271 -> exactly the base pattern.
	assert.EqualValues(t, 0x0000005D, AhrsStatus272(0, false))

	// Scenario (e): ADC timeout sets bit 25.
	assert.EqualValues(t, 0x0000005D|(1<<25), AhrsStatus272(0, true))

	// 271's SDI/SSM bits (within the mask) are mirrored verbatim.
	assert.EqualValues(t, 0x0000005D|0x60000300, AhrsStatus272(0x60000300, false))

	// 271's MSU-fail bit sets both 10 and 11 in the output.
	assert.EqualValues(t, 0x0000005D|(1<<10)|(1<<11), AhrsStatus272(1<<11, false))
}

func TestAhrsStatus274Composition(t *testing.T) {
	assert.EqualValues(t, 0x0000003D, AhrsStatus274(0, 0, false))
	assert.EqualValues(t, 0x0000003D|(1<<28), AhrsStatus274(1<<11, 0, false))
	assert.EqualValues(t, 0x0000003D|(1<<11), AhrsStatus274(0, 1<<11, false))
	assert.EqualValues(t, 0x0000003D|(1<<13), AhrsStatus274(0, 0, true))
}

func TestAhrsStatus275Composition(t *testing.T) {
	assert.EqualValues(t, 0x000040BD, AhrsStatus275(0, BnrFailureWarning))
	assert.EqualValues(t, 0x000040BD|(1<<23), AhrsStatus275(1<<11, BnrFailureWarning))
	assert.EqualValues(t, 0x000040BD|(1<<25), AhrsStatus275(0, BnrNormalOperation))
}
