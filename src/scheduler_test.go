package avionics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bnrCfg(octalLabel uint8) LabelConfig {
	return LabelConfig{
		Label: OctalLabelToWire(octalLabel), MsgType: BNR,
		NumSigBits: 10, Resolution: 1, MaxTransmitIntervalMs: 100000,
	}
}

func newTestCore(t *testing.T, clock Clock) (*Core, *FIFOTransceiver, *FIFOTransceiver) {
	t.Helper()

	ahrLabels := []LabelConfig{
		bnrCfg(0o320), bnrCfg(0o332), bnrCfg(0o333),
		bnrCfg(0o324), bnrCfg(0o325),
		bnrCfg(0o326), bnrCfg(0o327), bnrCfg(0o330), bnrCfg(0o331),
		bnrCfg(0o323),
		{Label: OctalLabelToWire(0o271), MsgType: Discrete, NumDiscreteBits: 19, MaxTransmitIntervalMs: 100000},
		{Label: OctalLabelToWire(0o270), MsgType: Discrete, NumDiscreteBits: 19, MaxTransmitIntervalMs: 100000},
		{Label: OctalLabelToWire(0o235), MsgType: BCD, NumSigDigits: 5, Resolution: 0.001, MaxTransmitIntervalMs: 100000},
	}
	adcLabels := []LabelConfig{bnrCfg(0o206), bnrCfg(0o210), bnrCfg(0o221), bnrCfg(0o200)}

	cfg := DefaultConfig()
	cfg.AHRLabels = ahrLabels
	cfg.ADCLabels = adcLabels

	chanA := NewFIFOTransceiver()
	chanB := NewFIFOTransceiver()

	core, err := NewCore(CoreOptions{
		Clock: clock, ChannelA: chanA, ChannelB: chanB,
		Config: cfg,
	})
	require.NoError(t, err)
	return core, chanA, chanB
}

// TestRunTickPhaseGating is testable property 9's companion: the scheduler
// fires the 50/20/~17/10 Hz transmit blocks exactly on the ticks their phase
// conditions name, and nowhere else, over two full periods (120 ticks).
func TestRunTickPhaseGating(t *testing.T) {
	clock := NewFakeClock(0)
	core, _, chanB := newTestCore(t, clock)
	sched := NewScheduler(core)

	for tick := uint64(0); tick < 120; tick++ {
		before := len(chanB.Transmitted)
		require.NoError(t, sched.RunTick())
		added := len(chanB.Transmitted) - before

		want50 := tick%2 == 0
		want20 := tick%5 == 2
		want17 := tick%12 == 2 // gated on baro validity, which is false here: contributes 0.
		want10 := tick%10 == 3

		wantAdded := 0
		if want50 {
			wantAdded += 7 // TurnRate, SlipAngle, NewMagHeading, NewPitch, NewRoll, BodyLatAccel, NormalAccel.
		}
		if want20 {
			wantAdded += 3 // the three AHRS status words.
		}
		if want17 {
			wantAdded += 0
		}
		if want10 {
			wantAdded += 1 // software version word.
		}

		assert.Equalf(t, wantAdded, added, "tick %d", tick)
	}
}

func TestRunTickPassthroughRepublishesFreshLabels(t *testing.T) {
	clock := NewFakeClock(0)
	core, chanA, chanB := newTestCore(t, clock)
	sched := NewScheduler(core)

	_, err := core.AHR.ProcessReceived(bnrWordN(OctalLabelToWire(0o326), 5, BnrNormalOperation, 10))
	require.NoError(t, err)
	_, err = core.ADC.ProcessReceived(bnrWordN(OctalLabelToWire(0o206), 9, BnrNormalOperation, 10))
	require.NoError(t, err)

	require.NoError(t, sched.RunTick()) // tick 0: 50 Hz block fires.

	assert.Contains(t, chanB.Transmitted, bnrWordN(OctalLabelToWire(0o326), 5, BnrNormalOperation, 10))
	assert.Contains(t, chanA.Transmitted, bnrWordN(OctalLabelToWire(0o206), 9, BnrNormalOperation, 10))
}

func TestRunTickDrainsReceiveFIFOsEveryTick(t *testing.T) {
	clock := NewFakeClock(0)
	core, chanA, _ := newTestCore(t, clock)
	sched := NewScheduler(core)

	chanA.EnqueueRx1(bnrWordN(OctalLabelToWire(0o320), 42, BnrNormalOperation, 10))
	require.NoError(t, sched.RunTick())

	slot, _, status := core.AHR.GetLatestLabelData(OctalLabelToWire(0o320))
	require.Equal(t, GetSuccess, status)
	assert.EqualValues(t, 42, slot.EngInt)
}

func TestRunTickLatchesBusFailureWithNilEventLog(t *testing.T) {
	clock := NewFakeClock(0)
	cfg := DefaultConfig()
	cfg.MaxBusFailureCounts = 3
	cfg.AHRLabels = []LabelConfig{bnrCfg(0o320)}

	chanA := NewFIFOTransceiver()
	chanB := NewFIFOTransceiver()

	// Logger left nil: exercises logBusFailureTransition's nil-safe path.
	core, err := NewCore(CoreOptions{Clock: clock, ChannelA: chanA, ChannelB: chanB, Config: cfg})
	require.NoError(t, err)

	sched := NewScheduler(core)
	for range 5 {
		require.NoError(t, sched.RunTick())
	}
	assert.True(t, core.AHR.HasBusFailed)
}
