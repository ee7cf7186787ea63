package avionics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOctalLabelToWireReverses(t *testing.T) {
	// Octal 001 = 0b00000001; bit-reversed = 0b10000000 = 0x80.
	assert.Equal(t, ArincLabel(0x80), OctalLabelToWire(0o001))
	// Octal 000 and 0xFF are their own reversal.
	assert.Equal(t, ArincLabel(0x00), OctalLabelToWire(0o000))
	assert.Equal(t, ArincLabel(0xFF), OctalLabelToWire(0o377))
}

func TestParseOctalLabel(t *testing.T) {
	got, err := ParseOctalLabel("320")
	require.NoError(t, err)
	assert.Equal(t, OctalLabelToWire(0o320), got)

	_, err = ParseOctalLabel("999")
	assert.Error(t, err)
}

func TestNewLabelConfigRejectsBadTransmitInterval(t *testing.T) {
	_, err := NewLabelConfig(LabelConfig{
		MsgType:               BNR,
		NumSigBits:            10,
		MinTransmitIntervalMs: 100,
		MaxTransmitIntervalMs: 50,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestNewLabelConfigBNRBounds(t *testing.T) {
	_, err := NewLabelConfig(LabelConfig{MsgType: BNR, NumSigBits: 0})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewLabelConfig(LabelConfig{MsgType: BNR, NumSigBits: 21})
	assert.ErrorIs(t, err, ErrConfiguration)

	cfg, err := NewLabelConfig(LabelConfig{MsgType: BNR, NumSigBits: 20})
	require.NoError(t, err)
	assert.True(t, cfg.sdiExposed() == false || cfg.NumSigBits <= 18)
}

func TestNewLabelConfigBCDFieldWidth(t *testing.T) {
	// 5 digits * 4 - 1 = 19, leaves no room for discrete bits.
	_, err := NewLabelConfig(LabelConfig{MsgType: BCD, NumSigDigits: 5, NumDiscreteBits: 1})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewLabelConfig(LabelConfig{MsgType: BCD, NumSigDigits: 5, NumDiscreteBits: 0})
	require.NoError(t, err)
}

func TestNewLabelConfigDiscreteBounds(t *testing.T) {
	_, err := NewLabelConfig(LabelConfig{MsgType: Discrete, NumDiscreteBits: 0})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewLabelConfig(LabelConfig{MsgType: Discrete, NumDiscreteBits: 20})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewLabelConfig(LabelConfig{MsgType: Discrete, NumDiscreteBits: 19})
	assert.NoError(t, err)
}

func TestSdiExposedAboveEighteenBits(t *testing.T) {
	cfg, err := NewLabelConfig(LabelConfig{MsgType: BNR, NumSigBits: 19})
	require.NoError(t, err)
	assert.False(t, cfg.sdiExposed())

	cfg, err = NewLabelConfig(LabelConfig{MsgType: BNR, NumSigBits: 18})
	require.NoError(t, err)
	assert.True(t, cfg.sdiExposed())
}
