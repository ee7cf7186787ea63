package avionics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSpoolTiming is testable property 7: with threshold 10 and valid
// samples every cycle, good flips on the 11th valid sample and the output
// SSM becomes BnrNormalOperation from that cycle onward; any single invalid
// sample resets the counter to 0.
func TestSpoolTiming(t *testing.T) {
	minV, maxV := -1000.0, 1000.0
	cfg := &LabelConfig{MinValidValue: &minV, MaxValidValue: &maxV}

	f := NewFilterState(0.5, 0.5)
	var s SpoolState

	for i := 1; i <= 10; i++ {
		_, ssm := s.Step(true, 1.0, f.Reset, f.Preload, f.Step, cfg)
		require.Equalf(t, BnrFailureWarning, ssm, "sample %d should still be spooling", i)
		assert.False(t, s.Good)
	}

	_, ssm := s.Step(true, 1.0, f.Reset, f.Preload, f.Step, cfg)
	assert.Equal(t, BnrNormalOperation, ssm, "11th valid sample flips good this same cycle")
	assert.True(t, s.Good)

	_, ssm = s.Step(true, 1.0, f.Reset, f.Preload, f.Step, cfg)
	assert.Equal(t, BnrNormalOperation, ssm)
}

func TestSpoolInvalidSampleResets(t *testing.T) {
	minV, maxV := -1000.0, 1000.0
	cfg := &LabelConfig{MinValidValue: &minV, MaxValidValue: &maxV}
	f := NewFilterState(0.5, 0.5)
	var s SpoolState

	for range 5 {
		s.Step(true, 1.0, f.Reset, f.Preload, f.Step, cfg)
	}
	assert.Equal(t, 5, s.Count)

	_, ssm := s.Step(false, 0, f.Reset, f.Preload, f.Step, cfg)
	assert.Equal(t, BnrFailureWarning, ssm)
	assert.Equal(t, 0, s.Count)
	assert.False(t, s.Good)
}

func TestSpoolFirstValidSampleZeroesOutput(t *testing.T) {
	minV, maxV := -1000.0, 1000.0
	cfg := &LabelConfig{MinValidValue: &minV, MaxValidValue: &maxV}
	f := NewFilterState(0.5, 0.5)
	var s SpoolState

	output, ssm := s.Step(true, 42.0, f.Reset, f.Preload, f.Step, cfg)
	assert.Equal(t, 0.0, output)
	assert.Equal(t, BnrFailureWarning, ssm)
	assert.Equal(t, 1, s.Count)
}
