package avionics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterStateRecurrence(t *testing.T) {
	f := NewFilterState(0.7777678, 0.2222322)
	f.Preload(10.0)
	assert.True(t, f.Preloaded)
	assert.Equal(t, 10.0, f.Output())

	y := f.Step(20.0)
	want := 0.7777678*10.0 + 0.2222322*20.0
	assert.InDelta(t, want, y, 1e-9)
	assert.InDelta(t, want, f.Output(), 1e-9)
}

func TestFilterStateReset(t *testing.T) {
	f := NewFilterState(0.5, 0.5)
	f.Preload(100.0)
	f.Reset()
	assert.False(t, f.Preloaded)
	assert.Equal(t, 0.0, f.Output())
}

func TestFilterStateConvergesOnConstantInput(t *testing.T) {
	f := NewFilterState(0.9, 0.1)
	f.Preload(0.0)
	for range 200 {
		f.Step(5.0)
	}
	assert.InDelta(t, 5.0, f.Output(), 1e-6)
}
