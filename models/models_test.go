package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudioBufferDuration(t *testing.T) {
	buf := &AudioBuffer{Samples: make([]float64, 8000*2), SampleRate: 8000, Channels: 2}
	assert.Equal(t, 8000, buf.NumFrames())
	assert.Equal(t, 1000, buf.DurationMs())
}

func TestMonoAveragesChannels(t *testing.T) {
	buf := &AudioBuffer{
		Samples:    []float64{1, 0, 0.5, -0.5, -1, 1},
		SampleRate: 8000,
		Channels:   2,
	}
	assert.Equal(t, []float64{0.5, 0, 0}, buf.Mono())
}

func TestSliceIsOwnedCopy(t *testing.T) {
	samples := make([]float64, 8000)
	for i := range samples {
		samples[i] = 0.25
	}
	buf := &AudioBuffer{Samples: samples, SampleRate: 8000, Channels: 1}

	piece := buf.Slice(250, 750)
	require.Equal(t, 500, piece.DurationMs())

	piece.Samples[0] = 9
	assert.Equal(t, 0.25, buf.Samples[2000])
}

func TestSliceClampsToBounds(t *testing.T) {
	buf := &AudioBuffer{Samples: make([]float64, 8000), SampleRate: 8000, Channels: 1}

	piece := buf.Slice(-100, 5000)
	assert.Equal(t, 1000, piece.DurationMs())

	empty := buf.Slice(2000, 3000)
	assert.Equal(t, 0, empty.DurationMs())
}

func TestUndetectedSentinel(t *testing.T) {
	seg := Segment{Index: 4, StartMs: 120000, EndMs: 145000}
	r := Undetected(seg)

	assert.Equal(t, 4, r.Segment)
	assert.Equal(t, UndetectedTitle, r.Title)
	assert.Equal(t, 0.0, r.Confidence)
	assert.Equal(t, MethodNone, r.Method)
	assert.Equal(t, 25.0, r.DurationSec)
}
