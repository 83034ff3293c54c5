package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileOfTone(t *testing.T) {
	buf := toneBuffer(440, 1000, 8000, 0.5)
	profile := Profile(buf, 100)

	require.Len(t, profile.Values, 10)
	// sine RMS is amplitude/sqrt(2): 20*log10(0.3536) ~ -9.03 dBFS
	for _, v := range profile.Values {
		assert.InDelta(t, -9.03, v, 0.1)
	}
}

func TestProfileOfSilenceUsesFloor(t *testing.T) {
	buf := silenceBuffer(500, 8000)
	profile := Profile(buf, 100)

	require.Len(t, profile.Values, 5)
	for _, v := range profile.Values {
		assert.Equal(t, SilenceFloorDB, v)
		assert.False(t, math.IsInf(v, -1))
	}
}

func TestProfileDropsPartialWindow(t *testing.T) {
	// 250ms at 100ms windows: the 50ms remainder is dropped
	buf := toneBuffer(440, 250, 8000, 0.5)
	profile := Profile(buf, 100)
	assert.Len(t, profile.Values, 2)
}

func TestProfileAveragesChannels(t *testing.T) {
	// stereo with L=0.5, R=-0.5 cancels to digital silence
	buf := stereoBuffer(800, 8000, 0.5, -0.5)
	profile := Profile(buf, 100)
	require.NotEmpty(t, profile.Values)
	assert.Equal(t, SilenceFloorDB, profile.Values[0])
}

func TestRecommendThresholdModalBin(t *testing.T) {
	cfg := DefaultAnalysisConfig()

	// mostly room noise at -60, some music at -10: the modal bin's
	// left edge is -60, recommendation is 5 dB below it
	values := make([]float64, 0, 100)
	for i := 0; i < 80; i++ {
		values = append(values, -60)
	}
	for i := 0; i < 20; i++ {
		values = append(values, -10)
	}
	profile := LoudnessProfile{WindowMs: 100, Values: values}

	assert.Equal(t, -65.0, RecommendThreshold(profile, cfg))
}

func TestRecommendThresholdDeterministic(t *testing.T) {
	cfg := DefaultAnalysisConfig()
	buf := concatBuffers(toneBuffer(440, 3000, 8000, 0.4), silenceBuffer(2000, 8000), toneBuffer(220, 3000, 8000, 0.1))
	profile := Profile(buf, cfg.LoudnessWindowMs)

	first := RecommendThreshold(profile, cfg)
	second := RecommendThreshold(profile, cfg)
	assert.Equal(t, first, second)
}

func TestRecommendThresholdFallback(t *testing.T) {
	cfg := DefaultAnalysisConfig()

	profile := LoudnessProfile{WindowMs: 100, Values: []float64{SilenceFloorDB, SilenceFloorDB}}
	assert.Equal(t, cfg.FallbackThresholdDB, RecommendThreshold(profile, cfg))

	empty := LoudnessProfile{WindowMs: 100}
	assert.Equal(t, cfg.FallbackThresholdDB, RecommendThreshold(empty, cfg))
}

func TestRecommendThresholdUniformLoudness(t *testing.T) {
	cfg := DefaultAnalysisConfig()
	profile := LoudnessProfile{WindowMs: 100, Values: []float64{-30, -30, -30}}
	assert.Equal(t, -35.0, RecommendThreshold(profile, cfg))
}
