package dsp

import (
	"math"

	"setfinder/models"
)

// SilenceFloorDB is the finite stand-in for the loudness of digital
// silence. log10(0) is undefined; windows with zero energy report this
// value instead so -Inf never enters downstream arithmetic.
const SilenceFloorDB = -120.0

// LoudnessProfile is a time-ordered sequence of windowed dBFS values.
type LoudnessProfile struct {
	WindowMs int
	Values   []float64
}

// Profile computes the windowed dBFS loudness of a buffer. Multi-channel
// audio is averaged to mono first. A trailing window shorter than
// windowMs is dropped.
func Profile(buf *models.AudioBuffer, windowMs int) LoudnessProfile {
	mono := buf.Mono()
	windowFrames := buf.SampleRate * windowMs / 1000
	if windowFrames < 1 {
		windowFrames = 1
	}

	values := make([]float64, 0, len(mono)/windowFrames)
	for start := 0; start+windowFrames <= len(mono); start += windowFrames {
		values = append(values, windowDBFS(mono[start:start+windowFrames]))
	}

	return LoudnessProfile{WindowMs: windowMs, Values: values}
}

func windowDBFS(window []float64) float64 {
	sumSq := 0.0
	for _, s := range window {
		sumSq += s * s
	}
	rms := math.Sqrt(sumSq / float64(len(window)))
	if rms <= 0 {
		return SilenceFloorDB
	}
	db := 20 * math.Log10(rms)
	if db < SilenceFloorDB || math.IsInf(db, -1) || math.IsNaN(db) {
		return SilenceFloorDB
	}
	return db
}

// RecommendThreshold derives a silence cutoff from a loudness profile.
// It histograms the usable dBFS values and returns the left edge of the
// most populated bin minus cfg.ThresholdOffsetDB: the modal loudness of
// a typical recording is the room noise level, and biasing below it
// avoids classifying soft passages as silence. Ties between bins go to
// the lowest bin index. Deterministic for a given profile.
func RecommendThreshold(profile LoudnessProfile, cfg AnalysisConfig) float64 {
	var usable []float64
	for _, v := range profile.Values {
		if v > SilenceFloorDB && !math.IsInf(v, 0) && !math.IsNaN(v) {
			usable = append(usable, v)
		}
	}
	if len(usable) == 0 {
		return cfg.FallbackThresholdDB
	}

	minV, maxV := usable[0], usable[0]
	for _, v := range usable[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	if minV == maxV {
		return math.Round(minV - cfg.ThresholdOffsetDB)
	}

	bins := cfg.HistogramBins
	counts := make([]int, bins)
	binWidth := (maxV - minV) / float64(bins)
	for _, v := range usable {
		idx := int((v - minV) / binWidth)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}

	peakBin := 0
	for i, c := range counts {
		if c > counts[peakBin] {
			peakBin = i
		}
	}

	peakEdge := minV + float64(peakBin)*binWidth
	return math.Round(peakEdge - cfg.ThresholdOffsetDB)
}
