package dsp

// AnalysisConfig controls all tunable parameters in the loudness,
// silence-detection, and feature-extraction pipeline.
type AnalysisConfig struct {
	LoudnessWindowMs    int     // window size for the dBFS loudness profile
	SeekWindowMs        int     // finer window used by silence classification
	HistogramBins       int     // bin count for threshold recommendation
	ThresholdOffsetDB   float64 // subtracted from the modal loudness bin
	FallbackThresholdDB float64 // recommendation when no usable samples exist

	DSPRatio       int     // downsample factor applied before the FFT
	FrameSize      int     // FFT frame size in samples (power of 2)
	HopSize        int     // samples between successive FFT frames
	MaxFreqHz      float64 // low-pass cutoff before downsampling
	CepstralCoeffs int     // timbre vector dimension

	MinSegmentSec float64 // segments shorter than this contribute no signature
}

// DefaultAnalysisConfig returns the parameters used throughout the
// rehearsal pipeline. FFT settings follow the music fingerprinting
// defaults; the 10s segment floor keeps tempo and chroma estimates stable.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		LoudnessWindowMs:    100,
		SeekWindowMs:        10,
		HistogramBins:       50,
		ThresholdOffsetDB:   5,
		FallbackThresholdDB: -40,

		DSPRatio:       4,
		FrameSize:      1024,
		HopSize:        512,
		MaxFreqHz:      5000,
		CepstralCoeffs: 12,

		MinSegmentSec: 10,
	}
}
