package dsp

import (
	"fmt"
	"math"
	"sort"

	"setfinder/models"
)

// NoteNames are the twelve pitch classes, indexed like chroma vectors.
var NoteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

const (
	chromaMinFreqHz = 65.0   // below C2 the bin resolution is too coarse
	chromaMaxFreqHz = 4000.0 // harmonics above this add mostly noise
	middleCHz       = 261.63

	tempoSearchMinBPM = 60.0
	tempoSearchMaxBPM = 200.0
	tempoDefaultBPM   = 120.0
)

// ExtractSignature computes the (tempo, chroma, timbre) fingerprint of
// a segment. Stateless and safe to call concurrently across segments.
// Segments shorter than cfg.MinSegmentSec are rejected: tempo and
// chroma estimates are not stable on them.
func ExtractSignature(buf *models.AudioBuffer, cfg AnalysisConfig) (*models.Signature, error) {
	durationSec := float64(buf.DurationMs()) / 1000
	if durationSec < cfg.MinSegmentSec {
		return nil, fmt.Errorf("segment too short for a signature: %.1fs < %.1fs", durationSec, cfg.MinSegmentSec)
	}

	mono := buf.Mono()
	spectro, err := Spectrogram(mono, buf.SampleRate, cfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't compute spectrogram: %v", err)
	}
	if len(spectro) == 0 {
		return nil, fmt.Errorf("segment produced no spectrogram frames")
	}

	effectiveRate := float64(buf.SampleRate) / float64(cfg.DSPRatio)
	frameDurationSec := float64(cfg.HopSize) / effectiveRate

	return &models.Signature{
		Tempo:  estimateTempo(spectro, frameDurationSec),
		Chroma: chromaProfile(spectro, effectiveRate, cfg.FrameSize),
		Timbre: cepstralMeans(spectro, cfg.CepstralCoeffs),
	}, nil
}

// estimateTempo derives BPM from the positive spectral flux onset
// envelope via autocorrelation over the musically plausible lag range,
// with a mild perceptual weight around 120 BPM to suppress octave
// errors (70 vs 140). Falls back to 120 when the envelope is too short
// to correlate.
func estimateTempo(spectro [][]float64, frameDurationSec float64) float64 {
	onset := make([]float64, len(spectro))
	for i := 1; i < len(spectro); i++ {
		flux := 0.0
		for j, m := range spectro[i] {
			d := m - spectro[i-1][j]
			if d > 0 {
				flux += d
			}
		}
		onset[i] = flux
	}

	minLag := int(60 / (tempoSearchMaxBPM * frameDurationSec))
	maxLag := int(60 / (tempoSearchMinBPM * frameDurationSec))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(onset) {
		maxLag = len(onset) - 1
	}
	if maxLag <= minLag {
		return tempoDefaultBPM
	}

	bestLag := minLag
	bestCorr := -1.0
	for lag := minLag; lag <= maxLag; lag++ {
		corr := 0.0
		count := 0
		for i := 0; i+lag < len(onset); i++ {
			corr += onset[i] * onset[i+lag]
			count++
		}
		if count > 0 {
			corr /= float64(count)
		}

		bpmApprox := 60 / (float64(lag) * frameDurationSec)
		weight := math.Exp(-0.5 * math.Pow((bpmApprox-120)/40, 2))
		weightedCorr := corr * (0.8 + 0.2*weight)

		if weightedCorr > bestCorr {
			bestCorr = weightedCorr
			bestLag = lag
		}
	}

	beatPeriodSec := float64(bestLag) * frameDurationSec
	if beatPeriodSec <= 0 {
		return tempoDefaultBPM
	}
	return 60 / beatPeriodSec
}

// chromaProfile accumulates spectral energy into the twelve pitch
// classes, averaged over all frames. Values are comparable across
// signatures produced by the same config, not normalized to sum to 1.
func chromaProfile(spectro [][]float64, effectiveRate float64, frameSize int) []float64 {
	chroma := make([]float64, 12)
	freqResolution := effectiveRate / float64(frameSize)

	for _, frame := range spectro {
		for bin := 1; bin < len(frame); bin++ {
			freq := float64(bin) * freqResolution
			if freq < chromaMinFreqHz || freq > chromaMaxFreqHz {
				continue
			}
			semitones := 12 * math.Log2(freq/middleCHz)
			pc := ((int(math.Round(semitones)) % 12) + 12) % 12
			chroma[pc] += frame[bin]
		}
	}

	for i := range chroma {
		chroma[i] /= float64(len(spectro))
	}
	return chroma
}

// cepstralMeans computes a fixed-size timbre vector: per frame, the
// DCT of the log magnitude spectrum, keeping coefficients 1..n and
// averaging over frames. Coefficient 0 is overall level, not timbre.
func cepstralMeans(spectro [][]float64, n int) []float64 {
	means := make([]float64, n)
	logMag := make([]float64, len(spectro[0]))

	for _, frame := range spectro {
		for j, m := range frame {
			logMag[j] = math.Log(m + 1e-10)
		}
		coeffs := dct(logMag, n+1)
		for k := 1; k <= n; k++ {
			means[k-1] += coeffs[k]
		}
	}

	for i := range means {
		means[i] /= float64(len(spectro))
	}
	return means
}

// dct computes the first n DCT-II coefficients of the input.
func dct(input []float64, n int) []float64 {
	out := make([]float64, n)
	size := float64(len(input))
	for k := 0; k < n; k++ {
		sum := 0.0
		for i, x := range input {
			sum += x * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/size)
		}
		out[k] = sum
	}
	return out
}

// Pearson returns the correlation coefficient of two equal-length
// vectors. Degenerate inputs (mismatched lengths, zero variance) yield
// 0 rather than NaN; the clamp happens here so NaN never leaks into
// match scoring.
func Pearson(a, b []float64) float64 {
	n := len(a)
	if n == 0 || n != len(b) {
		return 0
	}

	var sumA, sumB, sumAB, sumA2, sumB2 float64
	for i := 0; i < n; i++ {
		sumA += a[i]
		sumB += b[i]
		sumAB += a[i] * b[i]
		sumA2 += a[i] * a[i]
		sumB2 += b[i] * b[i]
	}

	num := float64(n)*sumAB - sumA*sumB
	den := math.Sqrt((float64(n)*sumA2 - sumA*sumA) * (float64(n)*sumB2 - sumB*sumB))
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	return num / den
}

// DominantKey returns the pitch-class name with the highest chroma energy.
func DominantKey(chroma []float64) string {
	if len(chroma) != 12 {
		return NoteNames[0]
	}
	best := 0
	for i, v := range chroma {
		if v > chroma[best] {
			best = i
		}
	}
	return NoteNames[best]
}

// TopNotes returns the indices of the n highest-energy pitch classes,
// strongest first.
func TopNotes(chroma []float64, n int) []int {
	idx := make([]int, len(chroma))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return chroma[idx[a]] > chroma[idx[b]] })
	if n > len(idx) {
		n = len(idx)
	}
	return idx[:n]
}
