package dsp

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// Spectrogram computes a Hann-windowed magnitude spectrogram of a mono
// sample slice. The input is low-pass filtered and downsampled by
// cfg.DSPRatio first, so bin frequencies are relative to the effective
// rate sampleRate/cfg.DSPRatio.
func Spectrogram(sample []float64, sampleRate int, cfg AnalysisConfig) ([][]float64, error) {
	filteredSample := LowPassFilter(cfg.MaxFreqHz, float64(sampleRate), sample)

	targetRate := sampleRate / cfg.DSPRatio
	downsampled, err := Downsample(filteredSample, sampleRate, targetRate)
	if err != nil {
		return nil, fmt.Errorf("couldn't downsample audio sample: %v", err)
	}

	// free the filtered copy early
	filteredSample = nil

	window := hannWindow(cfg.FrameSize)

	spectrogram := make([][]float64, 0, len(downsampled)/cfg.HopSize)
	frame := make([]complex128, cfg.FrameSize)

	for start := 0; start+cfg.FrameSize <= len(downsampled); start += cfg.HopSize {
		for j := 0; j < cfg.FrameSize; j++ {
			frame[j] = complex(downsampled[start+j]*window[j], 0)
		}

		fftResult := fft(frame)

		magnitude := make([]float64, len(fftResult)/2)
		for j := range magnitude {
			magnitude[j] = cmplx.Abs(fftResult[j])
		}

		spectrogram = append(spectrogram, magnitude)
	}

	return spectrogram, nil
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// LowPassFilter is a first-order low-pass filter that attenuates
// frequencies above cutoffFrequency.
func LowPassFilter(cutoffFrequency, sampleRate float64, input []float64) []float64 {
	rc := 1.0 / (2 * math.Pi * cutoffFrequency)
	dt := 1.0 / sampleRate
	alpha := dt / (rc + dt)

	filteredSignal := make([]float64, len(input))
	var prevOutput float64

	for i, x := range input {
		if i == 0 {
			filteredSignal[i] = x * alpha
		} else {
			filteredSignal[i] = alpha*x + (1-alpha)*prevOutput
		}
		prevOutput = filteredSignal[i]
	}
	return filteredSignal
}

// Downsample reduces the input from originalSampleRate to
// targetSampleRate by block averaging.
func Downsample(input []float64, originalSampleRate, targetSampleRate int) ([]float64, error) {
	if targetSampleRate <= 0 || originalSampleRate <= 0 {
		return nil, errors.New("sample rates must be positive")
	}
	if targetSampleRate > originalSampleRate {
		return nil, errors.New("target sample rate must be less than or equal to original sample rate")
	}

	ratio := originalSampleRate / targetSampleRate
	if ratio <= 0 {
		return nil, errors.New("invalid ratio calculated from sample rates")
	}

	resampled := make([]float64, 0, len(input)/ratio)
	for i := 0; i < len(input); i += ratio {
		end := i + ratio
		if end > len(input) {
			end = len(input)
		}

		sum := 0.0
		for j := i; j < end; j++ {
			sum += input[j]
		}
		resampled = append(resampled, sum/float64(end-i))
	}

	return resampled, nil
}

// fft is an in-place-free iterative Cooley-Tukey transform.
// len(x) must be a power of two.
func fft(x []complex128) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	copy(out, x)
	if n <= 1 {
		return out
	}

	// bit reversal permutation
	j := 0
	for i := 0; i < n-1; i++ {
		if i < j {
			out[i], out[j] = out[j], out[i]
		}
		m := n >> 1
		for j >= m && m > 0 {
			j -= m
			m >>= 1
		}
		j += m
	}

	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		step := -2 * math.Pi / float64(size)
		wLen := complex(math.Cos(step), math.Sin(step))
		for i := 0; i < n; i += size {
			w := complex(1, 0)
			for k := 0; k < half; k++ {
				u := out[i+k]
				v := out[i+k+half] * w
				out[i+k] = u + v
				out[i+k+half] = u - v
				w *= wLen
			}
		}
	}
	return out
}
