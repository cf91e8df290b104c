// Copyright 2026 The AudioQC Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package resample changes the sample rate of signals by Fourier interpolation.
package resample

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// Interpolator resamples a signal to a new number of samples.
type Interpolator interface {
	Resample(signal []float64, numSamples int) []float64
}

// Count returns the number of samples a signal of numSamples at origRate
// occupies at targetRate.
func Count(numSamples, origRate, targetRate int) int {
	return int(math.Round(float64(numSamples) * float64(targetRate) / float64(origRate)))
}

// FFT resamples signals by interpolating in the frequency domain: the signal
// spectrum is truncated or zero-padded to the new length, so the result
// contains exactly the frequencies representable at both rates.
type FFT struct{}

// Resample returns the signal interpolated to numSamples samples.
func (FFT) Resample(signal []float64, numSamples int) []float64 {
	n := len(signal)
	m := numSamples
	if m == n || n == 0 || m <= 0 {
		result := make([]float64, len(signal))
		copy(result, signal)
		return result
	}
	spectrum := fft.FFTReal(signal)
	resized := make([]complex128, m)
	shared := n
	if m < n {
		shared = m
	}
	resized[0] = spectrum[0]
	for i := 1; i <= (shared-1)/2; i++ {
		resized[i] = spectrum[i]
		resized[m-i] = spectrum[n-i]
	}
	if shared%2 == 0 {
		nyquist := shared / 2
		if m > n {
			// The old Nyquist bin splits between the two new conjugate bins.
			resized[nyquist] = spectrum[nyquist] * 0.5
			resized[m-nyquist] = spectrum[nyquist] * 0.5
		} else {
			// Both aliased bins at the new Nyquist frequency fold into one
			// self-conjugate bin.
			resized[nyquist] = complex(2*real(spectrum[nyquist]), 0)
		}
	}
	interpolated := fft.IFFT(resized)
	scale := float64(m) / float64(n)
	result := make([]float64, m)
	for i, sample := range interpolated {
		result[i] = real(sample) * scale
	}
	return result
}
