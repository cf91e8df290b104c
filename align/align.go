// Copyright 2025 The AudioQC Authors. All Rights Reserved.
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

// Package align estimates the time offset between two signals and trims them
// to overlapping, equally long segments.
package align

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Alignment contains two equally long, time-aligned signals and the absolute
// time shift that was applied to produce them.
type Alignment struct {
	Reference []float64
	Degraded  []float64
	// Lag is the estimated offset of the degraded signal relative to the
	// reference in samples. Positive means the degraded signal arrived late.
	Lag int
	// LatencyMS is the absolute value of the lag in milliseconds.
	LatencyMS float64
}

// Aligner aligns a degraded signal to a reference at a shared sample rate.
type Aligner interface {
	Align(reference, degraded []float64, rate int) Alignment
}

// CrossCorrelation aligns signals at the lag of maximum absolute
// cross-correlation between the degraded and reference signals.
type CrossCorrelation struct{}

// Align returns both signals trimmed to their overlap at the estimated lag.
func (CrossCorrelation) Align(reference, degraded []float64, rate int) Alignment {
	if len(reference) == 0 || len(degraded) == 0 {
		return Truncate{}.Align(reference, degraded, rate)
	}
	correlation := crossCorrelate(degraded, reference)
	maxIndex := 0
	maxValue := 0.0
	for index, value := range correlation {
		if abs := math.Abs(value); abs > maxValue {
			maxValue = abs
			maxIndex = index
		}
	}
	// Index len(reference)-1 in the full correlation is zero lag.
	lag := maxIndex - len(reference) + 1
	result := Alignment{
		Reference: reference,
		Degraded:  degraded,
		Lag:       lag,
		LatencyMS: math.Abs(float64(lag)) / float64(rate) * 1000,
	}
	if lag > 0 {
		if lag > len(result.Degraded) {
			lag = len(result.Degraded)
		}
		result.Degraded = result.Degraded[lag:]
	} else if lag < 0 {
		trim := -lag
		if trim > len(result.Reference) {
			trim = len(result.Reference)
		}
		result.Reference = result.Reference[trim:]
	}
	minLen := len(result.Reference)
	if len(result.Degraded) < minLen {
		minLen = len(result.Degraded)
	}
	result.Reference = result.Reference[:minLen]
	result.Degraded = result.Degraded[:minLen]
	return result
}

// Truncate skips lag estimation and trims both signals to the shorter length,
// reporting zero latency. Trades latency accuracy for not needing any
// correlation machinery.
type Truncate struct{}

// Align returns both signals truncated to the shorter of the two lengths.
func (Truncate) Align(reference, degraded []float64, rate int) Alignment {
	minLen := len(reference)
	if len(degraded) < minLen {
		minLen = len(degraded)
	}
	return Alignment{
		Reference: reference[:minLen],
		Degraded:  degraded[:minLen],
	}
}

// crossCorrelate returns the full linear cross-correlation of a against b:
// result[k] = sum(a[n] * b[n - k + len(b) - 1]), with len(a)+len(b)-1 entries.
func crossCorrelate(a, b []float64) []float64 {
	full := len(a) + len(b) - 1
	padded := 1
	for padded < full {
		padded <<= 1
	}
	paddedA := make([]float64, padded)
	copy(paddedA, a)
	paddedB := make([]float64, padded)
	copy(paddedB, b)
	spectrumA := fft.FFTReal(paddedA)
	spectrumB := fft.FFTReal(paddedB)
	product := make([]complex128, padded)
	for i := range product {
		product[i] = spectrumA[i] * cmplx.Conj(spectrumB[i])
	}
	circular := fft.IFFT(product)
	// Circular correlation at offset k holds lag k; negative lags wrap to the
	// end of the buffer. Reorder to lag -(len(b)-1)..len(a)-1.
	result := make([]float64, full)
	for lag := -(len(b) - 1); lag < len(a); lag++ {
		sourceIndex := lag
		if sourceIndex < 0 {
			sourceIndex += padded
		}
		result[lag+len(b)-1] = real(circular[sourceIndex])
	}
	return result
}
