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

package resample

import (
	"math"
	"testing"
)

func TestCount(t *testing.T) {
	for _, tc := range []struct {
		numSamples int
		origRate   int
		targetRate int
		want       int
	}{
		{numSamples: 48000, origRate: 48000, targetRate: 16000, want: 16000},
		{numSamples: 441, origRate: 44100, targetRate: 48000, want: 480},
		{numSamples: 100, origRate: 8000, targetRate: 16000, want: 200},
		{numSamples: 3, origRate: 16000, targetRate: 8000, want: 2},
	} {
		if got := Count(tc.numSamples, tc.origRate, tc.targetRate); got != tc.want {
			t.Errorf("Count(%v, %v, %v) = %v, want %v", tc.numSamples, tc.origRate, tc.targetRate, got, tc.want)
		}
	}
}

func sine(freq float64, rate, numSamples int) []float64 {
	result := make([]float64, numSamples)
	for i := range result {
		result[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(rate))
	}
	return result
}

// A sine with a whole number of cycles over the signal occupies a single
// frequency bin, so Fourier interpolation reproduces it exactly at the new
// rate.
func TestFFTResampleSine(t *testing.T) {
	for _, tc := range []struct {
		name       string
		freq       float64
		origRate   int
		targetRate int
	}{
		{name: "downsample 48k to 16k", freq: 440, origRate: 48000, targetRate: 16000},
		{name: "downsample 48k to 8k", freq: 440, origRate: 48000, targetRate: 8000},
		{name: "upsample 16k to 48k", freq: 440, origRate: 16000, targetRate: 48000},
		{name: "upsample 8k to 16k", freq: 200, origRate: 8000, targetRate: 16000},
	} {
		t.Run(tc.name, func(t *testing.T) {
			// A tenth of a second holds a whole number of cycles of both
			// test frequencies.
			numSamples := tc.origRate / 10
			signal := sine(tc.freq, tc.origRate, numSamples)
			wantSamples := Count(numSamples, tc.origRate, tc.targetRate)
			got := FFT{}.Resample(signal, wantSamples)
			if len(got) != wantSamples {
				t.Fatalf("got %v samples, want %v", len(got), wantSamples)
			}
			want := sine(tc.freq, tc.targetRate, wantSamples)
			for i := range got {
				if math.Abs(got[i]-want[i]) > 1e-6 {
					t.Fatalf("sample %v = %v, want %v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestFFTResampleConstant(t *testing.T) {
	signal := make([]float64, 100)
	for i := range signal {
		signal[i] = 0.25
	}
	got := FFT{}.Resample(signal, 150)
	for i, sample := range got {
		if math.Abs(sample-0.25) > 1e-9 {
			t.Fatalf("sample %v = %v, want 0.25", i, sample)
		}
	}
}

func TestFFTResampleNoop(t *testing.T) {
	signal := sine(100, 8000, 800)
	got := FFT{}.Resample(signal, len(signal))
	for i := range signal {
		if got[i] != signal[i] {
			t.Fatalf("sample %v = %v, want %v", i, got[i], signal[i])
		}
	}
}
