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

// Package audio handles audio data and WAV coding.
package audio

import (
	"fmt"
	"io"
	"math"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Audio contains audio data.
type Audio struct {
	// Samples is a (num_channels, num_samples)-shaped array containing samples between -1 and 1.
	Samples [][]float64
	// Rate is the sample rate of the sound in Hz.
	Rate int
}

// Mono returns a single channel with the mean across all channels at each sample index.
func (a *Audio) Mono() []float64 {
	if len(a.Samples) == 1 {
		return a.Samples[0]
	}
	numFrames := 0
	for _, channel := range a.Samples {
		if len(channel) > numFrames {
			numFrames = len(channel)
		}
	}
	result := make([]float64, numFrames)
	reciprocal := 1.0 / float64(len(a.Samples))
	for _, channel := range a.Samples {
		for sampleIndex, sample := range channel {
			result[sampleIndex] += sample * reciprocal
		}
	}
	return result
}

// DecodeWAV decodes a WAV stream into audio with one sample slice per channel.
func DecodeWAV(r io.ReadSeeker) (*Audio, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("not a decodable WAV stream")
	}
	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("while reading PCM data: %v", err)
	}
	numChannels := buffer.Format.NumChannels
	if numChannels < 1 {
		return nil, fmt.Errorf("no channels in WAV stream")
	}
	bitDepth := int(decoder.BitDepth)
	if buffer.SourceBitDepth != 0 {
		bitDepth = buffer.SourceBitDepth
	}
	scaleReciprocal := 1.0 / float64(int(1)<<(bitDepth-1))
	result := &Audio{
		Samples: make([][]float64, numChannels),
		Rate:    buffer.Format.SampleRate,
	}
	numFrames := len(buffer.Data) / numChannels
	for channelIndex := 0; channelIndex < numChannels; channelIndex++ {
		result.Samples[channelIndex] = make([]float64, numFrames)
	}
	for sampleIndex := 0; sampleIndex < numFrames*numChannels; sampleIndex++ {
		result.Samples[sampleIndex%numChannels][sampleIndex/numChannels] = float64(buffer.Data[sampleIndex]) * scaleReciprocal
	}
	return result, nil
}

// EncodeWAV writes a mono signal as a 16 bit PCM WAV file. Samples outside [-1, 1] are clamped.
func EncodeWAV(w io.WriteSeeker, signal []float64, rate int) error {
	encoder := wav.NewEncoder(w, rate, 16, 1, 1)
	buffer := &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: 1,
			SampleRate:  rate,
		},
		SourceBitDepth: 16,
		Data:           make([]int, len(signal)),
	}
	for sampleIndex, sample := range signal {
		if sample > 1 {
			sample = 1
		} else if sample < -1 {
			sample = -1
		}
		buffer.Data[sampleIndex] = int(math.Round(sample * 32767))
	}
	if err := encoder.Write(buffer); err != nil {
		return fmt.Errorf("while writing PCM data: %v", err)
	}
	return encoder.Close()
}
