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

// Package aio handles audio in/out.
package aio

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/mkarlsen/audioqc/audio"
	"github.com/mkarlsen/audioqc/resample"
)

// Loader loads audio files at a target sample rate.
//
// With ffmpeg available it decodes anything ffmpeg decodes and resamples in
// the same pass. Without it, only WAV files decode, and rate conversion
// happens through the wired Interpolator. Without an Interpolator either,
// signals come back at their native rate and callers must treat their own
// rate checks as authoritative.
type Loader struct {
	// FFmpeg is the path to the ffmpeg binary, or empty if unavailable.
	FFmpeg string
	// Interpolator resamples natively decoded audio, or nil if unavailable.
	Interpolator resample.Interpolator
}

// Detect returns a Loader with all capabilities found on this system.
func Detect() *Loader {
	result := &Loader{Interpolator: resample.FFT{}}
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		result.FFmpeg = path
	}
	return result
}

// Load loads audio from a file, resampled to targetRate when possible.
func (l *Loader) Load(path string, targetRate int) (*audio.Audio, error) {
	if l.FFmpeg != "" {
		return l.loadFFmpeg(path, targetRate)
	}
	return l.loadNative(path, targetRate)
}

// loadFFmpeg decodes and resamples an ffmpeg-decodable file (the path may be a URL).
func (l *Loader) loadFFmpeg(path string, targetRate int) (*audio.Audio, error) {
	cmd := exec.Command(l.FFmpeg, "-i", path, "-vn", "-c:a", "pcm_s16le", "-f", "wav", "-ar", strconv.Itoa(targetRate), "-")
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.Stdout, cmd.Stderr = stdout, stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("while executing %v: %v\n%v", cmd, err, stderr.String())
	}
	result, err := audio.DecodeWAV(bytes.NewReader(stdout.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("while decoding ffmpeg output for %q: %v", path, err)
	}
	return result, nil
}

// loadNative decodes a WAV file directly and resamples through the
// Interpolator if the native rate doesn't match.
func (l *Loader) loadNative(path string, targetRate int) (*audio.Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	result, err := audio.DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("while decoding %q: %v", path, err)
	}
	if result.Rate != targetRate && l.Interpolator != nil {
		for channelIndex, channel := range result.Samples {
			result.Samples[channelIndex] = l.Interpolator.Resample(channel, resample.Count(len(channel), result.Rate, targetRate))
		}
		result.Rate = targetRate
	}
	return result, nil
}
