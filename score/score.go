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

// Package score estimates the perceptual quality of a degraded audio file
// against a reference.
//
// Two scorer strategies exist: Perceptual delegates to an external PESQ
// metric process, Correlation approximates a MOS from the Pearson correlation
// of the aligned signals. Which one runs is decided once at startup from the
// detected capabilities.
package score

import (
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strings"

	"github.com/dgryski/go-onlinestats"
	"gonum.org/v1/gonum/stat"

	"github.com/mkarlsen/audioqc/aio"
	"github.com/mkarlsen/audioqc/align"
	"github.com/mkarlsen/audioqc/pesq"
)

// FallbackRate is the sample rate the correlation fallback loads audio at.
// Higher than either PESQ rate to preserve fidelity for the correlation.
const FallbackRate = 48000

// FallbackWarning is attached to results when the perceptual metric is
// unavailable and the fallback wasn't explicitly requested.
const FallbackWarning = "PESQ not available, using correlation fallback"

// Kind categorizes scoring failures.
type Kind string

const (
	// KindCapability means a required external dependency is unavailable.
	KindCapability Kind = "capability"
	// KindInput means the inputs themselves are unusable.
	KindInput Kind = "input"
	// KindData means the loaded signals can't be scored against each other.
	KindData Kind = "data"
	// KindThreshold means a quality gate rejected an otherwise valid score.
	KindThreshold Kind = "threshold"
	// KindCompute means the scoring computation itself failed.
	KindCompute Kind = "compute"
)

type kinder interface {
	scoreKind() Kind
}

// KindOf returns the category of a scoring failure, defaulting to KindCompute.
func KindOf(err error) Kind {
	var k kinder
	if errors.As(err, &k) {
		return k.scoreKind()
	}
	return KindCompute
}

// RateMismatchError reports that the two inputs loaded at different sample
// rates, signaling a loader that couldn't resample or mismatched inputs.
type RateMismatchError struct {
	Reference int
	Degraded  int
}

func (e RateMismatchError) Error() string {
	return fmt.Sprintf("sample rate mismatch: ref=%v, deg=%v", e.Reference, e.Degraded)
}

func (e RateMismatchError) scoreKind() Kind { return KindData }

type dataError string

func (e dataError) Error() string   { return string(e) }
func (e dataError) scoreKind() Kind { return KindData }

// ErrEmptyAlignment reports that no overlap remained after alignment.
var ErrEmptyAlignment error = dataError("empty audio after alignment")

type capabilityError struct{ err error }

func (e capabilityError) Error() string   { return e.err.Error() }
func (e capabilityError) Unwrap() error   { return e.err }
func (e capabilityError) scoreKind() Kind { return KindCapability }

type inputError string

func (e inputError) Error() string   { return string(e) }
func (e inputError) scoreKind() Kind { return KindInput }

type thresholdError string

func (e thresholdError) Error() string   { return string(e) }
func (e thresholdError) scoreKind() Kind { return KindThreshold }

// Result is the outcome of one evaluation. It marshals to the single JSON
// object the tool prints on stdout.
type Result struct {
	MOS         *float64 `json:"mos"`
	LatencyMS   *float64 `json:"latency_ms"`
	Error       *string  `json:"error"`
	Mode        string   `json:"mode"`
	Correlation *float64 `json:"correlation,omitempty"`
	Spearman    *float64 `json:"spearman,omitempty"`
	Warning     string   `json:"warning,omitempty"`

	// ErrorKind categorizes the failure for programmatic callers. Not part
	// of the wire format.
	ErrorKind Kind `json:"-"`
}

// Failed returns whether the result carries an error.
func (r *Result) Failed() bool {
	return r.Error != nil
}

func (r *Result) fail(err error) {
	message := err.Error()
	r.Error = &message
	r.ErrorKind = KindOf(err)
}

// CheckThresholds applies an optional quality gate to a successful result.
// Negative limits disable the respective check. Violations populate the
// result error, making the evaluation fail.
func (r *Result) CheckThresholds(minMOS, maxLatencyMS float64) {
	if r.Failed() {
		return
	}
	notes := []string{}
	if minMOS >= 0 && r.MOS != nil && *r.MOS < minMOS {
		notes = append(notes, fmt.Sprintf("MOS %.2f < %.2f", *r.MOS, minMOS))
	}
	if maxLatencyMS >= 0 && r.LatencyMS != nil && *r.LatencyMS > maxLatencyMS {
		notes = append(notes, fmt.Sprintf("Latency %.1fms > %.1fms", *r.LatencyMS, maxLatencyMS))
	}
	if len(notes) > 0 {
		r.fail(thresholdError(strings.Join(notes, "; ")))
	}
}

// Scorer scores the degraded audio file against the reference.
type Scorer interface {
	Score(referencePath, degradedPath string) Result
}

// Capabilities holds the external dependencies that initialized successfully
// at startup.
type Capabilities struct {
	// Loader loads audio with whatever decode/resample support was found.
	Loader *aio.Loader
	// PESQBinary is the resolved path of the perceptual metric binary, or
	// empty if it wasn't found.
	PESQBinary string
}

// DetectCapabilities probes the system for the loader dependencies and the
// named PESQ metric binary.
func DetectCapabilities(pesqBinary string) Capabilities {
	result := Capabilities{Loader: aio.Detect()}
	if path, err := exec.LookPath(pesqBinary); err == nil {
		result.PESQBinary = path
	}
	return result
}

// Select returns the scorer strategy for the detected capabilities, and a
// warning to attach to the result when the perceptual path is unavailable
// without the fallback having been asked for.
func (c Capabilities) Select(mode pesq.Mode, fallback bool) (Scorer, string) {
	if c.PESQBinary != "" && !fallback {
		return &Perceptual{
			Loader:  c.Loader,
			Aligner: align.CrossCorrelation{},
			Binary:  c.PESQBinary,
			Mode:    mode,
		}, ""
	}
	warning := ""
	if c.PESQBinary == "" && !fallback {
		warning = FallbackWarning
	}
	return &Correlation{
		Loader:  c.Loader,
		Aligner: align.CrossCorrelation{},
	}, warning
}

// Perceptual scores with the external PESQ metric at the mode's sample rate.
type Perceptual struct {
	Loader  *aio.Loader
	Aligner align.Aligner
	Binary  string
	Mode    pesq.Mode
}

// Score loads, aligns, and hands both signals to the metric process. Any
// failure is caught here and reported in the result.
func (p *Perceptual) Score(referencePath, degradedPath string) Result {
	result := Result{Mode: string(p.Mode)}
	if !p.Mode.Valid() {
		result.fail(inputError(fmt.Sprintf("unknown mode %q", p.Mode)))
		return result
	}
	targetRate := p.Mode.Rate()
	reference, err := p.Loader.Load(referencePath, targetRate)
	if err != nil {
		result.fail(err)
		return result
	}
	degraded, err := p.Loader.Load(degradedPath, targetRate)
	if err != nil {
		result.fail(err)
		return result
	}
	if reference.Rate != degraded.Rate {
		result.fail(RateMismatchError{Reference: reference.Rate, Degraded: degraded.Rate})
		return result
	}
	alignment := p.Aligner.Align(reference.Mono(), degraded.Mono(), reference.Rate)
	latency := round(alignment.LatencyMS, 2)
	result.LatencyMS = &latency
	metric, err := pesq.Start(p.Binary, p.Mode)
	if err != nil {
		result.fail(capabilityError{err})
		return result
	}
	defer metric.Close()
	mos, err := metric.MOS(reference.Rate, alignment.Reference, alignment.Degraded)
	if err != nil {
		result.fail(err)
		return result
	}
	rounded := round(mos, 3)
	result.MOS = &rounded
	return result
}

// Correlation approximates a MOS from the Pearson correlation of the aligned
// signals. The mapping to the MOS scale is a linear heuristic, not a
// calibrated perceptual model: a correlation of 1.0 maps to 4.5, anything at
// or below 0 maps to 1.0.
type Correlation struct {
	Loader  *aio.Loader
	Aligner align.Aligner
}

// Score loads both files at FallbackRate, aligns them, and maps their
// correlation onto the nominal MOS scale. The raw Pearson and Spearman
// coefficients are reported for diagnostics.
func (c *Correlation) Score(referencePath, degradedPath string) Result {
	result := Result{Mode: "correlation"}
	reference, err := c.Loader.Load(referencePath, FallbackRate)
	if err != nil {
		result.fail(err)
		return result
	}
	degraded, err := c.Loader.Load(degradedPath, FallbackRate)
	if err != nil {
		result.fail(err)
		return result
	}
	if reference.Rate != degraded.Rate {
		result.fail(RateMismatchError{Reference: reference.Rate, Degraded: degraded.Rate})
		return result
	}
	alignment := c.Aligner.Align(reference.Mono(), degraded.Mono(), reference.Rate)
	latency := round(alignment.LatencyMS, 2)
	result.LatencyMS = &latency
	if len(alignment.Reference) == 0 {
		result.fail(ErrEmptyAlignment)
		return result
	}
	pearson := stat.Correlation(alignment.Reference, alignment.Degraded, nil)
	if math.IsNaN(pearson) {
		result.fail(dataError("correlation is undefined for constant signals"))
		return result
	}
	mos := round(1.0+3.5*math.Max(0, pearson), 3)
	result.MOS = &mos
	correlation := round(pearson, 4)
	result.Correlation = &correlation
	rankCorrelation, _ := onlinestats.Spearman(alignment.Reference, alignment.Degraded)
	if !math.IsNaN(rankCorrelation) {
		rounded := round(rankCorrelation, 4)
		result.Spearman = &rounded
	}
	return result
}

func round(value float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(value*scale) / scale
}
