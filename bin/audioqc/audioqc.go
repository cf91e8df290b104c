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

// audioqc measures perceptual audio quality and latency between a reference
// and a degraded audio file, printing exactly one JSON result object on
// stdout. The exit status is 1 when the result carries an error, 0 otherwise.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mkarlsen/audioqc/pesq"
	"github.com/mkarlsen/audioqc/score"
)

func main() {
	var referencePath, degradedPath, mode, jsonInput string
	var fallback bool
	flag.StringVar(&referencePath, "reference", "", "Reference audio file path.")
	flag.StringVar(&referencePath, "r", "", "Shorthand for -reference.")
	flag.StringVar(&degradedPath, "degraded", "", "Degraded audio file path.")
	flag.StringVar(&degradedPath, "d", "", "Shorthand for -degraded.")
	flag.StringVar(&mode, "mode", string(pesq.Wideband), "PESQ mode: wb (wideband 16kHz) or nb (narrowband 8kHz).")
	flag.StringVar(&mode, "m", string(pesq.Wideband), "Shorthand for -mode.")
	flag.StringVar(&jsonInput, "json", "", "JSON request with reference and degraded paths, taking precedence over the other input flags.")
	flag.StringVar(&jsonInput, "j", "", "Shorthand for -json.")
	flag.BoolVar(&fallback, "fallback", false, "Use correlation-based scoring instead of PESQ.")
	flag.BoolVar(&fallback, "f", false, "Shorthand for -fallback.")
	pesqBinary := flag.String("pesq_bin", pesq.DefaultBinary, "PESQ metric binary speaking the READY/REF/DIST/SCORE pipe protocol.")
	minMOS := flag.Float64("min_mos", -1, "Fail unless the scored MOS is at least this. Negative disables the gate.")
	maxLatency := flag.Float64("max_latency", -1, "Fail if the estimated latency exceeds this many milliseconds. Negative disables the gate.")
	flag.Parse()

	var request *score.Request
	if jsonInput != "" {
		var err error
		if request, err = score.ParseRequest(jsonInput); err != nil {
			emitError(err.Error())
		}
	} else {
		if referencePath == "" || degradedPath == "" {
			fmt.Fprintln(os.Stderr, "-reference and -degraded are required (or use -json)")
			flag.Usage()
			os.Exit(2)
		}
		if !pesq.Mode(mode).Valid() {
			fmt.Fprintf(os.Stderr, "unknown mode %q, want wb or nb\n", mode)
			flag.Usage()
			os.Exit(2)
		}
		request = &score.Request{
			Reference: referencePath,
			Degraded:  degradedPath,
			Mode:      pesq.Mode(mode),
			Fallback:  fallback,
		}
	}

	if err := request.Validate(); err != nil {
		emitError(err.Error())
	}

	capabilities := score.DetectCapabilities(*pesqBinary)
	scorer, warning := capabilities.Select(request.Mode, request.Fallback)
	result := scorer.Score(request.Reference, request.Degraded)
	result.Warning = warning
	result.CheckThresholds(*minMOS, *maxLatency)

	emit(result)
	if result.Failed() {
		os.Exit(1)
	}
}

// emit prints the single JSON object this tool is contracted to produce.
func emit(value any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		log.Fatal(err)
	}
}

func emitError(message string) {
	emit(map[string]string{"error": message})
	os.Exit(1)
}
