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

package score

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mkarlsen/audioqc/pesq"
)

// Request describes one evaluation: which files to compare and how.
type Request struct {
	Reference string    `json:"reference"`
	Degraded  string    `json:"degraded"`
	Mode      pesq.Mode `json:"mode"`
	Fallback  bool      `json:"fallback"`
}

// ParseRequest decodes the JSON form of a request. Reference and degraded are
// required, mode defaults to wideband.
func ParseRequest(input string) (*Request, error) {
	request := &Request{}
	if err := json.Unmarshal([]byte(input), request); err != nil {
		return nil, inputError(fmt.Sprintf("Invalid JSON input: %v", err))
	}
	if request.Reference == "" {
		return nil, inputError(`Invalid JSON input: missing required key "reference"`)
	}
	if request.Degraded == "" {
		return nil, inputError(`Invalid JSON input: missing required key "degraded"`)
	}
	if request.Mode == "" {
		request.Mode = pesq.Wideband
	}
	if !request.Mode.Valid() {
		return nil, inputError(fmt.Sprintf("Invalid JSON input: unknown mode %q", request.Mode))
	}
	return request, nil
}

// Validate checks that both input files exist, so that missing inputs are
// reported before any loading or scoring starts.
func (r *Request) Validate() error {
	if _, err := os.Stat(r.Reference); err != nil {
		return inputError(fmt.Sprintf("Reference file not found: %v", r.Reference))
	}
	if _, err := os.Stat(r.Degraded); err != nil {
		return inputError(fmt.Sprintf("Degraded file not found: %v", r.Degraded))
	}
	return nil
}
