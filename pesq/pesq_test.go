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

package pesq

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestMode(t *testing.T) {
	for _, tc := range []struct {
		mode      Mode
		wantValid bool
		wantRate  int
	}{
		{mode: Wideband, wantValid: true, wantRate: 16000},
		{mode: Narrowband, wantValid: true, wantRate: 8000},
		{mode: Mode("fullband"), wantValid: false},
		{mode: Mode(""), wantValid: false},
	} {
		if got := tc.mode.Valid(); got != tc.wantValid {
			t.Errorf("Mode(%q).Valid() = %v, want %v", tc.mode, got, tc.wantValid)
		}
		if tc.wantValid {
			if got := tc.mode.Rate(); got != tc.wantRate {
				t.Errorf("Mode(%q).Rate() = %v, want %v", tc.mode, got, tc.wantRate)
			}
		}
	}
}

// fakeMetric writes a shell script speaking the metric pipe protocol and
// answering with the given score.
func fakeMetric(t *testing.T, score string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake metric script requires a unix shell")
	}
	script := `#!/bin/sh
echo "READY:MOS-LQO"
echo "REF"
read ref_path
test -f "$ref_path" || exit 1
echo "DIST"
read dist_path
test -f "$dist_path" || exit 1
echo "SCORE=` + score + `"
`
	path := filepath.Join(t.TempDir(), "fakemetric")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMetricMOS(t *testing.T) {
	metric, err := Start(fakeMetric(t, "4.104"), Wideband)
	if err != nil {
		t.Fatal(err)
	}
	if err := metric.awaitReady(); err != nil {
		t.Fatal(err)
	}
	if metric.scoreType != "MOS-LQO" {
		t.Errorf("got score type %q, want %q", metric.scoreType, "MOS-LQO")
	}
	signal := make([]float64, 1600)
	for i := range signal {
		signal[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/16000)
	}
	mos, err := metric.MOS(16000, signal, signal)
	if err != nil {
		t.Fatal(err)
	}
	if mos != 4.104 {
		t.Errorf("got MOS %v, want 4.104", mos)
	}
	// Close must also reap the exited child.
	if err := metric.Close(); err != nil {
		t.Errorf("got close error %v, want nil", err)
	}
}

func TestStartMissingBinary(t *testing.T) {
	metric, err := Start(filepath.Join(t.TempDir(), "no-such-metric"), Wideband)
	if err == nil {
		metric.Close()
		t.Error("got nil error starting a missing metric binary")
	}
}
