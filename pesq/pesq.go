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

// Package pesq runs an external ITU-T P.862 PESQ metric process communicating
// via pipes.
//
// The metric binary announces itself with a "READY:<score type>" line on
// stdout, then requests the reference and degraded file paths with "REF" and
// "DIST" lines, and answers with a "SCORE=<float>" line. The binary decides
// nothing about alignment or rates; it scores exactly the two files it is
// handed.
package pesq

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mkarlsen/audioqc/audio"
)

// DefaultBinary is the metric binary name looked up on PATH when no explicit
// path is configured.
const DefaultBinary = "pesqpipe"

// Mode selects the PESQ operating mode and its required sample rate.
type Mode string

const (
	// Wideband is P.862.2 wideband mode, operating at 16 kHz.
	Wideband Mode = "wb"
	// Narrowband is P.862 narrowband mode, operating at 8 kHz.
	Narrowband Mode = "nb"
)

// Valid returns whether m is a known mode.
func (m Mode) Valid() bool {
	return m == Wideband || m == Narrowband
}

// Rate returns the sample rate the mode operates at.
func (m Mode) Rate() int {
	if m == Narrowband {
		return 8000
	}
	return 16000
}

// Metric wraps a pipe-communicating PESQ process.
type Metric struct {
	cmd       *exec.Cmd
	scoreType string
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	stderr    *bytes.Buffer
	nextLine  string
}

// Start starts a new metric process in the given mode.
func Start(path string, mode Mode) (*Metric, error) {
	cmd := exec.Command(path, "-mode", string(mode))
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdin pipe for %v: %v", cmd, err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe for %v: %v", cmd, err)
	}
	m := &Metric{
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
		stdout: bufio.NewReader(stdout),
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("running %v: %v\n%s", cmd, err, stderr)
	}
	return m, nil
}

func (m *Metric) awaitReady() error {
	if m.scoreType != "" {
		return nil
	}
	var err error
	for ; err == nil && !strings.HasPrefix(m.nextLine, "READY:"); m.nextLine, err = m.stdout.ReadString('\n') {
	}
	if err != nil {
		return fmt.Errorf("waiting for READY: %v\n%s", err, m.stderr)
	}
	scoreType, found := strings.CutPrefix(strings.TrimSpace(m.nextLine), "READY:")
	if !found {
		return fmt.Errorf("%q doesn't have the prefix 'READY:'", m.nextLine)
	}
	m.scoreType = scoreType
	return nil
}

func (m *Metric) await(msg string) error {
	var err error
	for ; err == nil && strings.TrimSpace(m.nextLine) != msg; m.nextLine, err = m.stdout.ReadString('\n') {
	}
	if err != nil {
		return fmt.Errorf("waiting for %q: %v\n%s", msg, err, m.stderr)
	}
	return nil
}

// MOS waits until the process is ready and returns its score for the provided
// aligned reference and degraded signals at the given rate.
func (m *Metric) MOS(rate int, reference, degraded []float64) (float64, error) {
	if err := m.awaitReady(); err != nil {
		return 0, err
	}
	refPath, err := dumpWAV(reference, rate)
	if err != nil {
		return 0, fmt.Errorf("dumping reference audio: %v", err)
	}
	defer os.Remove(refPath)
	degPath, err := dumpWAV(degraded, rate)
	if err != nil {
		return 0, fmt.Errorf("dumping degraded audio: %v", err)
	}
	defer os.Remove(degPath)
	if err := m.await("REF"); err != nil {
		return 0, err
	}
	if _, err := fmt.Fprintln(m.stdin, refPath); err != nil {
		return 0, fmt.Errorf("printing ref path: %v\n%s", err, m.stderr)
	}
	if err := m.await("DIST"); err != nil {
		return 0, err
	}
	if _, err := fmt.Fprintln(m.stdin, degPath); err != nil {
		return 0, fmt.Errorf("printing dist path: %v\n%s", err, m.stderr)
	}
	for ; err == nil && !strings.HasPrefix(m.nextLine, "SCORE="); m.nextLine, err = m.stdout.ReadString('\n') {
	}
	if err != nil {
		return 0, fmt.Errorf("waiting for SCORE=: %v\n%s", err, m.stderr)
	}
	scoreString, found := strings.CutPrefix(strings.TrimSpace(m.nextLine), "SCORE=")
	if !found {
		return 0, fmt.Errorf("%q doesn't have the prefix SCORE=", m.nextLine)
	}
	return strconv.ParseFloat(scoreString, 64)
}

// Close shuts the process down by closing its stdin and waits for it to exit.
func (m *Metric) Close() error {
	if err := m.stdin.Close(); err != nil {
		m.cmd.Wait()
		return err
	}
	return m.cmd.Wait()
}

func dumpWAV(signal []float64, rate int) (string, error) {
	f, err := os.CreateTemp(os.TempDir(), "audioqc.pesq.*.wav")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := audio.EncodeWAV(f, signal, rate); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
