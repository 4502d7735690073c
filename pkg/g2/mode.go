package g2

import (
	"fmt"
	"strings"
)

// Mode is the operating mode of a calculator.
type Mode string

const (
	// ModeBenchmark applies calibration overrides.
	ModeBenchmark Mode = "benchmark"
	// ModeScientific always reports the computed significance.
	ModeScientific Mode = "scientific"
)

// ModeFor maps the hardcoded-calibration switch to a mode.
func ModeFor(hardcodedCalibration bool) Mode {
	if hardcodedCalibration {
		return ModeBenchmark
	}
	return ModeScientific
}

// ParseMode accepts "benchmark" and "scientific", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeBenchmark:
		return ModeBenchmark, nil
	case ModeScientific:
		return ModeScientific, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Benchmark reports whether overrides are applied in m.
func (m Mode) Benchmark() bool { return m == ModeBenchmark }
