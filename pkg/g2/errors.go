package g2

import "errors"

var (
	// ErrDivisionByZero is returned when the experimental uncertainty of a
	// species is zero, which includes species without a measurement.
	ErrDivisionByZero = errors.New("g2: zero experimental uncertainty")

	// ErrInvalidScan is returned for offset sweeps with unusable bounds or steps.
	ErrInvalidScan = errors.New("g2: invalid scan options")

	// ErrNonFinite is returned when a prediction or significance overflows
	// or is NaN, for example after an absurd offset or phase.
	ErrNonFinite = errors.New("g2: non-finite result")

	// ErrInvalidMode is returned by ParseMode.
	ErrInvalidMode = errors.New("g2: unknown mode")
)
