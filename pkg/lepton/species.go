package lepton

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSpecies is returned when a species outside {electron, muon, tau}
// is requested.
var ErrInvalidSpecies = errors.New("lepton: invalid species")

// Species identifies one of the three charged leptons.
type Species string

const (
	Electron Species = "electron"
	Muon     Species = "muon"
	Tau      Species = "tau"
)

// All lists the supported species from lightest to heaviest.
var All = []Species{Electron, Muon, Tau}

// Parse accepts a species name or its usual symbol, case-insensitively.
func Parse(s string) (Species, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "electron", "e":
		return Electron, nil
	case "muon", "mu", "μ":
		return Muon, nil
	case "tau", "τ":
		return Tau, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSpecies, s)
}

// Valid reports whether s is one of the supported species.
func (s Species) Valid() bool {
	switch s {
	case Electron, Muon, Tau:
		return true
	}
	return false
}

// Validate returns ErrInvalidSpecies (wrapped with the name) for unsupported species.
func (s Species) Validate() error {
	if !s.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSpecies, string(s))
	}
	return nil
}

// Symbol returns the conventional symbol used in reports.
func (s Species) Symbol() string {
	switch s {
	case Electron:
		return "e"
	case Muon:
		return "μ"
	case Tau:
		return "τ"
	}
	return string(s)
}

func (s Species) String() string { return string(s) }
