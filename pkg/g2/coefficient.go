package g2

import (
	"math"

	"github.com/charlie0129/leptong2/pkg/calibration"
	"github.com/charlie0129/leptong2/pkg/lepton"
)

// Overlap returns the overlap factor Ω = 1 − φ/(4π). Any real φ is accepted.
func Overlap(phi float64) float64 {
	return 1.0 - phi/(4.0*math.Pi)
}

// OverlapSource returns the species whose phase feeds Ω for the pair (a, b):
//
//	(μ,τ) → μ
//	(e,μ) → e
//	(e,τ) → e
//
// The known pairs match in either order. Any other pair, including a species
// paired with itself, uses the phase of b.
func OverlapSource(a, b lepton.Species) lepton.Species {
	switch {
	case isPair(a, b, lepton.Muon, lepton.Tau):
		return lepton.Muon
	case isPair(a, b, lepton.Electron, lepton.Muon):
		return lepton.Electron
	case isPair(a, b, lepton.Electron, lepton.Tau):
		return lepton.Electron
	}
	return b
}

func isPair(a, b, x, y lepton.Species) bool {
	return (a == x && b == y) || (a == y && b == x)
}

// BaselineCoefficient returns c₂ = 2·φa·φb.
func BaselineCoefficient(phiA, phiB float64) float64 {
	return 2.0 * phiA * phiB
}

// coefficient applies Ω(omegaPhi) to the baseline when v is overlap-corrected.
// The returned omega is 1 for uncorrected variants.
func coefficient(phiA, phiB, omegaPhi float64, v calibration.Variant) (c2, omega float64) {
	c2 = BaselineCoefficient(phiA, phiB)
	if !v.OverlapCorrected() {
		return c2, 1.0
	}
	omega = Overlap(omegaPhi)
	return c2 * omega, omega
}

// Coefficient returns c₂(a,b) for the stored phases under v, using the pair
// rule of OverlapSource for V36.1. It never consults pinned coefficients.
func (p Phases) Coefficient(a, b lepton.Species, v calibration.Variant) (float64, error) {
	phiA, err := p.Get(a)
	if err != nil {
		return 0, err
	}
	phiB, err := p.Get(b)
	if err != nil {
		return 0, err
	}
	omegaPhi, err := p.Get(OverlapSource(a, b))
	if err != nil {
		return 0, err
	}
	c2, _ := coefficient(phiA, phiB, omegaPhi, v)
	return c2, nil
}
