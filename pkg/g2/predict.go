package g2

import (
	"fmt"
	"math"

	"github.com/charlie0129/leptong2/pkg/calibration"
	"github.com/charlie0129/leptong2/pkg/lepton"
)

// DefaultChernClass is the first Chern class c₁ of the canonical model.
const DefaultChernClass = 2.0

// TopologicalArea returns the normalised area of S² × S², 16π².
func TopologicalArea() float64 {
	return 16.0 * math.Pi * math.Pi
}

// Prediction is the BSM half of a computation.
type Prediction struct {
	Species    lepton.Species      `json:"species"`
	Variant    calibration.Variant `json:"variant"`
	Offset     float64             `json:"offset"`
	Source     OffsetSource        `json:"offsetSource"`
	PhiLepton  float64             `json:"phiLepton"`
	PhiHeavy   float64             `json:"phiHeavy"`
	MassLepton float64             `json:"massLepton"`
	MassHeavy  float64             `json:"massHeavy"`
	Omega      float64             `json:"omega"`
	C2         float64             `json:"c2"`
	Pinned     bool                `json:"pinned"`
	Lambda     float64             `json:"lambda"`
	Amplitude  float64             `json:"amplitude"`
	// Contribution is a_BSM, the correction added to the SM prediction.
	Contribution float64 `json:"contribution"`
}

// predictor computes predictions from a snapshot of calculator state.
type predictor struct {
	table      *calibration.Table
	phases     Phases
	chernClass float64
}

// heavy returns the phase and mass of the heavy partner of s, and the species
// used as the second member of the pair for the Ω rule.
func (p predictor) heavy(s lepton.Species, phi float64) (phiHeavy, massHeavy float64, partner lepton.Species, err error) {
	if h, ok := s.Partner(); ok {
		phiHeavy, err = p.phases.Get(h)
		return phiHeavy, h.Mass(), h, err
	}
	// Hypothetical partner of the tau: the pair is (τ, τ) and Ω falls back to
	// the heavy phase.
	return phi * lepton.HypotheticalPhaseFactor, s.Mass() * lepton.HypotheticalMassFactor, s, nil
}

func (p predictor) predict(s lepton.Species, v calibration.Variant, offset float64) (Prediction, error) {
	phi, err := p.phases.Get(s)
	if err != nil {
		return Prediction{}, err
	}
	phiHeavy, massHeavy, partner, err := p.heavy(s, phi)
	if err != nil {
		return Prediction{}, err
	}

	omegaPhi := phiHeavy
	if OverlapSource(s, partner) == s && partner != s {
		omegaPhi = phi
	}
	c2, omega := coefficient(phi, phiHeavy, omegaPhi, v)

	pinned := false
	if v.OverlapCorrected() && partner != s {
		if value, ok := p.table.Pinned(s, partner, phi, phiHeavy); ok {
			c2, pinned = value, true
		}
	}

	pred := Prediction{
		Species:    s,
		Variant:    v,
		Offset:     offset,
		PhiLepton:  phi,
		PhiHeavy:   phiHeavy,
		MassLepton: s.Mass(),
		MassHeavy:  massHeavy,
		Omega:      omega,
		C2:         c2,
		Pinned:     pinned,
		Lambda:     c2 / TopologicalArea(),
	}

	if !v.Canonical() {
		pred.Contribution = offset
	} else {
		k := math.Pow(massHeavy/pred.MassLepton, 2)
		epsilon := c2 / (p.chernClass*p.chernClass + k)
		pred.Amplitude = offset * k * epsilon
		pred.Contribution = pred.Amplitude * (1.0 - math.Exp(-pred.Lambda*c2))
	}

	if !finite(offset, phi, phiHeavy, pred.Omega, pred.C2, pred.Lambda, pred.Amplitude, pred.Contribution) {
		return Prediction{}, fmt.Errorf("%w: %s %s prediction (φ=%v, c₂=%v, δa=%v)", ErrNonFinite, v, s, phi, pred.C2, offset)
	}
	return pred, nil
}
