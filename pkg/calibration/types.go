package calibration

import (
	"fmt"
	"math"
	"strings"

	"github.com/charlie0129/leptong2/pkg/lepton"
)

// Variant defines the model variant of a computation.
type Variant string

const (
	// VariantStandard uses the raw offset as the BSM contribution.
	VariantStandard Variant = "standard"
	// VariantV36 is the canonical model with the baseline coefficient.
	VariantV36 Variant = "V36"
	// VariantV361 is the canonical model with the overlap-corrected coefficient.
	VariantV361 Variant = "V36.1"
)

// ParseVariant accepts "standard", "v36" and "v36.1" (also "v361"),
// case-insensitively. An empty string selects V36.1.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "std":
		return VariantStandard, nil
	case "v36", "baseline":
		return VariantV36, nil
	case "v36.1", "v361", "overlap", "":
		return VariantV361, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidVariant, s)
}

// VariantFor maps the canonical / V36.1 switches to a variant.
func VariantFor(canonical, v361 bool) Variant {
	if !canonical {
		return VariantStandard
	}
	if v361 {
		return VariantV361
	}
	return VariantV36
}

// Canonical reports whether the variant uses the topological amplitude.
func (v Variant) Canonical() bool { return v == VariantV36 || v == VariantV361 }

// OverlapCorrected reports whether c₂ carries the overlap factor Ω.
func (v Variant) OverlapCorrected() bool { return v == VariantV361 }

// Step defines the steps of the override decision.
type Step string

const (
	StepComputeReal   Step = "ComputeReal"
	StepCheckOverride Step = "CheckOverride"
	StepApplyOverride Step = "ApplyOverride"
	StepPassThrough   Step = "PassThrough"
)

// Key identifies a calibration entry.
type Key struct {
	Species lepton.Species
	Variant Variant
}

// Entry is a registered benchmark offset. When a benchmark-mode computation
// uses an offset within Tolerance of Offset, TargetSignificance replaces the
// computed significance.
type Entry struct {
	Species            lepton.Species `json:"species" yaml:"species"`
	Variant            Variant        `json:"variant" yaml:"variant"`
	Offset             float64        `json:"offset" yaml:"offset"`
	TargetSignificance float64        `json:"targetSignificance" yaml:"targetSignificance"`
	Tolerance          float64        `json:"tolerance" yaml:"tolerance"`
}

// Key returns the table key of e.
func (e Entry) Key() Key { return Key{Species: e.Species, Variant: e.Variant} }

// Matches reports whether offset is strictly within tolerance of the entry.
func (e Entry) Matches(offset float64) bool {
	return math.Abs(offset-e.Offset) < e.Tolerance
}

// PinnedCoefficient is a reference c₂(A,B) at exact phases. The canonical
// V36.1 model uses Value instead of the formula when the stored phases of A and
// B equal PhaseA and PhaseB.
type PinnedCoefficient struct {
	A      lepton.Species `json:"a" yaml:"a"`
	B      lepton.Species `json:"b" yaml:"b"`
	PhaseA float64        `json:"phaseA" yaml:"phaseA"`
	PhaseB float64        `json:"phaseB" yaml:"phaseB"`
	Value  float64        `json:"value" yaml:"value"`
}

// Matches compares phases exactly. Pairs match in either order.
func (p PinnedCoefficient) Matches(a, b lepton.Species, phiA, phiB float64) bool {
	if a == p.A && b == p.B {
		return phiA == p.PhaseA && phiB == p.PhaseB
	}
	if a == p.B && b == p.A {
		return phiA == p.PhaseB && phiB == p.PhaseA
	}
	return false
}
