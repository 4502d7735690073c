package g2

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charlie0129/leptong2/pkg/calibration"
	"github.com/charlie0129/leptong2/pkg/lepton"
)

// sci formats very small magnitudes in scientific notation.
func sci(x float64) string {
	if math.Abs(x) < 1e-6 {
		return fmt.Sprintf("%.6e", x)
	}
	return fmt.Sprintf("%.8f", x)
}

// Report renders the prediction and significance of s under v. A species
// without a measurement is reported with N/A in place of the experimental
// value, deviation and significance.
func (c *Calculator) Report(s lepton.Species, v calibration.Variant) (string, error) {
	snap, err := c.snapshot(s, v, nil)
	if err != nil {
		return "", err
	}
	pred, err := snap.prediction(c.log, s, v)
	if err != nil {
		return "", err
	}

	res, err := c.engine.Evaluate(snap.input(s, v, pred.Contribution))
	measured := true
	if errors.Is(err, ErrDivisionByZero) {
		measured = false
	} else if err != nil {
		return "", err
	}
	m, err := c.engine.Measurement(s)
	if err != nil {
		return "", err
	}

	sym := s.Symbol()
	b := &strings.Builder{}
	line := func(label, value string) {
		fmt.Fprintf(b, "%-28s: %s\n", label, value)
	}

	fmt.Fprintf(b, "=== E-QFT %s: canonical g-2 prediction for the %s ===\n", v, s)
	if h, ok := s.Partner(); ok {
		line(fmt.Sprintf("Berry phases (φ_%s, φ_%s)", sym, h.Symbol()), fmt.Sprintf("%.6f, %.6f", pred.PhiLepton, pred.PhiHeavy))
	} else {
		line(fmt.Sprintf("Berry phase (φ_%s)", sym), fmt.Sprintf("%.6f", pred.PhiLepton))
	}
	if v.OverlapCorrected() {
		line("Overlap factor Ω", fmt.Sprintf("%.6f", pred.Omega))
	}
	c2 := fmt.Sprintf("%.6f", pred.C2)
	if pred.Pinned {
		c2 += " (pinned)"
	}
	line(fmt.Sprintf("c₂(%s,heavy)", sym), c2)
	line("Topological λ", fmt.Sprintf("%.6f", pred.Lambda))
	line(fmt.Sprintf("a_%s(BSM)", sym), sci(pred.Contribution))
	line(fmt.Sprintf("a_%s(SM)", sym), sci(m.SM))
	line(fmt.Sprintf("a_%s(total)", sym), sci(m.SM+pred.Contribution))

	if !measured {
		line(fmt.Sprintf("a_%s(exp)", sym), "N/A")
		line("Significance (σ)", "N/A")
		return b.String(), nil
	}

	line(fmt.Sprintf("a_%s(exp)", sym), sci(m.Experimental))
	line(fmt.Sprintf("Δa_%s", sym), sci(res.Delta))
	if res.OverrideApplied {
		line("Significance (σ)", fmt.Sprintf("%.2f (calibrated, computed %.2f)", res.Applied, res.Computed))
	} else {
		line("Significance (σ)", fmt.Sprintf("%.2f", res.Applied))
	}

	return b.String(), nil
}
