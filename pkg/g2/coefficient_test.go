package g2

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlie0129/leptong2/pkg/calibration"
	"github.com/charlie0129/leptong2/pkg/lepton"
)

func TestOverlap(t *testing.T) {
	assert.Equal(t, 1.0, Overlap(0))
	assert.InDelta(t, 0.0, Overlap(4*math.Pi), 1e-12)
	assert.InDelta(t, 0.656225, Overlap(4.32), 1e-6)
	assert.InDelta(t, 0.827317, Overlap(2.17), 1e-6)
	// Negative and large phases are accepted.
	assert.Greater(t, Overlap(-1), 1.0)
	assert.Less(t, Overlap(20), 0.0)
}

func TestOverlapSource(t *testing.T) {
	tests := []struct {
		a, b lepton.Species
		want lepton.Species
	}{
		{lepton.Muon, lepton.Tau, lepton.Muon},
		{lepton.Tau, lepton.Muon, lepton.Muon},
		{lepton.Electron, lepton.Muon, lepton.Electron},
		{lepton.Muon, lepton.Electron, lepton.Electron},
		{lepton.Electron, lepton.Tau, lepton.Electron},
		{lepton.Tau, lepton.Tau, lepton.Tau},
		{lepton.Muon, lepton.Muon, lepton.Muon},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OverlapSource(tt.a, tt.b), "%s-%s", tt.a, tt.b)
	}
}

func TestCoefficientDefaults(t *testing.T) {
	p := DefaultPhases()

	tests := []struct {
		a, b lepton.Species
		v    calibration.Variant
		want float64
	}{
		{lepton.Muon, lepton.Tau, calibration.VariantV36, 90.9792},
		{lepton.Muon, lepton.Tau, calibration.VariantV361, 2 * 4.32 * 10.53 * Overlap(4.32)},
		{lepton.Electron, lepton.Muon, calibration.VariantV36, 18.7488},
		{lepton.Electron, lepton.Muon, calibration.VariantV361, 2 * 2.17 * 4.32 * Overlap(2.17)},
		{lepton.Electron, lepton.Tau, calibration.VariantV361, 2 * 2.17 * 10.53 * Overlap(2.17)},
		{lepton.Tau, lepton.Tau, calibration.VariantV361, 2 * 10.53 * 10.53 * Overlap(10.53)},
		{lepton.Muon, lepton.Tau, calibration.VariantStandard, 90.9792},
	}
	for _, tt := range tests {
		got, err := p.Coefficient(tt.a, tt.b, tt.v)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-9, "%s-%s %s", tt.a, tt.b, tt.v)
	}

	got, err := p.Coefficient(lepton.Muon, lepton.Tau, calibration.VariantV361)
	require.NoError(t, err)
	assert.InDelta(t, 59.70, got, 0.01)

	_, err = p.Coefficient("quark", lepton.Tau, calibration.VariantV36)
	assert.ErrorIs(t, err, lepton.ErrInvalidSpecies)
}

// The corrected coefficient never exceeds the baseline in magnitude while
// every Ω of the pair rule lies in (0, 1).
func TestCoefficientCorrectionDamps(t *testing.T) {
	grid := []float64{0.01, 0.5, 1, 2.17, 3.3, 4.32, 6, 8.8, 10.53, 12.5}
	for _, pe := range grid {
		for _, pm := range grid {
			for _, pt := range grid {
				p := Phases{Electron: pe, Muon: pm, Tau: pt}
				for _, a := range lepton.All {
					for _, b := range lepton.All {
						phi, _ := p.Get(OverlapSource(a, b))
						omega := Overlap(phi)
						if omega <= 0 || omega >= 1 {
							continue
						}
						base, err := p.Coefficient(a, b, calibration.VariantV36)
						require.NoError(t, err)
						corr, err := p.Coefficient(a, b, calibration.VariantV361)
						require.NoError(t, err)
						assert.LessOrEqual(t, math.Abs(corr), math.Abs(base))
					}
				}
			}
		}
	}
}

func TestPhasesGetSet(t *testing.T) {
	p := DefaultPhases()
	for _, s := range lepton.All {
		v, err := p.Get(s)
		require.NoError(t, err)
		assert.Equal(t, s.DefaultPhase(), v)
	}

	require.NoError(t, p.Set(lepton.Tau, -3.5))
	v, _ := p.Get(lepton.Tau)
	assert.Equal(t, -3.5, v)

	assert.ErrorIs(t, p.Set("quark", 1), lepton.ErrInvalidSpecies)
	_, err := p.Get("quark")
	assert.ErrorIs(t, err, lepton.ErrInvalidSpecies)
}
