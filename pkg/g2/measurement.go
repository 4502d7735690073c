package g2

import "github.com/charlie0129/leptong2/pkg/lepton"

// Measurement holds the experimental constants of a species. For the muon the
// experimental value is the measured discrepancy and SM is zero.
type Measurement struct {
	Experimental float64 `json:"experimental" yaml:"experimental"`
	SM           float64 `json:"sm" yaml:"sm"`
	Uncertainty  float64 `json:"uncertainty" yaml:"uncertainty"`
}

// Measured reports whether m carries a usable uncertainty.
func (m Measurement) Measured() bool { return m.Uncertainty != 0 }

// Measurements maps species to their experimental constants.
type Measurements map[lepton.Species]Measurement

// DefaultMeasurements returns the reference experimental constants. The tau
// has no precise measurement.
func DefaultMeasurements() Measurements {
	return Measurements{
		lepton.Electron: {Experimental: 1.15965218073e-3, SM: 1.15965218076e-3, Uncertainty: 2.8e-13},
		lepton.Muon:     {Experimental: 2.51e-9, SM: 0, Uncertainty: 6.3e-10},
		lepton.Tau:      {},
	}
}

func (m Measurements) clone() Measurements {
	ret := make(Measurements, len(m))
	for k, v := range m {
		ret[k] = v
	}
	return ret
}
