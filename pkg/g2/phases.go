package g2

import "github.com/charlie0129/leptong2/pkg/lepton"

// Phases holds the Berry phase of each species. Values are not validated.
type Phases struct {
	Electron float64 `json:"electron" yaml:"electron"`
	Muon     float64 `json:"muon" yaml:"muon"`
	Tau      float64 `json:"tau" yaml:"tau"`
}

// DefaultPhases returns the canonical phases.
func DefaultPhases() Phases {
	return Phases{
		Electron: lepton.DefaultPhaseElectron,
		Muon:     lepton.DefaultPhaseMuon,
		Tau:      lepton.DefaultPhaseTau,
	}
}

// Get returns the phase of s.
func (p Phases) Get(s lepton.Species) (float64, error) {
	switch s {
	case lepton.Electron:
		return p.Electron, nil
	case lepton.Muon:
		return p.Muon, nil
	case lepton.Tau:
		return p.Tau, nil
	}
	return 0, s.Validate()
}

// Set overwrites the phase of s.
func (p *Phases) Set(s lepton.Species, v float64) error {
	switch s {
	case lepton.Electron:
		p.Electron = v
	case lepton.Muon:
		p.Muon = v
	case lepton.Tau:
		p.Tau = v
	default:
		return s.Validate()
	}
	return nil
}
