package lepton

// Masses in GeV.
const (
	MassElectron = 0.000510998950
	MassMuon     = 0.105658
	MassTau      = 1.77686
)

// Canonical Berry phases used when a phase was never set explicitly.
const (
	DefaultPhaseElectron = 2.17
	DefaultPhaseMuon     = 4.32
	DefaultPhaseTau      = 10.53
)

// The tau has no heavier partner. Its heavy partner is a hypothetical lepton
// with twice the tau mass and 1.5 times the tau phase.
const (
	HypotheticalMassFactor  = 2.0
	HypotheticalPhaseFactor = 1.5
)

// Mass returns the mass of s in GeV, or 0 for an unsupported species.
func (s Species) Mass() float64 {
	switch s {
	case Electron:
		return MassElectron
	case Muon:
		return MassMuon
	case Tau:
		return MassTau
	}
	return 0
}

// DefaultPhase returns the canonical Berry phase of s.
func (s Species) DefaultPhase() float64 {
	switch s {
	case Electron:
		return DefaultPhaseElectron
	case Muon:
		return DefaultPhaseMuon
	case Tau:
		return DefaultPhaseTau
	}
	return 0
}

// Partner returns the next-heavier species paired with s in the canonical
// model. ok is false for the tau, whose partner is hypothetical.
func (s Species) Partner() (partner Species, ok bool) {
	switch s {
	case Electron:
		return Muon, true
	case Muon:
		return Tau, true
	}
	return "", false
}
