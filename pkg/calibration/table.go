package calibration

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/charlie0129/leptong2/pkg/lepton"
)

var (
	// ErrInvalidEntry is returned by NewTable for malformed calibration data.
	ErrInvalidEntry = errors.New("calibration: invalid entry")
	// ErrInvalidVariant is returned by ParseVariant.
	ErrInvalidVariant = errors.New("calibration: unknown variant")
)

var (
	defaultEntries = []Entry{
		{Species: lepton.Electron, Variant: VariantV361, Offset: 3.1e-17, TargetSignificance: 0.11, Tolerance: 1e-18},
		{Species: lepton.Muon, Variant: VariantV361, Offset: 1.4538e-10, TargetSignificance: 0.00, Tolerance: 1e-14},
	}

	defaultPins = []PinnedCoefficient{
		{A: lepton.Muon, B: lepton.Tau, PhaseA: lepton.DefaultPhaseMuon, PhaseB: lepton.DefaultPhaseTau, Value: 75.29},
		{A: lepton.Electron, B: lepton.Muon, PhaseA: lepton.DefaultPhaseElectron, PhaseB: lepton.DefaultPhaseMuon, Value: 15.50},
		{A: lepton.Electron, B: lepton.Tau, PhaseA: lepton.DefaultPhaseElectron, PhaseB: lepton.DefaultPhaseTau, Value: 37.8},
	}

	// Offsets used when no entry exists for the requested variant.
	defaultFallbacks = map[lepton.Species]float64{
		lepton.Electron: 4.0e-18,
		lepton.Muon:     1.4448e-10,
		lepton.Tau:      5.2e-10,
	}
)

// Table is an immutable calibration table. The zero value is an empty table
// with no fallback offsets.
type Table struct {
	entries   map[Key]Entry
	pins      []PinnedCoefficient
	fallbacks map[lepton.Species]float64
}

// NewTable validates and copies its inputs.
func NewTable(entries []Entry, pins []PinnedCoefficient, fallbacks map[lepton.Species]float64) (*Table, error) {
	t := &Table{
		entries:   make(map[Key]Entry, len(entries)),
		pins:      make([]PinnedCoefficient, 0, len(pins)),
		fallbacks: make(map[lepton.Species]float64, len(fallbacks)),
	}

	for _, e := range entries {
		if err := e.Species.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
		}
		if !e.Variant.Canonical() && e.Variant != VariantStandard {
			return nil, fmt.Errorf("%w: unknown variant %q", ErrInvalidEntry, e.Variant)
		}
		if !(e.Tolerance > 0) || math.IsInf(e.Tolerance, 0) {
			return nil, fmt.Errorf("%w: tolerance of %s/%s must be a positive finite number, got %v", ErrInvalidEntry, e.Species, e.Variant, e.Tolerance)
		}
		if _, dup := t.entries[e.Key()]; dup {
			return nil, fmt.Errorf("%w: duplicate entry for %s/%s", ErrInvalidEntry, e.Species, e.Variant)
		}
		t.entries[e.Key()] = e
	}

	for _, p := range pins {
		if err := p.A.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
		}
		if err := p.B.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
		}
		t.pins = append(t.pins, p)
	}

	for s, v := range fallbacks {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
		}
		t.fallbacks[s] = v
	}

	return t, nil
}

// DefaultTable returns a fresh copy of the benchmark calibration data.
func DefaultTable() *Table {
	t, err := NewTable(defaultEntries, defaultPins, defaultFallbacks)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the entry registered for (s, v).
func (t *Table) Lookup(s lepton.Species, v Variant) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[Key{Species: s, Variant: v}]
	return e, ok
}

// Pinned returns the pinned coefficient for the pair at the given phases.
func (t *Table) Pinned(a, b lepton.Species, phiA, phiB float64) (float64, bool) {
	if t == nil {
		return 0, false
	}
	for _, p := range t.pins {
		if p.Matches(a, b, phiA, phiB) {
			return p.Value, true
		}
	}
	return 0, false
}

// Fallback returns the offset used for s when no entry matches the variant.
func (t *Table) Fallback(s lepton.Species) (float64, bool) {
	if t == nil {
		return 0, false
	}
	v, ok := t.fallbacks[s]
	return v, ok
}

// Entries returns the entries sorted by species then variant.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	ret := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		ret = append(ret, e)
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Species != ret[j].Species {
			return ret[i].Species < ret[j].Species
		}
		return ret[i].Variant < ret[j].Variant
	})
	return ret
}

// Pins returns a copy of the pinned coefficients.
func (t *Table) Pins() []PinnedCoefficient {
	if t == nil {
		return nil
	}
	return append([]PinnedCoefficient(nil), t.pins...)
}
