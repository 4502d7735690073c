package g2

import (
	"github.com/charlie0129/leptong2/pkg/calibration"
	"github.com/charlie0129/leptong2/pkg/lepton"
)

// OffsetSource records where a resolved offset came from.
type OffsetSource string

const (
	SourceExplicit    OffsetSource = "explicit"
	SourceOverride    OffsetSource = "override"
	SourceCalibration OffsetSource = "calibration"
	SourceFallback    OffsetSource = "fallback"
	SourceNone        OffsetSource = "none"
)

// Resolver maps (species, variant) to the raw BSM offset δa. Per-species
// overrides take precedence over the calibration table, which takes precedence
// over the table's fallbacks. Resolver is not safe for concurrent use; the
// Calculator guards it.
type Resolver struct {
	table     *calibration.Table
	overrides map[lepton.Species]float64
}

// NewResolver returns a resolver reading from table.
func NewResolver(table *calibration.Table) *Resolver {
	return &Resolver{
		table:     table,
		overrides: map[lepton.Species]float64{},
	}
}

// Resolve returns the offset for (s, v). When nothing is configured the offset
// is 0 with SourceNone.
func (r *Resolver) Resolve(s lepton.Species, v calibration.Variant) (float64, OffsetSource, error) {
	if err := s.Validate(); err != nil {
		return 0, SourceNone, err
	}
	if o, ok := r.overrides[s]; ok {
		return o, SourceOverride, nil
	}
	if e, ok := r.table.Lookup(s, v); ok {
		return e.Offset, SourceCalibration, nil
	}
	if o, ok := r.table.Fallback(s); ok {
		return o, SourceFallback, nil
	}
	return 0, SourceNone, nil
}

// Set overrides the offset of s for every variant.
func (r *Resolver) Set(s lepton.Species, v float64) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.overrides[s] = v
	return nil
}

// Clear drops the override of s.
func (r *Resolver) Clear(s lepton.Species) error {
	if err := s.Validate(); err != nil {
		return err
	}
	delete(r.overrides, s)
	return nil
}

// Overrides returns a copy of the per-species overrides.
func (r *Resolver) Overrides() map[lepton.Species]float64 {
	ret := make(map[lepton.Species]float64, len(r.overrides))
	for k, v := range r.overrides {
		ret[k] = v
	}
	return ret
}
