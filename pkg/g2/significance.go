package g2

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/charlie0129/leptong2/pkg/calibration"
	"github.com/charlie0129/leptong2/pkg/lepton"
)

// Input is one significance evaluation.
type Input struct {
	Species lepton.Species
	Variant calibration.Variant
	Mode    Mode
	// Offset is the raw offset δa, compared against calibration entries.
	Offset float64
	// Contribution is the BSM contribution derived from Offset.
	Contribution float64
}

// Result is the outcome of a significance evaluation. Computed is always set,
// whether or not an override was applied.
type Result struct {
	Species         lepton.Species      `json:"species"`
	Variant         calibration.Variant `json:"variant"`
	Mode            Mode                `json:"mode"`
	Offset          float64             `json:"offset"`
	Contribution    float64             `json:"contribution"`
	Total           float64             `json:"total"`
	Delta           float64             `json:"delta"`
	Computed        float64             `json:"computedSignificance"`
	Applied         float64             `json:"appliedSignificance"`
	OverrideApplied bool                `json:"overrideApplied"`
	// PValue is the two-sided p-value of Computed.
	PValue float64            `json:"pValue"`
	Entry  *calibration.Entry `json:"entry,omitempty"`
	Steps  []calibration.Step `json:"steps"`
}

// Engine evaluates significances against a measurement set and a calibration
// table. It holds no mutable state.
type Engine struct {
	table        *calibration.Table
	measurements Measurements
	log          logrus.FieldLogger
}

// NewEngine returns an engine. A nil logger selects the logrus standard logger.
func NewEngine(table *calibration.Table, measurements Measurements, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		table:        table,
		measurements: measurements.clone(),
		log:          log,
	}
}

// Measurement returns the experimental constants of s.
func (e *Engine) Measurement(s lepton.Species) (Measurement, error) {
	if err := s.Validate(); err != nil {
		return Measurement{}, err
	}
	return e.measurements[s], nil
}

// Evaluate runs ComputeReal → CheckOverride → {ApplyOverride, PassThrough}.
func (e *Engine) Evaluate(in Input) (Result, error) {
	m, err := e.Measurement(in.Species)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Species:      in.Species,
		Variant:      in.Variant,
		Mode:         in.Mode,
		Offset:       in.Offset,
		Contribution: in.Contribution,
	}

	log := e.log.WithFields(logrus.Fields{
		"species": in.Species,
		"variant": in.Variant,
		"mode":    in.Mode,
		"offset":  in.Offset,
	})

	var entry calibration.Entry
	step := calibration.StepComputeReal
	for {
		res.Steps = append(res.Steps, step)

		switch step {
		case calibration.StepComputeReal:
			if m.Uncertainty == 0 {
				return Result{}, fmt.Errorf("%w for %s", ErrDivisionByZero, in.Species)
			}
			res.Total = m.SM + in.Contribution
			res.Delta = res.Total - m.Experimental
			res.Computed = res.Delta / m.Uncertainty
			if !finite(in.Offset, in.Contribution, res.Total, res.Delta, res.Computed) {
				return Result{}, fmt.Errorf("%w: %s significance of offset %v", ErrNonFinite, in.Species, in.Offset)
			}
			// CDF is built on Erfc and keeps precision far into the tail.
			res.PValue = 2 * distuv.UnitNormal.CDF(-math.Abs(res.Computed))
			step = calibration.StepCheckOverride
		case calibration.StepCheckOverride:
			var ok bool
			entry, ok = e.table.Lookup(in.Species, in.Variant)
			if in.Mode.Benchmark() && ok && entry.Matches(in.Offset) {
				step = calibration.StepApplyOverride
			} else {
				step = calibration.StepPassThrough
			}
		case calibration.StepApplyOverride:
			res.Applied = entry.TargetSignificance
			res.OverrideApplied = true
			res.Entry = &entry
			log.WithFields(logrus.Fields{
				"computed": res.Computed,
				"applied":  res.Applied,
			}).Infof("using calibrated significance for %s: %.2fσ (calculated: %.2fσ)", in.Species, res.Applied, res.Computed)
			return res, nil
		case calibration.StepPassThrough:
			res.Applied = res.Computed
			log.WithField("computed", res.Computed).Debugf("computed significance for %s: %.2fσ", in.Species, res.Computed)
			return res, nil
		}
	}
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
