package g2

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/charlie0129/leptong2/pkg/calibration"
	"github.com/charlie0129/leptong2/pkg/lepton"
)

// DefaultScanTolerance is the accepted distance between the best significance
// and the target.
const DefaultScanTolerance = 0.05

// MaxScanSteps bounds the number of offsets a single sweep evaluates.
const MaxScanSteps = 100_000

// ScanOptions configures an offset sweep.
type ScanOptions struct {
	Species lepton.Species      `json:"species"`
	Variant calibration.Variant `json:"variant"`
	From    float64             `json:"from"`
	To      float64             `json:"to"`
	Steps   int                 `json:"steps"`
	// Target is the significance the sweep looks for, usually 0.
	Target float64 `json:"target"`
	// Tolerance defaults to DefaultScanTolerance when zero.
	Tolerance float64 `json:"tolerance"`
}

// ScanPoint is one evaluated offset.
type ScanPoint struct {
	Offset       float64 `json:"offset"`
	Contribution float64 `json:"contribution"`
	Significance float64 `json:"significance"`
}

// ScanResult summarises a sweep. Significances are always the computed values.
type ScanResult struct {
	Species   lepton.Species      `json:"species"`
	Variant   calibration.Variant `json:"variant"`
	Target    float64             `json:"target"`
	Tolerance float64             `json:"tolerance"`
	Points    []ScanPoint         `json:"points"`
	Best      ScanPoint           `json:"best"`
	Converged bool                `json:"converged"`
	Min       float64             `json:"min"`
	Max       float64             `json:"max"`
	Mean      float64             `json:"mean"`
}

func (o ScanOptions) validate() error {
	if err := o.Species.Validate(); err != nil {
		return err
	}
	if o.Steps < 2 {
		return fmt.Errorf("%w: need at least 2 steps, got %d", ErrInvalidScan, o.Steps)
	}
	if o.Steps > MaxScanSteps {
		return fmt.Errorf("%w: at most %d steps, got %d", ErrInvalidScan, MaxScanSteps, o.Steps)
	}
	for _, x := range []float64{o.From, o.To, o.Target, o.Tolerance} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: bounds, target and tolerance must be finite", ErrInvalidScan)
		}
	}
	if o.From == o.To {
		return fmt.Errorf("%w: empty offset range", ErrInvalidScan)
	}
	if o.Tolerance < 0 {
		return fmt.Errorf("%w: negative tolerance", ErrInvalidScan)
	}
	return nil
}

// Scan sweeps the raw offset of opts.Species over [From, To] and reports the
// offset whose computed significance is closest to Target. Scans ignore the
// operating mode and never apply overrides.
func (c *Calculator) Scan(opts ScanOptions) (ScanResult, error) {
	if err := opts.validate(); err != nil {
		return ScanResult{}, err
	}
	if opts.Tolerance == 0 {
		opts.Tolerance = DefaultScanTolerance
	}

	snap, err := c.snapshot(opts.Species, opts.Variant, &opts.From)
	if err != nil {
		return ScanResult{}, err
	}

	offsets := floats.Span(make([]float64, opts.Steps), opts.From, opts.To)
	sigs := make([]float64, 0, len(offsets))
	ret := ScanResult{
		Species:   opts.Species,
		Variant:   opts.Variant,
		Target:    opts.Target,
		Tolerance: opts.Tolerance,
		Points:    make([]ScanPoint, 0, len(offsets)),
	}

	for i, offset := range offsets {
		pred, err := snap.predict(opts.Species, opts.Variant, offset)
		if err != nil {
			return ScanResult{}, err
		}
		res, err := c.engine.Evaluate(Input{
			Species:      opts.Species,
			Variant:      opts.Variant,
			Mode:         ModeScientific,
			Offset:       offset,
			Contribution: pred.Contribution,
		})
		if err != nil {
			return ScanResult{}, err
		}

		p := ScanPoint{Offset: offset, Contribution: pred.Contribution, Significance: res.Computed}
		ret.Points = append(ret.Points, p)
		sigs = append(sigs, res.Computed)
		if i == 0 || math.Abs(p.Significance-opts.Target) < math.Abs(ret.Best.Significance-opts.Target) {
			ret.Best = p
		}
	}

	ret.Converged = math.Abs(ret.Best.Significance-opts.Target) <= opts.Tolerance
	if ret.Min, err = stats.Min(sigs); err != nil {
		return ScanResult{}, err
	}
	if ret.Max, err = stats.Max(sigs); err != nil {
		return ScanResult{}, err
	}
	if ret.Mean, err = stats.Mean(sigs); err != nil {
		return ScanResult{}, err
	}

	log := c.log.WithFields(logrus.Fields{
		"species":      opts.Species,
		"variant":      opts.Variant,
		"bestOffset":   ret.Best.Offset,
		"significance": ret.Best.Significance,
	})
	if ret.Converged {
		log.Infof("scan converged within ±%.2fσ of %.2fσ", opts.Tolerance, opts.Target)
	} else {
		log.Warnf("scan did not reach ±%.2fσ of %.2fσ", opts.Tolerance, opts.Target)
	}

	return ret, nil
}
