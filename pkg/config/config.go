package config

import (
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/leptong2/pkg/g2"
	"github.com/charlie0129/leptong2/pkg/lepton"
)

type Config interface {
	BenchmarkMode() bool
	ChernClass() float64
	Phases() g2.Phases
	// Offsets returns the per-species offset overrides. Species without an
	// override are absent.
	Offsets() map[lepton.Species]float64

	SetBenchmarkMode(bool)
	SetChernClass(float64)
	SetPhases(g2.Phases)
	SetOffset(lepton.Species, float64)
	ClearOffset(lepton.Species)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error

	LogrusFields() logrus.Fields
}

// NewCalculator builds a calculator holding the state stored in c. opts are
// applied after the ones derived from c.
func NewCalculator(c Config, opts ...g2.Option) (*g2.Calculator, error) {
	base := []g2.Option{
		g2.WithHardcodedCalibration(c.BenchmarkMode()),
		g2.WithChernClass(c.ChernClass()),
		g2.WithPhases(c.Phases()),
	}
	calc := g2.NewCalculator(append(base, opts...)...)

	for s, v := range c.Offsets() {
		if err := calc.SetOffset(s, v); err != nil {
			return nil, err
		}
	}

	return calc, nil
}
