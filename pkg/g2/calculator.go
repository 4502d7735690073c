package g2

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/leptong2/pkg/calibration"
	"github.com/charlie0129/leptong2/pkg/lepton"
)

// Calculator is the aggregate entry point. It is safe for concurrent use:
// mutations are serialized and every computation works on a snapshot of the
// phases, offsets and mode taken when it starts.
type Calculator struct {
	mu *sync.RWMutex

	table        *calibration.Table
	measurements Measurements
	chernClass   float64
	log          logrus.FieldLogger

	engine   *Engine
	phases   Phases
	resolver *Resolver
	mode     Mode
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithHardcodedCalibration selects benchmark (true) or scientific (false) mode.
func WithHardcodedCalibration(enabled bool) Option {
	return func(c *Calculator) { c.mode = ModeFor(enabled) }
}

// WithMode sets the initial operating mode.
func WithMode(m Mode) Option {
	return func(c *Calculator) { c.mode = m }
}

// WithTable replaces the default calibration table.
func WithTable(t *calibration.Table) Option {
	return func(c *Calculator) { c.table = t }
}

// WithMeasurements replaces the default experimental constants.
func WithMeasurements(m Measurements) Option {
	return func(c *Calculator) { c.measurements = m.clone() }
}

// WithChernClass sets c₁.
func WithChernClass(c1 float64) Option {
	return func(c *Calculator) { c.chernClass = c1 }
}

// WithPhases sets the initial Berry phases.
func WithPhases(p Phases) Option {
	return func(c *Calculator) { c.phases = p }
}

// WithLogger sets the logger used by the calculator and its engine.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Calculator) { c.log = log }
}

// NewCalculator returns a calculator in benchmark mode with the canonical
// phases, the default calibration table and the reference measurements unless
// options say otherwise.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		mu:           &sync.RWMutex{},
		table:        calibration.DefaultTable(),
		measurements: DefaultMeasurements(),
		chernClass:   DefaultChernClass,
		log:          logrus.StandardLogger(),
		phases:       DefaultPhases(),
		mode:         ModeBenchmark,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.engine = NewEngine(c.table, c.measurements, c.log)
	c.resolver = NewResolver(c.table)

	c.log.WithFields(logrus.Fields{
		"chernClass":           c.chernClass,
		"hardcodedCalibration": c.mode.Benchmark(),
	}).Debug("initialized g-2 calculator")

	return c
}

// Table returns the calibration table owned by c.
func (c *Calculator) Table() *calibration.Table { return c.table }

// ChernClass returns c₁.
func (c *Calculator) ChernClass() float64 { return c.chernClass }

// Engine returns the significance engine of c.
func (c *Calculator) Engine() *Engine { return c.engine }

// SetBerryPhases overwrites all three phases.
func (c *Calculator) SetBerryPhases(phiE, phiMu, phiTau float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.phases = Phases{Electron: phiE, Muon: phiMu, Tau: phiTau}
	c.log.WithFields(logrus.Fields{
		"phiElectron": phiE,
		"phiMuon":     phiMu,
		"phiTau":      phiTau,
	}).Info("set Berry phases")
}

// SetPhase overwrites the phase of one species.
func (c *Calculator) SetPhase(s lepton.Species, phi float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.phases.Set(s, phi); err != nil {
		return err
	}
	c.log.Infof("set %s Berry phase to φ_%s = %.6f", s, s.Symbol(), phi)
	return nil
}

// Phase returns the stored phase of s.
func (c *Calculator) Phase(s lepton.Species) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phases.Get(s)
}

// Phases returns a copy of the stored phases.
func (c *Calculator) Phases() Phases {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phases
}

// SetOffset overrides the raw offset δa of s for every variant.
func (c *Calculator) SetOffset(s lepton.Species, v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.resolver.Set(s, v); err != nil {
		return err
	}
	c.log.Infof("set δa_%s^NF to %.6e", s, v)
	return nil
}

// ClearOffset drops the override of s so the table is consulted again.
func (c *Calculator) ClearOffset(s lepton.Species) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolver.Clear(s)
}

// Offset resolves the raw offset of s under v.
func (c *Calculator) Offset(s lepton.Species, v calibration.Variant) (float64, OffsetSource, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolver.Resolve(s, v)
}

// Offsets returns the per-species offset overrides.
func (c *Calculator) Offsets() map[lepton.Species]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolver.Overrides()
}

// SetMode takes effect on the next computation.
func (c *Calculator) SetMode(m Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = m
	c.log.WithField("mode", m).Info("set operating mode")
}

// Mode returns the current operating mode.
func (c *Calculator) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// SetHardcodedCalibration enables (benchmark) or disables (scientific)
// calibration overrides and returns the new state.
func (c *Calculator) SetHardcodedCalibration(enabled bool) bool {
	c.SetMode(ModeFor(enabled))
	return enabled
}

// HardcodedCalibration reports whether benchmark mode is active.
func (c *Calculator) HardcodedCalibration() bool {
	return c.Mode().Benchmark()
}

// Overlap returns Ω computed from the stored phase of s.
func (c *Calculator) Overlap(s lepton.Species) (float64, error) {
	phi, err := c.Phase(s)
	if err != nil {
		return 0, err
	}
	return Overlap(phi), nil
}

// Coefficient returns c₂(a,b) under v from the stored phases, following the
// pair rule of OverlapSource.
func (c *Calculator) Coefficient(a, b lepton.Species, v calibration.Variant) (float64, error) {
	return c.Phases().Coefficient(a, b, v)
}

type snapshot struct {
	predictor
	mode   Mode
	offset float64
	source OffsetSource
}

// snapshot captures the state a computation needs. A non-nil offset bypasses
// the resolver.
func (c *Calculator) snapshot(s lepton.Species, v calibration.Variant, offset *float64) (snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := snapshot{
		predictor: predictor{table: c.table, phases: c.phases, chernClass: c.chernClass},
		mode:      c.mode,
	}
	if offset != nil {
		if err := s.Validate(); err != nil {
			return snapshot{}, err
		}
		snap.offset, snap.source = *offset, SourceExplicit
		return snap, nil
	}

	var err error
	snap.offset, snap.source, err = c.resolver.Resolve(s, v)
	if err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

// Predict computes the BSM contribution of s under v. A nil offset resolves
// the configured one.
func (c *Calculator) Predict(s lepton.Species, v calibration.Variant, offset *float64) (Prediction, error) {
	snap, err := c.snapshot(s, v, offset)
	if err != nil {
		return Prediction{}, err
	}
	return snap.prediction(c.log, s, v)
}

func (snap snapshot) prediction(log logrus.FieldLogger, s lepton.Species, v calibration.Variant) (Prediction, error) {
	pred, err := snap.predict(s, v, snap.offset)
	if err != nil {
		return Prediction{}, err
	}
	pred.Source = snap.source

	log.WithFields(logrus.Fields{
		"species": s,
		"variant": v,
		"omega":   pred.Omega,
		"c2":      pred.C2,
		"lambda":  pred.Lambda,
		"pinned":  pred.Pinned,
	}).Debugf("computed %s g-2 correction for %s: %.12e", v, s, pred.Contribution)

	return pred, nil
}

// ComputeSignificance predicts the contribution of s under v and evaluates its
// significance in the current mode. A nil offset resolves the configured one.
func (c *Calculator) ComputeSignificance(s lepton.Species, v calibration.Variant, offset *float64) (Result, error) {
	snap, err := c.snapshot(s, v, offset)
	if err != nil {
		return Result{}, err
	}
	pred, err := snap.prediction(c.log, s, v)
	if err != nil {
		return Result{}, err
	}
	return c.engine.Evaluate(snap.input(s, v, pred.Contribution))
}

func (snap snapshot) input(s lepton.Species, v calibration.Variant, contribution float64) Input {
	return Input{
		Species:      s,
		Variant:      v,
		Mode:         snap.mode,
		Offset:       snap.offset,
		Contribution: contribution,
	}
}

// Request selects what ComputeAnomalousMoment computes.
type Request struct {
	Species lepton.Species `json:"species"`
	// OverlapCorrection includes the topological BSM correction. Without it
	// the contribution is zero and the standard variant is used.
	OverlapCorrection bool `json:"overlapCorrection"`
	// Canonical selects the canonical topological model.
	Canonical bool `json:"canonical"`
	// V361 selects the overlap-corrected coefficient of the canonical model.
	V361 bool `json:"v361"`
	// Offset, when set, replaces the resolved raw offset for this call.
	Offset *float64 `json:"offset,omitempty"`
}

// AnomalousMoment is the outcome of ComputeAnomalousMoment.
type AnomalousMoment struct {
	Species           lepton.Species      `json:"species"`
	Variant           calibration.Variant `json:"variant"`
	BSMOffset         float64             `json:"bsmOffset"`
	RawOffset         float64             `json:"rawOffset"`
	SignificanceSigma float64             `json:"significanceSigma"`
	Prediction        Prediction          `json:"prediction"`
	Significance      Result              `json:"significance"`
}

// CanonicalRequest is the usual request: canonical V36.1 with correction.
func CanonicalRequest(s lepton.Species) Request {
	return Request{Species: s, OverlapCorrection: true, Canonical: true, V361: true}
}

// ComputeAnomalousMoment combines prediction and significance evaluation.
func (c *Calculator) ComputeAnomalousMoment(req Request) (AnomalousMoment, error) {
	v := calibration.VariantFor(req.Canonical, req.V361)
	if !req.OverlapCorrection {
		v = calibration.VariantStandard
	}

	snap, err := c.snapshot(req.Species, v, req.Offset)
	if err != nil {
		return AnomalousMoment{}, err
	}

	pred, err := snap.prediction(c.log, req.Species, v)
	if err != nil {
		return AnomalousMoment{}, err
	}
	if !req.OverlapCorrection {
		pred.Contribution = 0
	}

	res, err := c.engine.Evaluate(snap.input(req.Species, v, pred.Contribution))
	if err != nil {
		return AnomalousMoment{}, err
	}

	c.log.WithFields(logrus.Fields{
		"species":  req.Species,
		"variant":  v,
		"override": res.OverrideApplied,
	}).Infof("calculated anomalous magnetic moment for %s using %s: %.12e (%.2fσ)", req.Species, v, res.Total, res.Applied)

	return AnomalousMoment{
		Species:           req.Species,
		Variant:           v,
		BSMOffset:         pred.Contribution,
		RawOffset:         snap.offset,
		SignificanceSigma: res.Applied,
		Prediction:        pred,
		Significance:      res,
	}, nil
}
