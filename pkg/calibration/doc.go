// Package calibration defines the benchmark calibration data consulted by the
// significance engine. It contains:
//
//   - Variant: the model variants a computation can run under
//   - Entry: a registered (species, variant) offset and its target significance
//   - PinnedCoefficient: reference c₂ values at the canonical phases
//   - Table: the immutable set of entries, pins and fallback offsets owned by a calculator
//   - Step: the decision steps of the override state machine
//
// A Table is never shared implicitly. Each calculator owns one, so calculators
// with different calibration data can coexist in one process.
package calibration
