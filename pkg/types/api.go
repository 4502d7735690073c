// Package types holds the payloads shared by the daemon and its clients.
package types

import (
	"github.com/charlie0129/leptong2/pkg/g2"
	"github.com/charlie0129/leptong2/pkg/lepton"
)

// ModeStatus is returned by GET /mode. PUT /mode accepts it with either
// field set; Mode wins when both are.
type ModeStatus struct {
	Mode                 g2.Mode `json:"mode,omitempty"`
	HardcodedCalibration *bool   `json:"hardcodedCalibration,omitempty"`
}

// PhasesRequest is accepted by PUT /phases. Only the given phases change.
type PhasesRequest struct {
	Electron *float64 `json:"electron,omitempty"`
	Muon     *float64 `json:"muon,omitempty"`
	Tau      *float64 `json:"tau,omitempty"`
}

// OffsetRequest is accepted by PUT /offset/:species. Clear drops the override.
type OffsetRequest struct {
	Value *float64 `json:"value,omitempty"`
	Clear bool     `json:"clear,omitempty"`
}

// MomentResponse is returned by GET /moment/:species.
type MomentResponse struct {
	ID string `json:"id"`
	g2.AnomalousMoment
}

// SpeciesStatus summarises the canonical computation of one species.
type SpeciesStatus struct {
	Species         lepton.Species  `json:"species"`
	Offset          float64         `json:"offset"`
	OffsetSource    g2.OffsetSource `json:"offsetSource"`
	Contribution    float64         `json:"contribution"`
	Significance    *float64        `json:"significance,omitempty"`
	OverrideApplied bool            `json:"overrideApplied"`
	Error           string          `json:"error,omitempty"`
}

// Status is returned by GET /status.
type Status struct {
	Version     string          `json:"version"`
	Mode        g2.Mode         `json:"mode"`
	ChernClass  float64         `json:"chernClass"`
	Phases      g2.Phases       `json:"phases"`
	Species     []SpeciesStatus `json:"species"`
	Subscribers int             `json:"subscribers"`
}

// OffsetStatus is returned by PUT /offset/:species with the offset that now
// resolves for the V36.1 variant.
type OffsetStatus struct {
	Species lepton.Species  `json:"species"`
	Offset  float64         `json:"offset"`
	Source  g2.OffsetSource `json:"source"`
}
