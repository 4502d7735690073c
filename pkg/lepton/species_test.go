package lepton

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Species
		wantErr bool
	}{
		{"electron", Electron, false},
		{"E", Electron, false},
		{" muon ", Muon, false},
		{"μ", Muon, false},
		{"mu", Muon, false},
		{"Tau", Tau, false},
		{"τ", Tau, false},
		{"neutrino", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidSpecies) {
				t.Fatalf("Parse(%q) error = %v, want ErrInvalidSpecies", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSpeciesProperties(t *testing.T) {
	for _, s := range All {
		if err := s.Validate(); err != nil {
			t.Fatalf("Validate(%s) = %v", s, err)
		}
		if s.Mass() <= 0 {
			t.Fatalf("Mass(%s) = %v, want > 0", s, s.Mass())
		}
		if s.DefaultPhase() <= 0 {
			t.Fatalf("DefaultPhase(%s) = %v, want > 0", s, s.DefaultPhase())
		}
	}

	if err := Species("quark").Validate(); !errors.Is(err, ErrInvalidSpecies) {
		t.Fatalf("Validate(quark) = %v, want ErrInvalidSpecies", err)
	}

	if p, ok := Electron.Partner(); !ok || p != Muon {
		t.Fatalf("Partner(electron) = %s, %v", p, ok)
	}
	if p, ok := Muon.Partner(); !ok || p != Tau {
		t.Fatalf("Partner(muon) = %s, %v", p, ok)
	}
	if _, ok := Tau.Partner(); ok {
		t.Fatalf("tau should have no real partner")
	}
}
