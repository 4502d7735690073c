package config

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/charlie0129/leptong2/pkg/g2"
	"github.com/charlie0129/leptong2/pkg/lepton"
	"github.com/charlie0129/leptong2/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		BenchmarkMode: ptr.To(true),
		ChernClass:    ptr.To(g2.DefaultChernClass),
		Phases: &RawPhases{
			Electron: ptr.To(lepton.DefaultPhaseElectron),
			Muon:     ptr.To(lepton.DefaultPhaseMuon),
			Tau:      ptr.To(lepton.DefaultPhaseTau),
		},
	}
)

var _ Config = &File{}

// File is a Config stored in a JSON file, or a YAML file when the path ends
// in .yaml or .yml.
type File struct {
	c    *RawFileConfig
	mu   *sync.RWMutex
	path string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		path: configPath,
		mu:   &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:    c,
		mu:   &sync.RWMutex{},
		path: configPath,
	}

	return f
}

type RawFileConfig struct {
	BenchmarkMode *bool                      `json:"benchmarkMode,omitempty" yaml:"benchmarkMode,omitempty"`
	ChernClass    *float64                   `json:"chernClass,omitempty" yaml:"chernClass,omitempty"`
	Phases        *RawPhases                 `json:"phases,omitempty" yaml:"phases,omitempty"`
	Offsets       map[lepton.Species]float64 `json:"offsets,omitempty" yaml:"offsets,omitempty"`
}

// RawPhases holds the Berry phases as stored. Missing phases take the
// canonical values.
type RawPhases struct {
	Electron *float64 `json:"electron,omitempty" yaml:"electron,omitempty"`
	Muon     *float64 `json:"muon,omitempty" yaml:"muon,omitempty"`
	Tau      *float64 `json:"tau,omitempty" yaml:"tau,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	p := c.Phases()
	rawConfig := &RawFileConfig{
		BenchmarkMode: ptr.To(c.BenchmarkMode()),
		ChernClass:    ptr.To(c.ChernClass()),
		Phases: &RawPhases{
			Electron: ptr.To(p.Electron),
			Muon:     ptr.To(p.Muon),
			Tau:      ptr.To(p.Tau),
		},
		Offsets: c.Offsets(),
	}

	return rawConfig, nil
}

func (r *RawFileConfig) validate() error {
	if r.ChernClass != nil && (math.IsNaN(*r.ChernClass) || math.IsInf(*r.ChernClass, 0)) {
		return pkgerrors.Errorf("chern class must be finite, got %v", *r.ChernClass)
	}
	for s := range r.Offsets {
		if err := s.Validate(); err != nil {
			return pkgerrors.Wrap(err, "invalid offset key")
		}
	}
	return nil
}

func orDefault[T any](v, def *T) T {
	if v != nil {
		return *v
	}
	return *def
}

func (f *File) BenchmarkMode() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return orDefault(f.c.BenchmarkMode, defaultFileConfig.BenchmarkMode)
}

func (f *File) ChernClass() float64 {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return orDefault(f.c.ChernClass, defaultFileConfig.ChernClass)
}

func (f *File) Phases() g2.Phases {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	raw := f.c.Phases
	if raw == nil {
		raw = &RawPhases{}
	}
	def := defaultFileConfig.Phases

	return g2.Phases{
		Electron: orDefault(raw.Electron, def.Electron),
		Muon:     orDefault(raw.Muon, def.Muon),
		Tau:      orDefault(raw.Tau, def.Tau),
	}
}

func (f *File) Offsets() map[lepton.Species]float64 {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	ret := make(map[lepton.Species]float64, len(f.c.Offsets))
	for s, v := range f.c.Offsets {
		ret[s] = v
	}
	return ret
}

func (f *File) SetBenchmarkMode(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.BenchmarkMode = &b
}

func (f *File) SetChernClass(c1 float64) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.ChernClass = &c1
}

func (f *File) SetPhases(p g2.Phases) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Phases = &RawPhases{
		Electron: ptr.To(p.Electron),
		Muon:     ptr.To(p.Muon),
		Tau:      ptr.To(p.Tau),
	}
}

func (f *File) SetOffset(s lepton.Species, v float64) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.c.Offsets == nil {
		f.c.Offsets = map[lepton.Species]float64{}
	}
	f.c.Offsets[s] = v
}

func (f *File) ClearOffset(s lepton.Species) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.c.Offsets, s)
	if len(f.c.Offsets) == 0 {
		f.c.Offsets = nil
	}
}

func (f *File) isYAML() bool {
	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.path)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.path)
		}
	}(fp)

	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.path)
	}

	if len(bytes.TrimSpace(b)) == 0 {
		// If the file is empty, return the empty config.
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	if f.isYAML() {
		err = yaml.Unmarshal(b, &conf)
	} else {
		err = json.Unmarshal(b, &conf)
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.path)
	}
	if err := conf.validate(); err != nil {
		return pkgerrors.Wrapf(err, "invalid config in file %s", f.path)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.path)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.path)
		}
	}(fp)

	if f.isYAML() {
		enc := yaml.NewEncoder(fp)
		enc.SetIndent(2)
		err = enc.Encode(f.c)
		if err == nil {
			err = enc.Close()
		}
	} else {
		enc := json.NewEncoder(fp)
		enc.SetIndent("", "  ")
		err = enc.Encode(f.c)
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.path)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	p := f.Phases()
	return logrus.Fields{
		"benchmarkMode": f.BenchmarkMode(),
		"chernClass":    f.ChernClass(),
		"phiElectron":   p.Electron,
		"phiMuon":       p.Muon,
		"phiTau":        p.Tau,
		"offsets":       len(f.Offsets()),
	}
}
