package daemon

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/charlie0129/leptong2/pkg/calibration"
	"github.com/charlie0129/leptong2/pkg/config"
	"github.com/charlie0129/leptong2/pkg/events"
	"github.com/charlie0129/leptong2/pkg/g2"
	"github.com/charlie0129/leptong2/pkg/lepton"
	"github.com/charlie0129/leptong2/pkg/types"
	"github.com/charlie0129/leptong2/pkg/utils/ptr"
	"github.com/charlie0129/leptong2/pkg/version"
)

const pingInterval = 30 * time.Second

func (s *server) getConfig(c *gin.Context) {
	s.mu.RLock()
	fc, err := config.NewRawFileConfigFromConfig(s.conf)
	s.mu.RUnlock()
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func modeStatus(m g2.Mode) types.ModeStatus {
	return types.ModeStatus{Mode: m, HardcodedCalibration: ptr.To(m.Benchmark())}
}

func (s *server) getMode(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, modeStatus(s.calculator().Mode()))
}

func (s *server) setMode(c *gin.Context) {
	var req types.ModeStatus
	if err := c.BindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	var mode g2.Mode
	switch {
	case req.Mode != "":
		m, err := g2.ParseMode(string(req.Mode))
		if err != nil {
			abortWithError(c, http.StatusBadRequest, err)
			return
		}
		mode = m
	case req.HardcodedCalibration != nil:
		mode = g2.ModeFor(*req.HardcodedCalibration)
	default:
		abortWithError(c, http.StatusBadRequest, errors.New("one of mode and hardcodedCalibration is required"))
		return
	}

	var from g2.Mode
	err := s.update(func(calc *g2.Calculator, conf config.Config) error {
		from = calc.Mode()
		calc.SetMode(mode)
		conf.SetBenchmarkMode(mode.Benchmark())
		return nil
	})
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	if from != mode {
		s.hub.Publish(events.ModeChanged, events.ModeChangedEvent{From: string(from), To: string(mode), Ts: time.Now().Unix()})
	}

	c.IndentedJSON(http.StatusCreated, modeStatus(mode))
}

func (s *server) getPhases(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.calculator().Phases())
}

func (s *server) setPhases(c *gin.Context) {
	var req types.PhasesRequest
	if err := c.BindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	for _, v := range []*float64{req.Electron, req.Muon, req.Tau} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			abortWithError(c, http.StatusBadRequest, fmt.Errorf("phases must be finite, got %v", *v))
			return
		}
	}

	var p g2.Phases
	err := s.update(func(calc *g2.Calculator, conf config.Config) error {
		prev := calc.Phases()
		p = prev
		if req.Electron != nil {
			p.Electron = *req.Electron
		}
		if req.Muon != nil {
			p.Muon = *req.Muon
		}
		if req.Tau != nil {
			p.Tau = *req.Tau
		}
		calc.SetBerryPhases(p.Electron, p.Muon, p.Tau)
		if err := checkFinite(calc); err != nil {
			calc.SetBerryPhases(prev.Electron, prev.Muon, prev.Tau)
			return err
		}
		conf.SetPhases(p)
		return nil
	})
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}

	s.hub.Publish(events.ConfigChanged, events.ConfigChangedEvent{Reason: c.FullPath(), Ts: time.Now().Unix()})

	c.IndentedJSON(http.StatusCreated, p)
}

func (s *server) setOffset(c *gin.Context) {
	species, err := lepton.Parse(c.Param("species"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	var req types.OffsetRequest
	if err := c.BindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if !req.Clear {
		if req.Value == nil {
			abortWithError(c, http.StatusBadRequest, errors.New("value is required unless clear is set"))
			return
		}
		if math.IsNaN(*req.Value) || math.IsInf(*req.Value, 0) {
			abortWithError(c, http.StatusBadRequest, fmt.Errorf("offset must be finite, got %v", *req.Value))
			return
		}
	}

	ret := types.OffsetStatus{Species: species}
	err = s.update(func(calc *g2.Calculator, conf config.Config) error {
		if req.Clear {
			if err := calc.ClearOffset(species); err != nil {
				return err
			}
			conf.ClearOffset(species)
		} else {
			prev, hadPrev := calc.Offsets()[species]
			if err := calc.SetOffset(species, *req.Value); err != nil {
				return err
			}
			if err := checkFinite(calc); err != nil {
				if hadPrev {
					_ = calc.SetOffset(species, prev)
				} else {
					_ = calc.ClearOffset(species)
				}
				return err
			}
			conf.SetOffset(species, *req.Value)
		}

		var err error
		ret.Offset, ret.Source, err = calc.Offset(species, calibration.VariantV361)
		return err
	})
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}

	s.hub.Publish(events.ConfigChanged, events.ConfigChangedEvent{Reason: c.FullPath(), Ts: time.Now().Unix()})

	c.IndentedJSON(http.StatusCreated, ret)
}

// momentRequest reads GET /moment/:species?variant=&correction=&offset=.
func momentRequest(c *gin.Context) (g2.Request, error) {
	species, err := lepton.Parse(c.Param("species"))
	if err != nil {
		return g2.Request{}, err
	}
	variant, err := calibration.ParseVariant(c.Query("variant"))
	if err != nil {
		return g2.Request{}, err
	}
	correction, err := strconv.ParseBool(c.DefaultQuery("correction", "true"))
	if err != nil {
		return g2.Request{}, fmt.Errorf("invalid correction: %w", err)
	}

	req := g2.Request{
		Species:           species,
		OverlapCorrection: correction,
		Canonical:         variant.Canonical(),
		V361:              variant.OverlapCorrected(),
	}
	if o := c.Query("offset"); o != "" {
		v, err := strconv.ParseFloat(o, 64)
		if err != nil {
			return g2.Request{}, fmt.Errorf("invalid offset: %w", err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return g2.Request{}, fmt.Errorf("offset must be finite, got %v", v)
		}
		req.Offset = &v
	}
	return req, nil
}

func (s *server) getMoment(c *gin.Context) {
	req, err := momentRequest(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	am, err := s.calculator().ComputeAnomalousMoment(req)
	if err != nil {
		code := statusFor(err)
		s.metrics.fail(req.Species, code)
		abortWithError(c, code, err)
		return
	}
	s.metrics.observe(am.Significance, time.Since(start))

	ret := types.MomentResponse{ID: uuid.NewString(), AnomalousMoment: am}
	s.hub.Publish(events.SignificanceComputed, events.SignificanceComputedEvent{
		ID:              ret.ID,
		Species:         string(am.Species),
		Variant:         string(am.Variant),
		Mode:            string(am.Significance.Mode),
		Computed:        am.Significance.Computed,
		Applied:         am.Significance.Applied,
		OverrideApplied: am.Significance.OverrideApplied,
		Ts:              time.Now().Unix(),
	})

	c.IndentedJSON(http.StatusOK, ret)
}

func (s *server) getReport(c *gin.Context) {
	species, err := lepton.Parse(c.Param("species"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	variant, err := calibration.ParseVariant(c.Query("variant"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	report, err := s.calculator().Report(species, variant)
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	c.String(http.StatusOK, report)
}

func (s *server) scan(c *gin.Context) {
	var opts g2.ScanOptions
	if err := c.BindJSON(&opts); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}

	species, err := lepton.Parse(string(opts.Species))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	variant, err := calibration.ParseVariant(string(opts.Variant))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	opts.Species, opts.Variant = species, variant

	ret, err := s.calculator().Scan(opts)
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	c.IndentedJSON(http.StatusOK, ret)
}

func (s *server) getStatus(c *gin.Context) {
	calc := s.calculator()
	ret := types.Status{
		Version:     version.Version,
		Mode:        calc.Mode(),
		ChernClass:  calc.ChernClass(),
		Phases:      calc.Phases(),
		Subscribers: s.hub.Subscribers(),
	}

	for _, species := range lepton.All {
		st := types.SpeciesStatus{Species: species}
		pred, err := calc.Predict(species, calibration.VariantV361, nil)
		switch {
		case errors.Is(err, g2.ErrNonFinite):
			st.Error = err.Error()
			ret.Species = append(ret.Species, st)
			continue
		case err != nil:
			abortWithError(c, statusFor(err), err)
			return
		}
		st.Offset, st.OffsetSource, st.Contribution = pred.Offset, pred.Source, pred.Contribution

		res, err := calc.ComputeSignificance(species, calibration.VariantV361, nil)
		switch {
		case errors.Is(err, g2.ErrDivisionByZero), errors.Is(err, g2.ErrNonFinite):
			st.Error = err.Error()
		case err != nil:
			abortWithError(c, statusFor(err), err)
			return
		default:
			st.Significance = ptr.To(res.Applied)
			st.OverrideApplied = res.OverrideApplied
		}
		ret.Species = append(ret.Species, st)
	}

	c.IndentedJSON(http.StatusOK, ret)
}

func (s *server) streamEvents(c *gin.Context) {
	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case t := <-ticker.C:
			c.SSEvent("ping", fmt.Sprintf(`{"ts":%d}`, t.Unix()))
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
