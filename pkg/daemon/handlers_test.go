package daemon

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlie0129/leptong2/pkg/calibration"
	"github.com/charlie0129/leptong2/pkg/config"
	"github.com/charlie0129/leptong2/pkg/events"
	"github.com/charlie0129/leptong2/pkg/g2"
	"github.com/charlie0129/leptong2/pkg/lepton"
	"github.com/charlie0129/leptong2/pkg/types"
	"github.com/charlie0129/leptong2/pkg/version"
)

func newTestServer(t *testing.T) (*server, http.Handler, string) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	path := filepath.Join(t.TempDir(), "g2.json")
	load := func() (config.Config, error) {
		conf, err := config.NewFile(path)
		if err != nil {
			return nil, err
		}
		return conf, nil
	}

	s, err := newServer(load, log)
	require.NoError(t, err)
	return s, s.routes(), path
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestGetMoment(t *testing.T) {
	_, h, _ := newTestServer(t)

	w := do(t, h, http.MethodGet, "/moment/muon", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ret := decode[types.MomentResponse](t, w)
	_, err := uuid.Parse(ret.ID)
	assert.NoError(t, err)
	assert.Equal(t, calibration.VariantV361, ret.Variant)
	assert.True(t, ret.Significance.OverrideApplied)
	assert.Equal(t, 0.0, ret.SignificanceSigma)
	assert.InDelta(t, 13.1476, ret.Significance.Computed, 1e-3)

	w = do(t, h, http.MethodGet, "/moment/mu?variant=V36", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ret = decode[types.MomentResponse](t, w)
	assert.Equal(t, calibration.VariantV36, ret.Variant)
	assert.InDelta(t, 16.5895, ret.SignificanceSigma, 1e-3)

	w = do(t, h, http.MethodGet, "/moment/muon?correction=false", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ret = decode[types.MomentResponse](t, w)
	assert.Equal(t, calibration.VariantStandard, ret.Variant)
	assert.Equal(t, 0.0, ret.BSMOffset)

	w = do(t, h, http.MethodGet, "/moment/electron?offset=3.3e-17", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ret = decode[types.MomentResponse](t, w)
	assert.False(t, ret.Significance.OverrideApplied)
	assert.Equal(t, 3.3e-17, ret.RawOffset)
}

func TestGetMomentErrors(t *testing.T) {
	_, h, _ := newTestServer(t)

	tests := []struct {
		path string
		want int
	}{
		{"/moment/tau", http.StatusUnprocessableEntity},
		{"/moment/quark", http.StatusBadRequest},
		{"/moment/muon?variant=v40", http.StatusBadRequest},
		{"/moment/muon?correction=maybe", http.StatusBadRequest},
		{"/moment/muon?offset=abc", http.StatusBadRequest},
		{"/moment/muon?offset=NaN", http.StatusBadRequest},
		{"/moment/muon?offset=Inf", http.StatusBadRequest},
		{"/moment/muon?offset=-Inf", http.StatusBadRequest},
		{"/moment/muon?offset=1e308", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		w := do(t, h, http.MethodGet, tt.path, "")
		assert.Equal(t, tt.want, w.Code, tt.path)
	}
}

func TestSetMode(t *testing.T) {
	s, h, path := newTestServer(t)
	ch := s.hub.Subscribe()

	w := do(t, h, http.MethodPut, "/mode", `{"mode":"scientific"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	st := decode[types.ModeStatus](t, w)
	assert.Equal(t, g2.ModeScientific, st.Mode)
	assert.False(t, *st.HardcodedCalibration)

	ev := <-ch
	assert.Equal(t, events.ModeChanged, ev.Name)
	payload, err := events.DecodeAs[events.ModeChangedEvent](ev)
	require.NoError(t, err)
	assert.Equal(t, "benchmark", payload.From)
	assert.Equal(t, "scientific", payload.To)

	w = do(t, h, http.MethodGet, "/moment/muon", "")
	require.Equal(t, http.StatusOK, w.Code)
	ret := decode[types.MomentResponse](t, w)
	assert.False(t, ret.Significance.OverrideApplied)
	assert.InDelta(t, 13.15, ret.SignificanceSigma, 0.01)

	saved, err := config.NewFile(path)
	require.NoError(t, err)
	assert.False(t, saved.BenchmarkMode())

	w = do(t, h, http.MethodPut, "/mode", `{"hardcodedCalibration":true}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(t, h, http.MethodGet, "/mode", "")
	assert.Equal(t, g2.ModeBenchmark, decode[types.ModeStatus](t, w).Mode)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/mode", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/mode", `{"mode":"fast"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/mode", `nope`).Code)
}

func TestSetPhases(t *testing.T) {
	_, h, path := newTestServer(t)

	w := do(t, h, http.MethodPut, "/phases", `{"muon":4.5}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	want := g2.Phases{Electron: 2.17, Muon: 4.5, Tau: 10.53}
	assert.Equal(t, want, decode[g2.Phases](t, w))

	w = do(t, h, http.MethodGet, "/phases", "")
	assert.Equal(t, want, decode[g2.Phases](t, w))

	saved, err := config.NewFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, saved.Phases())

	w = do(t, h, http.MethodGet, "/moment/muon?variant=v36.1", "")
	ret := decode[types.MomentResponse](t, w)
	assert.False(t, ret.Prediction.Pinned)
}

func TestSetOffset(t *testing.T) {
	_, h, path := newTestServer(t)

	w := do(t, h, http.MethodPut, "/offset/muon", `{"value":1.4448e-10}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	st := decode[types.OffsetStatus](t, w)
	assert.Equal(t, g2.SourceOverride, st.Source)
	assert.Equal(t, 1.4448e-10, st.Offset)

	saved, err := config.NewFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[lepton.Species]float64{lepton.Muon: 1.4448e-10}, saved.Offsets())

	w = do(t, h, http.MethodPut, "/offset/mu", `{"clear":true}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	st = decode[types.OffsetStatus](t, w)
	assert.Equal(t, g2.SourceCalibration, st.Source)
	assert.Equal(t, 1.4538e-10, st.Offset)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/offset/muon", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/offset/quark", `{"value":1}`).Code)
}

func TestGetReport(t *testing.T) {
	_, h, _ := newTestServer(t)

	w := do(t, h, http.MethodGet, "/report/tau", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "N/A")

	w = do(t, h, http.MethodGet, "/report/muon?variant=v36", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "E-QFT V36:")

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/report/quark", "").Code)
}

func TestScan(t *testing.T) {
	_, h, _ := newTestServer(t)

	w := do(t, h, http.MethodPost, "/scan", `{"species":"muon","from":3.2e-11,"to":3.4e-11,"steps":201}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ret := decode[g2.ScanResult](t, w)
	assert.True(t, ret.Converged)
	assert.Equal(t, calibration.VariantV361, ret.Variant)
	assert.InDelta(t, 3.381e-11, ret.Best.Offset, 2e-13)

	w = do(t, h, http.MethodPost, "/scan", `{"species":"muon","from":0,"to":1e-10,"steps":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/scan", `{"species":"tau","from":0,"to":1e-10,"steps":3}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGetStatus(t *testing.T) {
	_, h, _ := newTestServer(t)

	w := do(t, h, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	st := decode[types.Status](t, w)
	assert.Equal(t, version.Version, st.Version)
	assert.Equal(t, g2.ModeBenchmark, st.Mode)
	require.Len(t, st.Species, 3)

	byName := map[lepton.Species]types.SpeciesStatus{}
	for _, sp := range st.Species {
		byName[sp.Species] = sp
	}
	require.NotNil(t, byName[lepton.Muon].Significance)
	assert.Equal(t, 0.0, *byName[lepton.Muon].Significance)
	assert.True(t, byName[lepton.Muon].OverrideApplied)
	assert.Nil(t, byName[lepton.Tau].Significance)
	assert.NotEmpty(t, byName[lepton.Tau].Error)
	assert.Equal(t, g2.SourceFallback, byName[lepton.Tau].OffsetSource)
}

func TestMetricsAndVersion(t *testing.T) {
	_, h, _ := newTestServer(t)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/moment/electron", "").Code)
	require.Equal(t, http.StatusUnprocessableEntity, do(t, h, http.MethodGet, "/moment/tau", "").Code)

	w := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `g2_computations_total{mode="benchmark",override="true",species="electron",variant="V36.1"} 1`)
	assert.Contains(t, body, `g2_computation_errors_total{code="422",species="tau"} 1`)
	assert.Contains(t, body, `g2_significance_sigma{kind="applied",species="electron",variant="V36.1"} 0.11`)

	w = do(t, h, http.MethodGet, "/version", "")
	assert.Equal(t, fmt.Sprintf("%q", version.Version), w.Body.String())
}

func TestGetConfig(t *testing.T) {
	_, h, _ := newTestServer(t)

	w := do(t, h, http.MethodGet, "/config", "")
	require.Equal(t, http.StatusOK, w.Code)
	raw := decode[config.RawFileConfig](t, w)
	assert.True(t, *raw.BenchmarkMode)
	assert.Equal(t, 4.32, *raw.Phases.Muon)
}

func TestReload(t *testing.T) {
	s, _, path := newTestServer(t)
	ch := s.hub.Subscribe()

	require.NoError(t, os.WriteFile(path, []byte(`{"benchmarkMode": false, "offsets": {"muon": 1.4448e-10}}`), 0644))
	require.NoError(t, s.reload())

	calc := s.calculator()
	assert.Equal(t, g2.ModeScientific, calc.Mode())
	assert.Equal(t, map[lepton.Species]float64{lepton.Muon: 1.4448e-10}, calc.Offsets())
	assert.Equal(t, events.ConfigChanged, (<-ch).Name)

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0644))
	assert.Error(t, s.reload())
	// A failed reload keeps the previous calculator.
	assert.Same(t, calc, s.calculator())

	// The file parses but its phases cannot be computed with.
	require.NoError(t, os.WriteFile(path, []byte(`{"benchmarkMode": true, "phases": {"muon": 1e200}}`), 0644))
	assert.ErrorIs(t, s.reload(), g2.ErrNonFinite)
	assert.Same(t, calc, s.calculator())
	assert.False(t, s.conf.BenchmarkMode())
	assert.Equal(t, lepton.DefaultPhaseMuon, s.conf.Phases().Muon)
}

func TestNonFiniteInputs(t *testing.T) {
	s, h, path := newTestServer(t)
	ch := s.hub.Subscribe()

	w := do(t, h, http.MethodPut, "/phases", `{"muon":1e200}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, lepton.DefaultPhaseMuon, s.calculator().Phases().Muon)

	w = do(t, h, http.MethodPut, "/offset/muon", `{"value":1e308}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Empty(t, s.calculator().Offsets())

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPut, "/offset/muon", `{"value":1.4448e-10}`).Code)
	w = do(t, h, http.MethodPut, "/offset/muon", `{"value":-1e308}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, map[lepton.Species]float64{lepton.Muon: 1.4448e-10}, s.calculator().Offsets())

	saved, err := config.NewFile(path)
	require.NoError(t, err)
	assert.Equal(t, lepton.DefaultPhaseMuon, saved.Phases().Muon)
	assert.Equal(t, map[lepton.Species]float64{lepton.Muon: 1.4448e-10}, saved.Offsets())

	w = do(t, h, http.MethodGet, "/moment/muon?offset=1e308", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.NotEmpty(t, w.Body.String())

	w = do(t, h, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[types.Status](t, w).Species, 3)

	for len(ch) > 0 {
		assert.NotEqual(t, events.SignificanceComputed, (<-ch).Name)
	}
}

func TestStatusReportsNonFinite(t *testing.T) {
	s, h, _ := newTestServer(t)
	// Bypass the handlers, which refuse such phases.
	s.calculator().SetBerryPhases(lepton.DefaultPhaseElectron, 1e200, lepton.DefaultPhaseTau)

	w := do(t, h, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[types.Status](t, w)
	require.Len(t, st.Species, 3)
	assert.Equal(t, lepton.Muon, st.Species[1].Species)
	assert.Nil(t, st.Species[1].Significance)
	assert.Contains(t, st.Species[1].Error, g2.ErrNonFinite.Error())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{lepton.ErrInvalidSpecies, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", calibration.ErrInvalidVariant), http.StatusBadRequest},
		{g2.ErrInvalidMode, http.StatusBadRequest},
		{g2.ErrInvalidScan, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", g2.ErrNonFinite), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w for tau", g2.ErrDivisionByZero), http.StatusUnprocessableEntity},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestListen(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "g2.sock")
	require.NoError(t, os.WriteFile(sock, nil, 0644))

	l, err := listen(sock, true)
	require.NoError(t, err)
	assert.Equal(t, "unix", l.Addr().Network())
	require.NoError(t, l.Close())

	l, err = listen("tcp://127.0.0.1:0", false)
	require.NoError(t, err)
	assert.Equal(t, "tcp", l.Addr().Network())
	require.NoError(t, l.Close())
}
