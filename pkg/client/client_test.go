package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlie0129/leptong2/pkg/calibration"
	"github.com/charlie0129/leptong2/pkg/g2"
	"github.com/charlie0129/leptong2/pkg/lepton"
	"github.com/charlie0129/leptong2/pkg/types"
	"github.com/charlie0129/leptong2/pkg/utils/ptr"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("tcp://" + strings.TrimPrefix(srv.URL, "http://"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetVersion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/version", r.URL.Path)
		writeJSON(w, http.StatusOK, "v1.2.3")
	})

	v, err := c.GetVersion()
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3", v)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusUnprocessableEntity, ErrUnprocessable},
	}
	for _, tt := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, tt.code, "g2: zero experimental uncertainty for tau")
		})
		_, err := c.GetMoment(lepton.Tau, calibration.VariantV361, true, nil)
		assert.ErrorIs(t, err, tt.want)
	}

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, "boom")
	})
	_, err := c.GetStatus()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 500: boom")
}

func TestGetMoment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/moment/muon", r.URL.Path)
		assert.Equal(t, "V36", r.URL.Query().Get("variant"))
		assert.Equal(t, "false", r.URL.Query().Get("correction"))
		assert.Equal(t, "1.5e-10", r.URL.Query().Get("offset"))
		writeJSON(w, http.StatusOK, types.MomentResponse{
			ID:              "abc",
			AnomalousMoment: g2.AnomalousMoment{Species: lepton.Muon, SignificanceSigma: 1.5},
		})
	})

	ret, err := c.GetMoment(lepton.Muon, calibration.VariantV36, false, ptr.To(1.5e-10))
	require.NoError(t, err)
	assert.Equal(t, "abc", ret.ID)
	assert.Equal(t, 1.5, ret.SignificanceSigma)
}

func TestSetOffset(t *testing.T) {
	var got types.OffsetRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/offset/tau", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		got = types.OffsetRequest{}
		assert.NoError(t, json.Unmarshal(b, &got))
		writeJSON(w, http.StatusCreated, types.OffsetStatus{Species: lepton.Tau, Offset: 1e-9, Source: g2.SourceOverride})
	})

	st, err := c.SetOffset(lepton.Tau, 1e-9)
	require.NoError(t, err)
	assert.Equal(t, g2.SourceOverride, st.Source)
	require.NotNil(t, got.Value)
	assert.Equal(t, 1e-9, *got.Value)

	_, err = c.ClearOffset(lepton.Tau)
	require.NoError(t, err)
	assert.True(t, got.Clear)
	assert.Nil(t, got.Value)
}

func TestSetHardcodedCalibration(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req types.ModeStatus
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) || !assert.NotNil(t, req.HardcodedCalibration) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, types.ModeStatus{Mode: g2.ModeFor(*req.HardcodedCalibration)})
	})

	st, err := c.SetHardcodedCalibration(false)
	require.NoError(t, err)
	assert.Equal(t, g2.ModeScientific, st.Mode)
}

func TestDaemonNotRunning(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))

	_, err := c.GetVersion()
	assert.ErrorIs(t, err, ErrDaemonNotRunning)
}
