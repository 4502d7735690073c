package client

import (
	"encoding/json"
	"net/url"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/leptong2/pkg/calibration"
	"github.com/charlie0129/leptong2/pkg/config"
	"github.com/charlie0129/leptong2/pkg/g2"
	"github.com/charlie0129/leptong2/pkg/lepton"
	"github.com/charlie0129/leptong2/pkg/types"
)

func getJSON[T any](c *Client, path, what string) (*T, error) {
	ret, err := c.Get(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get %s", what)
	}
	return unmarshal[T](ret, what)
}

func unmarshal[T any](ret, what string) (*T, error) {
	var v T
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal %s", what)
	}
	return &v, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	return getJSON[config.RawFileConfig](c, "/config", "config")
}

func (c *Client) GetMode() (*types.ModeStatus, error) {
	return getJSON[types.ModeStatus](c, "/mode", "mode")
}

func (c *Client) SetMode(m g2.Mode) (*types.ModeStatus, error) {
	return c.putMode(types.ModeStatus{Mode: m})
}

func (c *Client) SetHardcodedCalibration(enabled bool) (*types.ModeStatus, error) {
	return c.putMode(types.ModeStatus{HardcodedCalibration: &enabled})
}

func (c *Client) putMode(req types.ModeStatus) (*types.ModeStatus, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	ret, err := c.Put("/mode", string(payload))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to set mode")
	}
	return unmarshal[types.ModeStatus](ret, "mode")
}

func (c *Client) GetPhases() (*g2.Phases, error) {
	return getJSON[g2.Phases](c, "/phases", "phases")
}

func (c *Client) SetPhases(req types.PhasesRequest) (*g2.Phases, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	ret, err := c.Put("/phases", string(payload))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to set phases")
	}
	return unmarshal[g2.Phases](ret, "phases")
}

func (c *Client) SetOffset(s lepton.Species, v float64) (*types.OffsetStatus, error) {
	return c.putOffset(s, types.OffsetRequest{Value: &v})
}

func (c *Client) ClearOffset(s lepton.Species) (*types.OffsetStatus, error) {
	return c.putOffset(s, types.OffsetRequest{Clear: true})
}

func (c *Client) putOffset(s lepton.Species, req types.OffsetRequest) (*types.OffsetStatus, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	ret, err := c.Put("/offset/"+url.PathEscape(string(s)), string(payload))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to set offset of %s", s)
	}
	return unmarshal[types.OffsetStatus](ret, "offset")
}

// GetMoment computes the anomalous moment of s on the daemon. A nil offset
// uses the daemon's configured one.
func (c *Client) GetMoment(s lepton.Species, v calibration.Variant, correction bool, offset *float64) (*types.MomentResponse, error) {
	q := url.Values{}
	q.Set("variant", string(v))
	q.Set("correction", strconv.FormatBool(correction))
	if offset != nil {
		q.Set("offset", strconv.FormatFloat(*offset, 'g', -1, 64))
	}
	return getJSON[types.MomentResponse](c, "/moment/"+url.PathEscape(string(s))+"?"+q.Encode(), "anomalous moment")
}

func (c *Client) GetReport(s lepton.Species, v calibration.Variant) (string, error) {
	ret, err := c.Get("/report/" + url.PathEscape(string(s)) + "?variant=" + url.QueryEscape(string(v)))
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get report")
	}
	return ret, nil
}

func (c *Client) Scan(opts g2.ScanOptions) (*g2.ScanResult, error) {
	payload, err := json.Marshal(opts)
	if err != nil {
		return nil, err
	}
	ret, err := c.Post("/scan", string(payload))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to scan offsets")
	}
	return unmarshal[g2.ScanResult](ret, "scan result")
}

func (c *Client) GetStatus() (*types.Status, error) {
	return getJSON[types.Status](c, "/status", "status")
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal version")
	}
	return v, nil
}
