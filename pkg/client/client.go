package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const tcpPrefix = "tcp://"

// Client is a struct for communicating with the g2 daemon
type Client struct {
	addr       string
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for addr, a unix socket path or tcp://host:port.
func NewClient(addr string) *Client {
	if strings.HasPrefix(addr, tcpPrefix) {
		return &Client{
			addr:       addr,
			baseURL:    "http://" + strings.TrimPrefix(addr, tcpPrefix),
			httpClient: &http.Client{},
		}
	}

	return &Client{
		addr:    addr,
		baseURL: "http://unix",
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					conn, err := (&net.Dialer{}).DialContext(ctx, "unix", addr)
					if err != nil {
						if errors.Is(err, os.ErrNotExist) {
							return nil, ErrDaemonNotRunning
						}
						if errors.Is(err, os.ErrPermission) {
							return nil, ErrPermissionDenied
						}
						logrus.Errorf("failed to connect to unix socket: %v", err)
						return nil, err
					}
					return conn, nil
				},
			},
		},
	}
}

// Send is a method for sending a request to the g2 daemon
func (c *Client) Send(method string, path string, data string) (string, error) {
	logrus.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"data":   data,
		"addr":   c.addr,
	}).Debug("sending request")

	var body io.Reader
	if data != "" {
		body = strings.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if data != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.Errorf("failed to close response body: %v", err)
		}
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	ret := string(b)

	// Error bodies are JSON strings.
	msg := ret
	if resp.StatusCode >= 400 {
		var m string
		if json.Unmarshal(b, &m) == nil {
			msg = m
		}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode == http.StatusBadRequest:
		return "", fmt.Errorf("%w: %s", ErrBadRequest, msg)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return "", fmt.Errorf("%w: %s", ErrUnprocessable, msg)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("got %d: %s", resp.StatusCode, msg)
	}

	return ret, nil
}

// Get is a method for sending a GET request to the g2 daemon
func (c *Client) Get(path string) (string, error) {
	return c.Send(http.MethodGet, path, "")
}

// Put is a method for sending a PUT request to the g2 daemon
func (c *Client) Put(path string, data string) (string, error) {
	return c.Send(http.MethodPut, path, data)
}

// Post is a method for sending a POST request to the g2 daemon
func (c *Client) Post(path string, data string) (string, error) {
	return c.Send(http.MethodPost, path, data)
}
