package daemon

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/leptong2/pkg/calibration"
	"github.com/charlie0129/leptong2/pkg/g2"
	"github.com/charlie0129/leptong2/pkg/lepton"
)

const tcpPrefix = "tcp://"

// ginLogger logs one line per request through logger.
func ginLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// other handlers can change c.Request.URL.Path
		path := c.Request.URL.Path
		start := time.Now()
		c.Next()
		latency := time.Since(start).Milliseconds()
		statusCode := c.Writer.Status()

		entry := logger.WithFields(logrus.Fields{
			"statusCode": statusCode,
			"latency":    latency,
			"method":     c.Request.Method,
			"path":       path,
			"dataLength": max(c.Writer.Size(), 0),
		})

		if len(c.Errors) > 0 {
			entry.Error(c.Errors.ByType(gin.ErrorTypePrivate).String())
			return
		}

		msg := fmt.Sprintf("%s %s %d (%dms)", c.Request.Method, path, statusCode, latency)
		switch {
		case statusCode >= http.StatusInternalServerError:
			entry.Error(msg)
		case statusCode >= http.StatusBadRequest:
			entry.Warn(msg)
		default:
			entry.Debug(msg)
		}
	}
}

// statusFor maps calculator errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, lepton.ErrInvalidSpecies),
		errors.Is(err, calibration.ErrInvalidVariant),
		errors.Is(err, g2.ErrInvalidMode),
		errors.Is(err, g2.ErrInvalidScan):
		return http.StatusBadRequest
	case errors.Is(err, g2.ErrDivisionByZero),
		errors.Is(err, g2.ErrNonFinite):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, code int, err error) {
	c.IndentedJSON(code, err.Error())
	_ = c.AbortWithError(code, err)
}

// listen opens addr, a unix socket path or tcp://host:port. A stale socket
// file left by a previous run is removed first.
func listen(addr string, allowNonRoot bool) (net.Listener, error) {
	if strings.HasPrefix(addr, tcpPrefix) {
		l, err := net.Listen("tcp", strings.TrimPrefix(addr, tcpPrefix))
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to listen on %s", addr)
		}
		return l, nil
	}

	if err := os.Remove(addr); err != nil && !os.IsNotExist(err) {
		return nil, pkgerrors.Wrapf(err, "failed to remove stale socket %s", addr)
	}
	l, err := net.Listen("unix", addr)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to listen on %s", addr)
	}

	if allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", addr)
		if err := os.Chmod(addr, 0777); err != nil {
			_ = l.Close()
			return nil, pkgerrors.Wrapf(err, "failed to change permissions of %s", addr)
		}
	}
	return l, nil
}
