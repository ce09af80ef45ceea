// Package transport provides HTTP plumbing shared by the AI provider clients.
package transport

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LoggingTransport logs every request made to the AI provider. It never logs headers or bodies, which carry the API
// key and the user's messages
type LoggingTransport struct {
	base   http.RoundTripper
	logger *zap.Logger
	now    func() time.Time
}

func WithLogging(base http.RoundTripper, logger *zap.Logger) *LoggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingTransport{base: base, logger: logger, now: time.Now}
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := t.now()
	resp, err := t.base.RoundTrip(req)
	elapsed := t.now().Sub(start)

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.String("path", req.URL.Path),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil {
		t.logger.Warn("provider request failed", append(fields, zap.Error(err))...)
		return resp, err
	}

	fields = append(fields, zap.Int("status", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		t.logger.Warn("provider request returned an error status", fields...)
	} else {
		t.logger.Debug("provider request", fields...)
	}
	return resp, nil
}

// NewHTTPClient returns a client for provider requests. A positive timeout bounds each request, including reading the
// response body
func NewHTTPClient(timeout time.Duration, logger *zap.Logger) *http.Client {
	return &http.Client{
		Transport: WithLogging(nil, logger),
		Timeout:   timeout,
	}
}
