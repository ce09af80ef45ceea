//go:build e2e

package testutil

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cchalm/smart-coach/internal/ai"
	"github.com/cchalm/smart-coach/internal/registration"
	"github.com/cchalm/smart-coach/internal/session"
	"github.com/cchalm/smart-coach/internal/transport"
)

// TestConfig holds configuration for end-to-end tests
type TestConfig struct {
	Provider   string
	Model      string
	Credential string
	Iterations int
	Timeout    time.Duration
}

// LoadTestConfig loads test configuration from environment variables
func LoadTestConfig() TestConfig {
	config := TestConfig{
		Provider:   ai.ProviderGemini,
		Iterations: 3,
		Timeout:    120 * time.Second,
	}

	if provider := os.Getenv("E2E_PROVIDER"); provider != "" {
		config.Provider = provider
	}
	config.Model = os.Getenv("E2E_MODEL")

	if iterations := os.Getenv("E2E_ITERATIONS"); iterations != "" {
		if val, err := strconv.Atoi(iterations); err == nil {
			config.Iterations = val
		}
	}

	if timeout := os.Getenv("E2E_TIMEOUT"); timeout != "" {
		if val, err := strconv.Atoi(timeout); err == nil {
			config.Timeout = time.Duration(val) * time.Second
		}
	}

	if config.Provider == ai.ProviderAnthropic {
		config.Credential = os.Getenv("ANTHROPIC_API_KEY")
	} else {
		config.Credential = os.Getenv("API_KEY")
		if config.Credential == "" {
			config.Credential = os.Getenv("GEMINI_API_KEY")
		}
	}

	return config
}

// TestHarness provides utilities for end-to-end testing
type TestHarness struct {
	t       *testing.T
	config  TestConfig
	gateway ai.Gateway
}

// NewTestHarness creates a new test harness talking to the live provider
func NewTestHarness(t *testing.T) *TestHarness {
	config := LoadTestConfig()

	require.NotEmpty(t, config.Credential, "an API key for provider '%s' is required for e2e tests", config.Provider)

	logger := zaptest.NewLogger(t)
	gateway, err := ai.NewGateway(config.Provider, ai.Options{
		Model:      config.Model,
		HTTPClient: &http.Client{Transport: transport.WithLogging(nil, logger), Timeout: config.Timeout},
		Logger:     logger,
	})
	require.NoError(t, err)

	return &TestHarness{
		t:       t,
		config:  config,
		gateway: gateway,
	}
}

// Config returns the test configuration
func (h *TestHarness) Config() TestConfig {
	return h.config
}

// NewRegisteredSession starts a session for a freshly registered user, already greeted by the coach
func (h *TestHarness) NewRegisteredSession(ctx context.Context, record registration.Record) *session.Session {
	h.t.Helper()
	return h.NewRegisteredSessionWithCredential(ctx, record, h.config.Credential)
}

// NewRegisteredSessionWithCredential is NewRegisteredSession with an explicit API key
func (h *TestHarness) NewRegisteredSessionWithCredential(
	ctx context.Context,
	record registration.Record,
	credential string,
) *session.Session {
	h.t.Helper()

	s, err := session.New(session.Options{
		Store:      registration.NewFileStore(h.t.TempDir(), nil),
		Gateway:    h.gateway,
		Credential: credential,
		Logger:     zaptest.NewLogger(h.t),
	})
	require.NoError(h.t, err)
	require.NoError(h.t, s.Start(ctx))
	_, err = s.Register(ctx, record)
	require.NoError(h.t, err)
	return s
}

// Ask submits text and waits for the coach's reply
func (h *TestHarness) Ask(ctx context.Context, s *session.Session, text string) (string, error) {
	turn, err := s.Submit(ctx, text)
	if err != nil {
		return "", err
	}
	require.NotNil(h.t, turn, "submit was ignored")
	reply, err := turn.Wait(ctx)
	return reply.Text, err
}

// RunIterations runs a test function multiple times and reports results
func (h *TestHarness) RunIterations(testName string, testFunc func(iteration int) error) {
	h.t.Helper()

	successCount := 0
	var lastError error

	for i := 0; i < h.config.Iterations; i++ {
		h.t.Logf("Running iteration %d/%d of %s", i+1, h.config.Iterations, testName)

		err := testFunc(i)
		if err != nil {
			h.t.Logf("Iteration %d failed: %v", i+1, err)
			lastError = err
		} else {
			successCount++
			h.t.Logf("Iteration %d succeeded", i+1)
		}
	}

	h.t.Logf("Test %s: %d/%d iterations succeeded", testName, successCount, h.config.Iterations)

	// Require at least 2/3 success rate for tests to pass
	minSuccessCount := (h.config.Iterations*2 + 2) / 3
	if successCount < minSuccessCount {
		require.NoErrorf(h.t, lastError, "Test %s failed with %d/%d successes (minimum %d required)",
			testName, successCount, h.config.Iterations, minSuccessCount)
	}
}

// WithTimeout runs a function with the configured timeout
func (h *TestHarness) WithTimeout(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	return fn(ctx)
}
