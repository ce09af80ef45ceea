package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cchalm/smart-coach/internal/ai"
	"github.com/cchalm/smart-coach/internal/config"
	"github.com/cchalm/smart-coach/internal/registration"
	"github.com/cchalm/smart-coach/internal/session"
	"github.com/cchalm/smart-coach/internal/telemetry"
	"github.com/cchalm/smart-coach/internal/transport"
)

func setupContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	// Setup graceful shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		fmt.Fprintln(os.Stderr, "Interrupt signal detected, shutting down gracefully...")
		cancel()
		<-interrupt
		fmt.Fprintln(os.Stderr, "Forcing shutdown")
		os.Exit(1)
	}()

	return ctx
}

// newLogger builds a JSON logger writing to the configured log file. The terminal belongs to the chat
func newLogger(c config.Config) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(c.LogFile), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{c.LogFile}
	zc.ErrorOutputPaths = []string{c.LogFile}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if c.Debug {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func openStore(c config.Config, logger *zap.Logger) (registration.Store, func() error, error) {
	switch c.Store {
	case config.StoreSQLite:
		if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err := registration.NewSQLiteStore(filepath.Join(c.DataDir, "smart-coach.db"), logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return registration.NewFileStore(c.DataDir, logger), func() error { return nil }, nil
	}
}

func createGateway(c config.Config, logger *zap.Logger) (ai.Gateway, error) {
	return ai.NewGateway(c.Provider, ai.Options{
		Model:      c.Model,
		HTTPClient: transport.NewHTTPClient(c.RequestTimeout, logger.Named("http")),
		Logger:     logger.Named("ai"),
	})
}

func createTelemetryProvider(ctx context.Context, c config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	telemetryConfig := telemetry.Config{
		Enabled:        c.TelemetryEnabled,
		Endpoint:       c.OTLPEndpoint,
		ServiceVersion: version,
	}
	return telemetry.NewProvider(ctx, telemetryConfig, logger.Named("telemetry"))
}

// deps holds everything a command needs to talk to the coach
type deps struct {
	logger     *zap.Logger
	store      registration.Store
	session    *session.Session
	telemetry  *telemetry.Provider
	closeStore func() error
}

func newDeps(ctx context.Context) (*deps, error) {
	logger.Info("starting smart-coach",
		zap.String("version", version),
		zap.String("provider", cfg.Provider),
		zap.String("store", cfg.Store),
		zap.Bool("credential_configured", cfg.Credential() != ""),
	)

	store, closeStore, err := openStore(cfg, logger.Named("registration"))
	if err != nil {
		return nil, err
	}

	d := &deps{logger: logger, store: store, closeStore: closeStore}

	d.telemetry, err = createTelemetryProvider(ctx, cfg, logger)
	if err != nil {
		d.close()
		return nil, err
	}

	gateway, err := createGateway(cfg, logger)
	if err != nil {
		d.close()
		return nil, err
	}

	d.session, err = session.New(session.Options{
		Store:      store,
		Gateway:    gateway,
		Credential: cfg.Credential(),
		Logger:     logger.Named("session"),
		Tracer:     d.telemetry.Tracer(),
	})
	if err != nil {
		d.close()
		return nil, err
	}
	return d, nil
}

func (d *deps) close() {
	if d.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.telemetry.Shutdown(ctx); err != nil {
			d.logger.Warn("failed to shut down telemetry", zap.Error(err))
		}
		cancel()
	}
	if err := d.closeStore(); err != nil {
		d.logger.Warn("failed to close registration store", zap.Error(err))
	}
	_ = d.logger.Sync()
}
