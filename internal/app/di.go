// Package app provides a dependency injection container for assembling application components.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/priotag/fieldcrypt/internal/config"
	cryptoService "github.com/priotag/fieldcrypt/internal/crypto/service"
	keyaccessDomain "github.com/priotag/fieldcrypt/internal/keyaccess/domain"
	keyaccessService "github.com/priotag/fieldcrypt/internal/keyaccess/service"
	"github.com/priotag/fieldcrypt/internal/metrics"
	reportUsecase "github.com/priotag/fieldcrypt/internal/report/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Services
	keyWrapper  cryptoService.KeyWrapper
	fieldCipher cryptoService.FieldCipher
	provisioner cryptoService.Provisioner
	keyLoader   *keyaccessService.Loader

	// Initialization flags and mutex for thread-safety
	loggerInit      sync.Once
	metricsInit     sync.Once
	keyWrapperInit  sync.Once
	fieldCipherInit sync.Once
	provisionerInit sync.Once
	keyLoaderInit   sync.Once
	initErrors      map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// BusinessMetrics returns the business metrics recorder. When metrics are
// disabled in the configuration a no-op implementation is returned.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.metricsInit.Do(func() {
		if err := c.initMetrics(); err != nil {
			c.initErrors["metrics"] = err
		}
	})
	if storedErr, exists := c.initErrors["metrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	if _, err := c.BusinessMetrics(); err != nil {
		return nil, err
	}
	return c.metricsProvider, nil
}

// KeyWrapper returns the RSA key wrapping service.
func (c *Container) KeyWrapper() cryptoService.KeyWrapper {
	c.keyWrapperInit.Do(func() {
		c.keyWrapper = cryptoService.NewRSAKeyWrapper()
	})
	return c.keyWrapper
}

// FieldCipher returns the field group cipher service.
func (c *Container) FieldCipher() cryptoService.FieldCipher {
	c.fieldCipherInit.Do(func() {
		c.fieldCipher = cryptoService.NewFieldCipher()
	})
	return c.fieldCipher
}

// Provisioner returns the key pair provisioning service.
func (c *Container) Provisioner() cryptoService.Provisioner {
	c.provisionerInit.Do(func() {
		c.provisioner = cryptoService.NewKeyPairProvisioner()
	})
	return c.provisioner
}

// KeyLoader returns the key session loader.
func (c *Container) KeyLoader() *keyaccessService.Loader {
	c.keyLoaderInit.Do(func() {
		c.keyLoader = keyaccessService.NewLoader(c.Logger())
	})
	return c.keyLoader
}

// FileKeyProvider builds a key provider that reads the admin private key from
// the configured PEM file, prompting for a passphrase when the file is encrypted.
func (c *Container) FileKeyProvider(prompt keyaccessService.PassphrasePrompt) keyaccessService.KeyProvider {
	return keyaccessService.NewFileKeyProvider(c.config.KeyFilePath, prompt)
}

// HardwareKeyProvider builds a key provider that unwraps the admin private key
// through a FIDO2 authenticator ceremony against the configured key blob.
func (c *Container) HardwareKeyProvider() keyaccessService.KeyProvider {
	authenticator := keyaccessService.NewFIDO2Authenticator(c.config.FIDO2PIN)
	return keyaccessService.NewHardwareKeyProvider(c.config.KeyBlobPath, authenticator)
}

// ReportDecryptor builds a batch decryptor bound to the given key session,
// decorated with metrics when enabled.
func (c *Container) ReportDecryptor(session *keyaccessDomain.Session) (reportUsecase.ReportDecryptor, error) {
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	decryptor := reportUsecase.NewReportDecryptor(
		session,
		c.KeyWrapper(),
		c.FieldCipher(),
		c.Logger(),
	)
	return reportUsecase.NewReportDecryptorWithMetrics(decryptor, businessMetrics), nil
}

// Shutdown performs cleanup of container resources and flushes pending metrics.
func (c *Container) Shutdown(ctx context.Context) error {
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("metrics provider shutdown: %w", err)
		}
	}
	return nil
}

// initLogger creates and configures a structured logger based on the log level.
// Logs go to stderr so command output on stdout stays machine-readable.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initMetrics creates the metrics provider and business metrics recorder.
func (c *Container) initMetrics() error {
	if !c.config.MetricsEnabled {
		c.businessMetrics = metrics.NewNoOpBusinessMetrics()
		return nil
	}

	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return fmt.Errorf("failed to create metrics provider: %w", err)
	}

	businessMetrics, err := provider.BusinessMetrics()
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}

	c.metricsProvider = provider
	c.businessMetrics = businessMetrics
	return nil
}
