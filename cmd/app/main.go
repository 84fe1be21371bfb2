// Package main provides the entry point for the application with CLI commands.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/priotag/fieldcrypt/cmd/app/commands"
	"github.com/priotag/fieldcrypt/internal/app"
	"github.com/priotag/fieldcrypt/internal/config"
	keyaccessService "github.com/priotag/fieldcrypt/internal/keyaccess/service"
)

// passphrasePrompt reads a passphrase from stdin for the file key provider.
func passphrasePrompt() (string, error) {
	fmt.Fprint(os.Stderr, "Passphrase: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return trimNewline(line), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// keyProvider selects the key access method: the authenticator-wrapped key
// blob when requested, the passphrase-protected key file otherwise.
func keyProvider(container *app.Container, useAuthenticator bool) keyaccessService.KeyProvider {
	if useAuthenticator {
		return container.HardwareKeyProvider()
	}
	return container.FileKeyProvider(passphrasePrompt)
}

// serveMetrics exposes the Prometheus endpoint for the duration of a batch
// run. Returns a no-op stop function when metrics are disabled.
func serveMetrics(container *app.Container, logger *slog.Logger) (func(), error) {
	provider, err := container.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return func() {}, nil
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", container.Config().MetricsPort),
		Handler: provider.Handler(),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown metrics server", slog.Any("error", err))
		}
	}, nil
}

func main() {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()

	cmd := &cli.Command{
		Name:    "fieldcrypt",
		Usage:   "Field-level encryption tooling for subject priority reports",
		Version: "1.0.0",
		Commands: []*cli.Command{
			{
				Name:  "init-keypair",
				Usage: "Provision the institution admin RSA keypair",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "key",
						Value: cfg.KeyFilePath,
						Usage: "Path for the passphrase-encrypted private key PEM",
					},
					&cli.StringFlag{
						Name:  "public-key",
						Value: cfg.PublicKeyPath,
						Usage: "Path for the public key PEM",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunInitKeypair(
						container.Provisioner(),
						logger,
						cmd.String("key"),
						cmd.String("public-key"),
						commands.DefaultIO(),
					)
				},
			},
			{
				Name:  "enroll-authenticator",
				Usage: "Enroll a FIDO2 authenticator as a key access method",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "key",
						Value: cfg.KeyFilePath,
						Usage: "Path to the private key PEM to wrap",
					},
					&cli.StringFlag{
						Name:  "blob",
						Value: cfg.KeyBlobPath,
						Usage: "Path for the authenticator-wrapped key blob",
					},
					&cli.StringFlag{
						Name:  "user",
						Value: "admin",
						Usage: "User name to register on the authenticator",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					provider := container.FileKeyProvider(passphrasePrompt)
					authenticator := keyaccessService.NewFIDO2Authenticator(cfg.FIDO2PIN)
					return commands.RunEnrollAuthenticator(
						ctx,
						provider,
						authenticator,
						logger,
						cfg.FIDO2RelyingPartyID,
						cmd.String("user"),
						cmd.String("blob"),
						commands.DefaultIO(),
					)
				},
			},
			{
				Name:  "decrypt-report",
				Usage: "Decrypt an exported subject listing into a plaintext report",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Path to the subject listing JSON",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Value:   "-",
						Usage:   "Path for the decrypted report JSON (\"-\" for stdout)",
					},
					&cli.BoolFlag{
						Name:  "authenticator",
						Usage: "Load the key through the enrolled authenticator instead of the key file",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					stopMetrics, err := serveMetrics(container, logger)
					if err != nil {
						return err
					}
					defer stopMetrics()

					return commands.RunDecryptReport(
						ctx,
						keyProvider(container, cmd.Bool("authenticator")),
						container.KeyLoader(),
						container.ReportDecryptor,
						logger,
						cmd.String("input"),
						cmd.String("output"),
						commands.DefaultIO(),
					)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Error("command failed", slog.Any("error", err))
		if shutdownErr := container.Shutdown(context.Background()); shutdownErr != nil {
			logger.Error("failed to shutdown container", slog.Any("error", shutdownErr))
		}
		os.Exit(1)
	}

	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}
