package commands

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	cryptoService "github.com/priotag/fieldcrypt/internal/crypto/service"
)

// RunInitKeypair provisions a fresh admin RSA keypair for an institution.
// Prompts for a passphrase (with confirmation), writes the passphrase-encrypted
// private key and the public key as PEM files, and never persists plaintext
// key material.
//
// The private key file is created with 0600 permissions. Existing files are
// never overwritten; provisioning is a one-time operation per institution.
func RunInitKeypair(
	provisioner cryptoService.Provisioner,
	logger *slog.Logger,
	keyPath, publicKeyPath string,
	io IOTuple,
) error {
	for _, path := range []string{keyPath, publicKeyPath} {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("refusing to overwrite existing file: %s", path)
		}
	}

	reader := bufio.NewReader(io.Reader)
	passphrase, err := promptLine(reader, io.Writer, "Passphrase for the private key: ")
	if err != nil {
		return err
	}
	confirm, err := promptLine(reader, io.Writer, "Confirm passphrase: ")
	if err != nil {
		return err
	}

	keyPair, err := provisioner.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("failed to generate keypair: %w", err)
	}

	privatePEM, err := provisioner.ExportPrivateKeyPEM(keyPair.PrivateKey, passphrase, confirm)
	if err != nil {
		return err
	}

	if err := os.WriteFile(keyPath, privatePEM, 0o600); err != nil {
		return fmt.Errorf("failed to write private key file: %w", err)
	}
	if err := os.WriteFile(publicKeyPath, keyPair.PublicKeyPEM, 0o644); err != nil {
		return fmt.Errorf("failed to write public key file: %w", err)
	}

	fmt.Fprintf(io.Writer, "Private key written to %s\n", keyPath)
	fmt.Fprintf(io.Writer, "Public key written to %s\n", publicKeyPath)

	logger.Info("admin keypair provisioned",
		slog.String("key_path", keyPath),
		slog.String("public_key_path", publicKeyPath),
	)

	return nil
}
