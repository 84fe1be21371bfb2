package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	keyaccessService "github.com/priotag/fieldcrypt/internal/keyaccess/service"
)

// RunEnrollAuthenticator enrolls a hardware authenticator as a key access
// method. Loads the admin private key through the given provider (typically
// the passphrase-protected key file), registers a new credential on the
// authenticator, and writes an authenticator-wrapped key blob next to it.
// After enrollment the key can be loaded with a touch instead of a passphrase.
func RunEnrollAuthenticator(
	ctx context.Context,
	keyProvider keyaccessService.KeyProvider,
	authenticator keyaccessService.Authenticator,
	logger *slog.Logger,
	rpID, userName, blobPath string,
	io IOTuple,
) error {
	if _, err := os.Stat(blobPath); err == nil {
		return fmt.Errorf("refusing to overwrite existing key blob: %s", blobPath)
	}

	privateKey, _, err := keyProvider.UnwrapPrivateKey(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(io.Writer, "Touch the authenticator to enroll it...")

	blob, err := keyaccessService.EnrollKeyBlob(ctx, authenticator, rpID, userName, privateKey)
	if err != nil {
		return err
	}

	if err := keyaccessService.WriteKeyBlob(blobPath, blob); err != nil {
		return err
	}

	fmt.Fprintf(io.Writer, "Key blob written to %s\n", blobPath)

	logger.Info("authenticator enrolled",
		slog.String("rp_id", rpID),
		slog.String("blob_path", blobPath),
	)

	return nil
}
