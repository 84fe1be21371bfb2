package service

import (
	"context"
	"errors"
	"fmt"

	libfido2 "github.com/keys-pub/go-libfido2"

	apperrors "github.com/priotag/fieldcrypt/internal/errors"
	keyDomain "github.com/priotag/fieldcrypt/internal/keyaccess/domain"
)

// FIDO2Authenticator implements Authenticator against a physical FIDO2
// device using its hmac-secret extension. The first connected device is
// used. Timeouts are handled by the authenticator itself; this type only
// translates its outcomes into the domain taxonomy.
type FIDO2Authenticator struct {
	pin string
}

// NewFIDO2Authenticator creates a FIDO2Authenticator. The PIN may be empty
// for devices without one.
func NewFIDO2Authenticator(pin string) *FIDO2Authenticator {
	return &FIDO2Authenticator{pin: pin}
}

// MakeCredential registers a resident credential with the hmac-secret
// extension enabled and returns its credential ID.
func (a *FIDO2Authenticator) MakeCredential(ctx context.Context, rpID, userName string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	device, err := a.device()
	if err != nil {
		return nil, err
	}

	attestation, err := device.MakeCredential(
		libfido2.RandBytes(32),
		libfido2.RelyingParty{ID: rpID, Name: rpID},
		libfido2.User{ID: libfido2.RandBytes(32), Name: userName},
		libfido2.ES256,
		a.pin,
		&libfido2.MakeCredentialOpts{
			Extensions: []libfido2.Extension{libfido2.HMACSecretExtension},
			RK:         libfido2.True,
		},
	)
	if err != nil {
		return nil, mapCeremonyError(err)
	}

	return attestation.CredentialID, nil
}

// HMACSecret runs an assertion for the credential and returns the hmac-secret
// output for the salt.
func (a *FIDO2Authenticator) HMACSecret(ctx context.Context, rpID string, credentialID, salt []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	device, err := a.device()
	if err != nil {
		return nil, err
	}

	assertion, err := device.Assertion(
		rpID,
		libfido2.RandBytes(32),
		[][]byte{credentialID},
		a.pin,
		&libfido2.AssertionOpts{
			Extensions: []libfido2.Extension{libfido2.HMACSecretExtension},
			UP:         libfido2.True,
			HMACSalt:   salt,
		},
	)
	if err != nil {
		return nil, mapCeremonyError(err)
	}

	if len(assertion.HMACSecret) == 0 {
		return nil, apperrors.Wrap(keyDomain.ErrKeyFormat, "authenticator did not return an hmac-secret")
	}

	return assertion.HMACSecret, nil
}

// device opens the first connected FIDO2 device.
func (a *FIDO2Authenticator) device() (*libfido2.Device, error) {
	locations, err := libfido2.DeviceLocations()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate authenticators: %w", err)
	}
	if len(locations) == 0 {
		return nil, keyDomain.ErrNoAuthenticator
	}

	device, err := libfido2.NewDevice(locations[0].Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open authenticator: %w", err)
	}
	return device, nil
}

// mapCeremonyError translates authenticator outcomes into the domain
// taxonomy. Denial, timeout and keepalive-cancel all mean the user did not
// complete the ceremony and map to ErrUserCancelled so callers can offer a
// retry.
func mapCeremonyError(err error) error {
	switch {
	case errors.Is(err, libfido2.ErrOperationDenied),
		errors.Is(err, libfido2.ErrActionTimeout),
		errors.Is(err, libfido2.ErrKeepaliveCancel):
		return keyDomain.ErrUserCancelled
	case errors.Is(err, libfido2.ErrNoCredentials):
		return apperrors.Wrap(keyDomain.ErrKeyFormat, "credential not present on authenticator")
	default:
		return fmt.Errorf("authenticator ceremony failed: %w", err)
	}
}
