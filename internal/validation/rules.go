// Package validation provides custom validation rules for the application.
package validation

import (
	validation "github.com/jellydator/validation"

	apperrors "github.com/priotag/fieldcrypt/internal/errors"
)

// PassphraseMinLength is the minimum number of characters for a private key
// export passphrase.
const PassphraseMinLength = 8

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Passphrase validates the private key export passphrase policy: the
// passphrase must meet the minimum length and the confirmation re-entry must
// match. Both failures are validation errors, raised before any key material
// is touched.
func Passphrase(passphrase, confirm string) error {
	if err := validation.Validate(
		passphrase,
		validation.Required.Error("passphrase must not be empty"),
		validation.Length(PassphraseMinLength, 0).
			Error("passphrase must be at least 8 characters"),
	); err != nil {
		return WrapValidationError(err)
	}

	if passphrase != confirm {
		return WrapValidationError(validation.NewError(
			"validation_passphrase_confirmation",
			"passphrase confirmation does not match",
		))
	}

	return nil
}
