package extract

import (
	"errors"
	"fmt"
)

// ErrInvalidCredential reports that the provider refused the credential
// itself. Extraction stops at once when it is seen; retrying other models
// with the same key cannot succeed.
var ErrInvalidCredential = errors.New("credential rejected by provider")

// RejectedCredential marks a provider error as a credential rejection.
func RejectedCredential(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidCredential, err)
}

// CredentialError carries which credential of the ring was rejected. It
// never holds the credential value.
type CredentialError struct {
	Provider string
	Index    int
	Err      error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s credential #%d rejected: %v", e.Provider, e.Index, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

func (e *CredentialError) Is(target error) bool { return target == ErrInvalidCredential }

// IsCredentialError reports whether err is a credential rejection.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrInvalidCredential)
}
