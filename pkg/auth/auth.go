// Package auth stores the TOR control-port password so the identity rotator
// can authenticate without keeping the secret in config files. The system
// keychain is preferred; an encrypted file is the fallback for headless
// machines.
package auth

import "errors"

var (
	// ErrNotFound is returned when no secret has been stored yet.
	ErrNotFound = errors.New("control password not found")

	// ErrInvalidSecret is returned for empty or malformed input.
	ErrInvalidSecret = errors.New("invalid control password")
)

// SecretStore persists the TOR control password.
type SecretStore interface {
	Store(password string) error
	Retrieve() (string, error)
	Delete() error
	Exists() bool
}
