package auth

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "sreality-scraper"
	keyringKey     = "tor_control_password"
)

// KeyringStore implements SecretStore using the system keychain.
type KeyringStore struct{}

// NewKeyringStore creates a keyring-based secret store, probing the keyring
// first so callers can fall back to the encrypted file when the keychain is
// unavailable.
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Store saves the control password to the system keychain.
func (k *KeyringStore) Store(password string) error {
	if password == "" {
		return ErrInvalidSecret
	}
	if err := keyring.Set(keyringService, keyringKey, password); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Retrieve gets the control password from the system keychain.
func (k *KeyringStore) Retrieve() (string, error) {
	password, err := keyring.Get(keyringService, keyringKey)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to retrieve from keyring: %w", err)
	}
	return password, nil
}

// Delete removes the control password from the system keychain.
func (k *KeyringStore) Delete() error {
	err := keyring.Delete(keyringService, keyringKey)
	if err != nil {
		if err == keyring.ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// Exists checks if a control password is stored in the keychain.
func (k *KeyringStore) Exists() bool {
	_, err := keyring.Get(keyringService, keyringKey)
	return err == nil
}
