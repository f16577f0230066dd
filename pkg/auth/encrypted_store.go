package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize       = 16
	keySize        = 32
	pbkdf2Rounds   = 100000
	secretFileName = "tor_control.enc"
)

// EncryptedFileStore implements SecretStore using an AES-GCM encrypted file,
// for machines without a usable keychain. The key is derived from a
// user-supplied passphrase.
type EncryptedFileStore struct {
	path       string
	passphrase []byte
}

// NewEncryptedFileStore creates a file-based secret store under the user
// config directory.
func NewEncryptedFileStore(passphrase string) (*EncryptedFileStore, error) {
	if passphrase == "" {
		return nil, ErrInvalidSecret
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config directory: %w", err)
	}
	dir := filepath.Join(configDir, "sreality-scraper")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	return &EncryptedFileStore{
		path:       filepath.Join(dir, secretFileName),
		passphrase: []byte(passphrase),
	}, nil
}

// Store encrypts and saves the control password.
func (s *EncryptedFileStore) Store(password string) error {
	if password == "" {
		return ErrInvalidSecret
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := s.cipher(salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(password), nil)

	// Layout: salt | nonce | ciphertext
	payload := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	payload = append(payload, salt...)
	payload = append(payload, nonce...)
	payload = append(payload, sealed...)

	if err := os.WriteFile(s.path, payload, 0600); err != nil {
		return fmt.Errorf("failed to write secret file: %w", err)
	}
	return nil
}

// Retrieve decrypts and returns the control password.
func (s *EncryptedFileStore) Retrieve() (string, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}

	if len(payload) < saltSize {
		return "", fmt.Errorf("secret file is corrupted")
	}
	salt := payload[:saltSize]

	gcm, err := s.cipher(salt)
	if err != nil {
		return "", err
	}

	rest := payload[saltSize:]
	if len(rest) < gcm.NonceSize() {
		return "", fmt.Errorf("secret file is corrupted")
	}
	nonce, sealed := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	password, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt secret: %w", err)
	}

	return string(password), nil
}

// Delete removes the secret file.
func (s *EncryptedFileStore) Delete() error {
	if err := os.Remove(s.path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete secret file: %w", err)
	}
	return nil
}

// Exists checks if a secret file is present.
func (s *EncryptedFileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func (s *EncryptedFileStore) cipher(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(s.passphrase, salt, pbkdf2Rounds, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
