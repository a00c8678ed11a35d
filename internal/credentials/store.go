// Package credentials encrypts provider API keys and credentials at rest
// using NaCl secretbox. The store key either lives in a key file next to the
// encrypted blobs or derives from a master passphrase via scrypt.
package credentials

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"github.com/tablescout/tablescout/internal/logger"
)

const (
	keySize   = 32
	nonceSize = 24
	saltSize  = 16

	keyFileName = ".key"
	encSuffix   = ".enc"
)

// ErrDecryptFailed is returned when a stored blob cannot be decrypted,
// usually because the key changed.
var ErrDecryptFailed = errors.New("credentials: decryption failed")

// scrypt parameters for passphrase-derived keys.
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// Store encrypts per-provider credential maps on disk. Each provider's
// encrypted JSON lives at dir/{provider}.enc.
type Store struct {
	dir        string
	passphrase string
	key        *[keySize]byte
}

// NewStore creates a credential store rooted at dir. When passphrase is
// non-empty the key derives from it; otherwise a random key is generated
// once and kept in dir/.key.
func NewStore(dir, passphrase string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("credentials: directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("credentials: creating %s: %w", dir, err)
	}
	return &Store{dir: dir, passphrase: passphrase}, nil
}

// Save encrypts and writes credentials for a provider.
func (s *Store) Save(provider string, creds map[string]string) error {
	if err := validProvider(provider); err != nil {
		return err
	}
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return err
	}

	key, salt, err := s.loadKey(true)
	if err != nil {
		return err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return err
	}

	// Layout: salt (only for passphrase keys) | nonce | box
	out := make([]byte, 0, len(salt)+nonceSize+len(plaintext)+secretbox.Overhead)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, plaintext, &nonce, key)

	if err := os.WriteFile(s.encPath(provider), out, 0o600); err != nil {
		return err
	}
	logger.Info("credentials saved", "provider", provider)
	return nil
}

// Load decrypts credentials for a provider. Returns (nil, nil) when none are
// stored.
func (s *Store) Load(provider string) (map[string]string, error) {
	if err := validProvider(provider); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.encPath(provider))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var salt []byte
	if s.passphrase != "" {
		if len(data) < saltSize {
			return nil, ErrDecryptFailed
		}
		salt, data = data[:saltSize], data[saltSize:]
	}
	if len(data) < nonceSize {
		return nil, ErrDecryptFailed
	}

	key, err := s.keyFor(salt)
	if err != nil {
		return nil, err
	}

	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	plaintext, ok := secretbox.Open(nil, data[nonceSize:], &nonce, key)
	if !ok {
		logger.Warn("failed to decrypt credentials", "provider", provider)
		return nil, ErrDecryptFailed
	}

	var creds map[string]string
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// Delete removes stored credentials for a provider.
func (s *Store) Delete(provider string) error {
	if err := validProvider(provider); err != nil {
		return err
	}
	err := os.Remove(s.encPath(provider))
	if os.IsNotExist(err) {
		return nil
	}
	if err == nil {
		logger.Info("credentials deleted", "provider", provider)
	}
	return err
}

// Has reports whether credentials exist for a provider.
func (s *Store) Has(provider string) bool {
	if validProvider(provider) != nil {
		return false
	}
	_, err := os.Stat(s.encPath(provider))
	return err == nil
}

// List returns the providers that have stored credentials.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var providers []string
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasSuffix(name, encSuffix) {
			providers = append(providers, strings.TrimSuffix(name, encSuffix))
		}
	}
	return providers, nil
}

func (s *Store) encPath(provider string) string {
	return filepath.Join(s.dir, provider+encSuffix)
}

// loadKey returns the encryption key, plus the salt to prepend when a
// passphrase is in use. With create set, missing key material is generated.
func (s *Store) loadKey(create bool) (*[keySize]byte, []byte, error) {
	if s.passphrase != "" {
		salt := make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, nil, err
		}
		key, err := deriveKey(s.passphrase, salt)
		return key, salt, err
	}

	if s.key != nil {
		return s.key, nil, nil
	}

	keyPath := filepath.Join(s.dir, keyFileName)
	raw, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		if !create {
			return nil, nil, errors.New("credentials: key file missing")
		}
		raw = make([]byte, keySize)
		if _, err := io.ReadFull(rand.Reader, raw); err != nil {
			return nil, nil, err
		}
		if err := os.WriteFile(keyPath, raw, 0o600); err != nil {
			return nil, nil, err
		}
	} else if err != nil {
		return nil, nil, err
	}
	if len(raw) != keySize {
		return nil, nil, errors.New("credentials: key file is corrupt")
	}

	var key [keySize]byte
	copy(key[:], raw)
	s.key = &key
	return s.key, nil, nil
}

// keyFor returns the decryption key for a blob, deriving from the stored
// salt when a passphrase is in use.
func (s *Store) keyFor(salt []byte) (*[keySize]byte, error) {
	if s.passphrase != "" {
		return deriveKey(s.passphrase, salt)
	}
	key, _, err := s.loadKey(false)
	return key, err
}

func deriveKey(passphrase string, salt []byte) (*[keySize]byte, error) {
	raw, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, err
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}

func validProvider(provider string) error {
	if provider == "" || strings.ContainsAny(provider, `/\.`) {
		return fmt.Errorf("credentials: invalid provider name %q", provider)
	}
	return nil
}
