// Package credstore stores chat login credentials in the operating
// system keyring, falling back to an encrypted file when no keyring
// service is available (headless machines, CI).
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// service is the keyring service name all entries live under.
const service = "sechat"

// ErrNotFound is returned when no credentials are stored for a host.
var ErrNotFound = errors.New("no stored credentials")

// Credentials is an email/password pair for the identity provider.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Store persists one Credentials value per host.
type Store struct {
	// fallbackDir is where the encrypted fallback file and its key
	// live when the OS keyring is unusable.
	fallbackDir string
}

// New creates a store. fallbackDir is used only when the OS keyring is
// unavailable.
func New(fallbackDir string) *Store {
	return &Store{fallbackDir: fallbackDir}
}

// Save stores credentials for a host, replacing any existing entry.
func (s *Store) Save(host string, creds Credentials) error {
	payload, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	if err := keyring.Set(service, host, string(payload)); err != nil {
		if fbErr := s.fallbackSave(host, payload); fbErr != nil {
			return fmt.Errorf("keyring unavailable (%s) and fallback failed: %w", err.Error(), fbErr)
		}
	}
	return nil
}

// Load retrieves the credentials stored for a host.
func (s *Store) Load(host string) (Credentials, error) {
	var creds Credentials
	payload, err := keyring.Get(service, host)
	if err != nil {
		raw, fbErr := s.fallbackLoad(host)
		if fbErr != nil {
			if errors.Is(err, keyring.ErrNotFound) || errors.Is(fbErr, ErrNotFound) {
				return creds, ErrNotFound
			}
			return creds, fmt.Errorf("keyring unavailable (%s) and fallback failed: %w", err.Error(), fbErr)
		}
		payload = string(raw)
	}
	if err := json.Unmarshal([]byte(payload), &creds); err != nil {
		return creds, fmt.Errorf("stored credentials are corrupt: %w", err)
	}
	return creds, nil
}

// Delete removes the credentials stored for a host, from both the
// keyring and the fallback file.
func (s *Store) Delete(host string) error {
	kerr := keyring.Delete(service, host)
	ferr := s.fallbackDelete(host)
	if kerr != nil && !errors.Is(kerr, keyring.ErrNotFound) && ferr != nil {
		return kerr
	}
	return nil
}
