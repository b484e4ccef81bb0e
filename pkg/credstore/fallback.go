package credstore

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

// fallback entries are one AES-GCM sealed file per host, with a single
// random key file beside them. 0600/0700 throughout; this is a
// best-effort stand-in for a real keyring, not a substitute.

func (s *Store) fallbackSave(host string, payload []byte) error {
	key, err := s.fallbackKey()
	if err != nil {
		return err
	}
	sealed, err := encryptValue(payload, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.fallbackDir, 0700); err != nil {
		return fmt.Errorf("cannot create credential directory: %w", err)
	}
	return os.WriteFile(s.entryPath(host), sealed, 0600)
}

func (s *Store) fallbackLoad(host string) ([]byte, error) {
	sealed, err := os.ReadFile(s.entryPath(host))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	key, err := s.fallbackKey()
	if err != nil {
		return nil, err
	}
	return decryptValue(sealed, key)
}

func (s *Store) fallbackDelete(host string) error {
	err := os.Remove(s.entryPath(host))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *Store) entryPath(host string) string {
	return filepath.Join(s.fallbackDir, host+".cred")
}

// fallbackKey loads the local encryption key, generating one on first
// use.
func (s *Store) fallbackKey() ([]byte, error) {
	keyPath := filepath.Join(s.fallbackDir, "key")
	key, err := os.ReadFile(keyPath)
	if err == nil && len(key) == 32 {
		return key, nil
	}
	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.fallbackDir, 0700); err != nil {
		return nil, fmt.Errorf("cannot create credential directory: %w", err)
	}
	if err := os.WriteFile(keyPath, key, 0600); err != nil {
		return nil, fmt.Errorf("cannot write key file: %w", err)
	}
	return key, nil
}
