package credstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

const gcmPrefix = "gcm1"

// encryptValue seals plaintext with AES-GCM under key. Output layout:
// "gcm1" || nonce || ciphertext.
func encryptValue(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, len(gcmPrefix)+len(nonce)+len(ciphertext))
	out = append(out, gcmPrefix...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// decryptValue opens a value sealed by encryptValue.
func decryptValue(sealed, key []byte) ([]byte, error) {
	if len(sealed) < len(gcmPrefix) || string(sealed[:len(gcmPrefix)]) != gcmPrefix {
		return nil, fmt.Errorf("unrecognized credential format")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(sealed) < len(gcmPrefix)+nonceSize {
		return nil, fmt.Errorf("sealed value too short")
	}
	nonce := sealed[len(gcmPrefix) : len(gcmPrefix)+nonceSize]
	data := sealed[len(gcmPrefix)+nonceSize:]
	return gcm.Open(nil, nonce, data, nil)
}
