// Package fieldcodec decodes personal fields (email, phone) on their way out
// of a repository. Values prefixed with "enc:" are base64(nonce||ciphertext)
// sealed with AES-GCM; anything else is stored in the clear.
package fieldcodec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const Prefix = "enc:"

var ErrNoKey = errors.New("fieldcodec: encrypted value but no key configured")

type Codec interface {
	Decode(v string) (string, error)
}

// Plain passes clear values through and refuses encrypted ones.
type Plain struct{}

func (Plain) Decode(v string) (string, error) {
	if strings.HasPrefix(v, Prefix) {
		return "", ErrNoKey
	}
	return v, nil
}

type AESGCM struct {
	aead cipher.AEAD
}

// NewAESGCM accepts a 16, 24 or 32 byte key.
func NewAESGCM(key []byte) (*AESGCM, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("fieldcodec: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("fieldcodec: %w", err)
	}
	return &AESGCM{aead: aead}, nil
}

// FromBase64Key builds the codec from FIELD_KEY. An empty key yields Plain.
func FromBase64Key(s string) (Codec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Plain{}, nil
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("fieldcodec: key is not base64: %w", err)
	}
	return NewAESGCM(key)
}

func (c *AESGCM) Decode(v string) (string, error) {
	if !strings.HasPrefix(v, Prefix) {
		return v, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(v, Prefix))
	if err != nil {
		return "", fmt.Errorf("fieldcodec: %w", err)
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns {
		return "", errors.New("fieldcodec: ciphertext too short")
	}
	out, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("fieldcodec: %w", err)
	}
	return string(out), nil
}

// Encode seals v; used by fixtures and the seeding path.
func (c *AESGCM) Encode(v string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(v), nil)
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}
