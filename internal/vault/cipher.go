// Package vault encrypts SMTP passwords at rest.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const keySize = 32

var ErrInvalidKey = errors.New("vault key must be 32 bytes, base64 encoded")

// Cipher seals secrets with AES-256-GCM. Each secret gets its own random
// nonce; the nonce and the ciphertext are both needed to open it.
type Cipher struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewCipher builds a Cipher from a base64 (standard or URL) encoded key.
func NewCipher(encodedKey string) (*Cipher, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		key, err = base64.URLEncoding.DecodeString(encodedKey)
	}
	if err != nil || len(key) != keySize {
		return nil, ErrInvalidKey
	}
	return newCipher(key, rand.Reader)
}

func newCipher(key []byte, r io.Reader) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init aes: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Cipher{aead: aead, rand: r}, nil
}

// Encrypt returns the base64 nonce and base64 ciphertext for plaintext.
func (c *Cipher) Encrypt(plaintext string) (iv, sealed string, err error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", "", fmt.Errorf("generate iv: %w", err)
	}
	out := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(nonce), base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. It fails when either part is missing or has been
// tampered with.
func (c *Cipher) Decrypt(iv, sealed string) (string, error) {
	if iv == "" || sealed == "" {
		return "", errors.New("secret is incomplete")
	}
	nonce, err := base64.StdEncoding.DecodeString(iv)
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return "", errors.New("secret iv is malformed")
	}
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", errors.New("secret ciphertext is malformed")
	}
	plain, err := c.aead.Open(nil, nonce, data, nil)
	if err != nil {
		return "", errors.New("secret cannot be decrypted with the configured key")
	}
	return string(plain), nil
}
