package feishu

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrDecrypt is the class of all event-envelope decryption failures. Callers
// treat the event as undeliverable and drop it; the webhook still acks.
var ErrDecrypt = errors.New("decrypt event envelope")

// EventCipher decrypts the "encrypt" field of webhook envelopes. The platform
// derives the AES-256 key by hashing the configured encrypt key with SHA-256;
// payloads are CBC ciphertext with the IV in the first block and PKCS#7
// padding.
type EventCipher struct {
	key []byte
}

// NewEventCipher creates a cipher from the configured encrypt key. An empty
// key yields a cipher that rejects every envelope.
func NewEventCipher(encryptKey string) *EventCipher {
	if strings.TrimSpace(encryptKey) == "" {
		return &EventCipher{}
	}
	sum := sha256.Sum256([]byte(encryptKey))
	return &EventCipher{key: sum[:]}
}

// Configured reports whether an encrypt key was provided.
func (c *EventCipher) Configured() bool {
	return len(c.key) > 0
}

// Decrypt decodes and decrypts a base64 AES-CBC envelope, returning the
// plaintext event JSON.
func (c *EventCipher) Decrypt(encrypted string) ([]byte, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%w: encrypt key not configured", ErrDecrypt)
	}
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrDecrypt, err)
	}
	if len(raw) < aes.BlockSize*2 || len(raw)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d not block aligned", ErrDecrypt, len(raw))
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	iv := raw[:aes.BlockSize]
	ciphertext := raw[aes.BlockSize:]

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return unpadPKCS7(plaintext)
}

func unpadPKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrDecrypt)
	}
	pad := int(data[len(data)-1])
	if pad < 1 || pad > aes.BlockSize || pad > len(data) {
		return nil, fmt.Errorf("%w: invalid padding byte %d", ErrDecrypt, pad)
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("%w: corrupt padding", ErrDecrypt)
		}
	}
	return data[:len(data)-pad], nil
}
