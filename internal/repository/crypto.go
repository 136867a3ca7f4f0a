package repository

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NumberCipher encrypts and decrypts card numbers for storage. The stored
// form is hex(IV || AES-CBC ciphertext) with PKCS#7 padding. Callers outside
// the repository only ever see plaintext numbers.
type NumberCipher struct {
	key []byte
}

// NewNumberCipher validates the key and returns a cipher.
func NewNumberCipher(key []byte) (*NumberCipher, error) {
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes, got %d", len(key))
	}
	return &NumberCipher{key: key}, nil
}

// Encrypt encrypts a card number for storage.
func (c *NumberCipher) Encrypt(plain string) (string, error) {
	if len(plain) == 0 {
		return "", fmt.Errorf("input data is empty")
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	// PKCS#7 padding
	data := []byte(plain)
	padding := aes.BlockSize - len(data)%aes.BlockSize
	for i := 0; i < padding; i++ {
		data = append(data, byte(padding))
	}

	ciphertext := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, data)

	return hex.EncodeToString(append(iv, ciphertext...)), nil
}

// Decrypt decrypts a stored card number.
func (c *NumberCipher) Decrypt(encrypted string) (string, error) {
	if len(encrypted) == 0 {
		return "", fmt.Errorf("encrypted data is empty")
	}

	data, err := hex.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}
	if len(data) < aes.BlockSize {
		return "", fmt.Errorf("encrypted data too short: %d bytes", len(data))
	}

	iv := data[:aes.BlockSize]
	ciphertext := data[aes.BlockSize:]
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("invalid ciphertext length: %d bytes", len(ciphertext))
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	padding := int(plaintext[len(plaintext)-1])
	if padding > aes.BlockSize || padding == 0 || padding > len(plaintext) {
		return "", fmt.Errorf("invalid padding value: %d", padding)
	}
	for i := len(plaintext) - padding; i < len(plaintext); i++ {
		if int(plaintext[i]) != padding {
			return "", fmt.Errorf("invalid padding byte at position %d", i)
		}
	}

	return string(plaintext[:len(plaintext)-padding]), nil
}
