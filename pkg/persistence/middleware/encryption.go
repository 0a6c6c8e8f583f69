package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
	"github.com/ashwinibhardwaj/sqlassist/pkg/ports"
)

// encryptedPrefix marks a sealed password in the underlying store.
const encryptedPrefix = "enc:v1:"

// ErrPlaintextCredential is returned when a cached dataset carries an unsealed password.
var ErrPlaintextCredential = errors.New("cached dataset holds a plaintext password")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey seals new entries. Must be 32 bytes (AES-256).
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot open an entry,
	// so keys can be rotated without flushing the cache.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.DatasetStore
	config EncryptionConfig
}

// NewEncryptionMiddleware seals DBConfig.Password with AES-GCM before it reaches the store.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, fmt.Errorf("active key must be 32 bytes (AES-256), got %d", len(config.ActiveKey))
	}
	for i, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key %d must be 32 bytes, got %d", i, len(k))
		}
	}
	return func(next ports.DatasetStore) ports.DatasetStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, dataset domain.Dataset) error {
	sealed := dataset
	sealed.Schema = dataset.Schema.Clone()
	if pw := dataset.DBConfig.Password; pw != "" {
		ciphertext, err := encrypt([]byte(pw), m.config.ActiveKey)
		if err != nil {
			return fmt.Errorf("encrypt credentials: %w", err)
		}
		sealed.DBConfig.Password = encryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext)
	}
	return m.next.Save(ctx, sealed)
}

func (m *encryptionMiddleware) Load(ctx context.Context, filename string) (domain.Dataset, error) {
	dataset, err := m.next.Load(ctx, filename)
	if err != nil {
		return domain.Dataset{}, err
	}

	pw := dataset.DBConfig.Password
	if pw == "" {
		return dataset, nil
	}
	encoded, ok := strings.CutPrefix(pw, encryptedPrefix)
	if !ok {
		return domain.Dataset{}, fmt.Errorf("%w: %s", ErrPlaintextCredential, filename)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("decode credentials of %s: %w", filename, err)
	}
	plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("decrypt credentials of %s: %w", filename, err)
	}
	dataset.DBConfig.Password = string(plain)
	return dataset, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, filename string) error {
	return m.next.Delete(ctx, filename)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// ParseKey decodes a 32-byte key given as base64 or hex.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if key, err := base64.StdEncoding.DecodeString(s); err == nil && len(key) == 32 {
		return key, nil
	}
	if key, err := hex.DecodeString(s); err == nil && len(key) == 32 {
		return key, nil
	}
	return nil, errors.New("encryption key must be 32 bytes, base64 or hex encoded")
}

func encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	for _, key := range append([][]byte{activeKey}, fallbackKeys...) {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
