package packaging

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyIterations is the fixed PBKDF2 work factor. Changing it breaks
	// decryption of every previously sealed package.
	KeyIterations = 100_000
	// KeyLength is the derived key size in bytes (AES-256).
	KeyLength = 32
	// SaltLength is the envelope salt size in bytes.
	SaltLength = 16
	// IVLength is the GCM nonce size in bytes.
	IVLength = 12
)

// ErrDecryptionFailed covers both wrong password and corrupted/tampered
// ciphertext. AEAD cannot tell the two apart, so neither do we; any
// user-facing "incorrect password" copy is a best guess.
var ErrDecryptionFailed = errors.New("decryption failed: wrong password or corrupted data")

// CryptoProvider is the stateless primitive layer under Seal/Unseal.
// The production implementation draws randomness from crypto/rand; tests
// substitute a deterministic double to get reproducible envelopes.
type CryptoProvider interface {
	// DeriveKey stretches a password and salt into a symmetric key.
	// Deterministic: the same (password, salt) pair always yields the same key.
	DeriveKey(password string, salt []byte) []byte
	// Encrypt seals plaintext under key and iv with an authenticated mode.
	Encrypt(plaintext, key, iv []byte) ([]byte, error)
	// Decrypt reverses Encrypt. Returns ErrDecryptionFailed on tag mismatch.
	Decrypt(ciphertext, key, iv []byte) ([]byte, error)
	// RandomBytes returns n bytes of randomness for salts and IVs.
	RandomBytes(n int) ([]byte, error)
}

// AESGCMProvider is the production CryptoProvider: PBKDF2-SHA256 key
// derivation and AES-256-GCM encryption.
type AESGCMProvider struct{}

// NewAESGCMProvider returns the production provider.
func NewAESGCMProvider() *AESGCMProvider { return &AESGCMProvider{} }

// DeriveKey derives a 256-bit key via PBKDF2-SHA256 with the fixed
// iteration count.
func (AESGCMProvider) DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, KeyIterations, KeyLength, sha256.New)
}

// Encrypt seals plaintext with AES-256-GCM.
func (AESGCMProvider) Encrypt(plaintext, key, iv []byte) ([]byte, error) {
	aead, err := newGCM(key, len(iv))
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, iv, plaintext, nil), nil
}

// Decrypt opens AES-256-GCM ciphertext. Any authentication failure is
// collapsed into ErrDecryptionFailed.
func (AESGCMProvider) Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	aead, err := newGCM(key, len(iv))
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// RandomBytes reads n bytes from crypto/rand.
func (AESGCMProvider) RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return buf, nil
}

func newGCM(key []byte, nonceSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return aead, nil
}

// Envelope is the cleartext material stored beside the ciphertext so that
// the password alone suffices for decryption. Both values are regenerated
// on every seal and never reused across packages.
type Envelope struct {
	Salt []byte
	IV   []byte
}

// Sealer performs password-based seal/unseal of byte payloads.
type Sealer struct {
	provider CryptoProvider
}

// NewSealer creates a Sealer over the given provider.
func NewSealer(provider CryptoProvider) *Sealer {
	return &Sealer{provider: provider}
}

// Seal encrypts plaintext under a key derived from password, with a fresh
// random salt and IV.
func (s *Sealer) Seal(plaintext []byte, password string) (ciphertext []byte, env Envelope, err error) {
	salt, err := s.provider.RandomBytes(SaltLength)
	if err != nil {
		return nil, Envelope{}, fmt.Errorf("generate salt: %w", err)
	}
	iv, err := s.provider.RandomBytes(IVLength)
	if err != nil {
		return nil, Envelope{}, fmt.Errorf("generate iv: %w", err)
	}

	key := s.provider.DeriveKey(password, salt)
	ciphertext, err = s.provider.Encrypt(plaintext, key, iv)
	if err != nil {
		return nil, Envelope{}, fmt.Errorf("encrypt: %w", err)
	}
	return ciphertext, Envelope{Salt: salt, IV: iv}, nil
}

// Unseal re-derives the key from password and the envelope salt, then
// attempts authenticated decryption. Returns ErrDecryptionFailed on any
// authentication failure — it never returns garbage silently.
func (s *Sealer) Unseal(ciphertext []byte, password string, env Envelope) ([]byte, error) {
	key := s.provider.DeriveKey(password, env.Salt)
	return s.provider.Decrypt(ciphertext, key, env.IV)
}
