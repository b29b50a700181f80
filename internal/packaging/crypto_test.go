package packaging

import (
	"bytes"
	"errors"
	"testing"
)

// fixedProvider wraps the production provider but hands out deterministic
// "randomness" so envelopes are reproducible in tests.
type fixedProvider struct {
	AESGCMProvider
	next byte
}

func (p *fixedProvider) RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = p.next
		p.next++
	}
	return buf, nil
}

func TestSealUnsealRoundTrip(t *testing.T) {
	sealer := NewSealer(NewAESGCMProvider())
	plaintext := []byte(`{"testName":"Mock Test 1"}`)

	ciphertext, env, err := sealer.Seal(plaintext, "hunter2")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if len(env.Salt) != SaltLength {
		t.Errorf("salt length = %d, want %d", len(env.Salt), SaltLength)
	}
	if len(env.IV) != IVLength {
		t.Errorf("iv length = %d, want %d", len(env.IV), IVLength)
	}
	if bytes.Contains(ciphertext, []byte("Mock Test")) {
		t.Error("ciphertext leaks plaintext")
	}

	got, err := sealer.Unseal(ciphertext, "hunter2", env)
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip mismatch: got %q", got)
	}
}

func TestUnsealWrongPassword(t *testing.T) {
	sealer := NewSealer(NewAESGCMProvider())

	ciphertext, env, err := sealer.Seal([]byte("secret"), "correct")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	_, err = sealer.Unseal(ciphertext, "incorrect", env)
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("wrong password: err = %v, want ErrDecryptionFailed", err)
	}
}

func TestUnsealTamperedCiphertext(t *testing.T) {
	sealer := NewSealer(NewAESGCMProvider())

	ciphertext, env, err := sealer.Seal([]byte("secret"), "pw")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	ciphertext[0] ^= 0xFF

	_, err = sealer.Unseal(ciphertext, "pw", env)
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("tampered ciphertext: err = %v, want ErrDecryptionFailed", err)
	}
}

func TestSealFreshEnvelopePerCall(t *testing.T) {
	sealer := NewSealer(NewAESGCMProvider())

	_, env1, err := sealer.Seal([]byte("same input"), "pw")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	_, env2, err := sealer.Seal([]byte("same input"), "pw")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if bytes.Equal(env1.Salt, env2.Salt) {
		t.Error("salt reused across seals")
	}
	if bytes.Equal(env1.IV, env2.IV) {
		t.Error("iv reused across seals")
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	p := NewAESGCMProvider()
	salt := []byte("0123456789abcdef")

	k1 := p.DeriveKey("password", salt)
	k2 := p.DeriveKey("password", salt)
	if !bytes.Equal(k1, k2) {
		t.Error("same password and salt produced different keys")
	}
	if len(k1) != KeyLength {
		t.Errorf("key length = %d, want %d", len(k1), KeyLength)
	}

	if bytes.Equal(k1, p.DeriveKey("password", []byte("fedcba9876543210"))) {
		t.Error("different salt produced the same key")
	}
	if bytes.Equal(k1, p.DeriveKey("Password", salt)) {
		t.Error("different password produced the same key")
	}
}

func TestSealDeterministicWithFixedProvider(t *testing.T) {
	plaintext := []byte("payload")

	c1, env1, err := NewSealer(&fixedProvider{}).Seal(plaintext, "pw")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	c2, env2, err := NewSealer(&fixedProvider{}).Seal(plaintext, "pw")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if !bytes.Equal(env1.Salt, env2.Salt) || !bytes.Equal(env1.IV, env2.IV) {
		t.Error("fixed provider produced differing envelopes")
	}
	if !bytes.Equal(c1, c2) {
		t.Error("fixed provider produced differing ciphertexts")
	}
}
