package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0xab}, 32)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := New(testKey())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	plaintexts := []string{
		"sk-test-1234567890abcdef",
		"",
		"key with spaces and unicode: 密钥",
	}

	for _, plaintext := range plaintexts {
		encrypted, err := c.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q) returned error: %v", plaintext, err)
		}

		if strings.Count(encrypted, ":") != 2 {
			t.Fatalf("expected 3-segment ciphertext, got %q", encrypted)
		}

		decrypted, err := c.Decrypt(encrypted)
		if err != nil {
			t.Fatalf("Decrypt returned error: %v", err)
		}
		if decrypted != plaintext {
			t.Errorf("round trip mismatch: got %q, want %q", decrypted, plaintext)
		}
	}
}

func TestEncryptProducesFreshNonces(t *testing.T) {
	c, err := New(testKey())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	first, err := c.Encrypt("same plaintext")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	second, err := c.Encrypt("same plaintext")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}

	if first == second {
		t.Error("expected distinct ciphertexts for repeated plaintext")
	}
}

func TestNewRejectsBadKeyLength(t *testing.T) {
	for _, size := range []int{0, 16, 31, 33, 64} {
		if _, err := New(bytes.Repeat([]byte{0x01}, size)); err == nil {
			t.Errorf("expected error for %d-byte key", size)
		}
	}
}

func TestDecryptRejectsMalformedInput(t *testing.T) {
	c, err := New(testKey())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	cases := []string{
		"",
		"plaintext-key",
		"one:two",
		"a:b:c:d",
		"!!!:!!!:!!!",
		"YWJj:YWJj:YWJj",
	}

	for _, input := range cases {
		if _, err := c.Decrypt(input); err == nil {
			t.Errorf("expected error decrypting %q", input)
		}
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	c, err := New(testKey())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	encrypted, err := c.Encrypt("sk-secret")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}

	otherKey, err := New(bytes.Repeat([]byte{0xcd}, 32))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := otherKey.Decrypt(encrypted); err == nil {
		t.Error("expected decryption with wrong key to fail")
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "****"},
		{"short", "****"},
		{"12345678", "****"},
		{"sk-test-1234567890abcdef", "sk-t****cdef"},
	}

	for _, tt := range tests {
		if got := Mask(tt.key); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestIsEncrypted(t *testing.T) {
	c, err := New(testKey())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	encrypted, err := c.Encrypt("sk-secret")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}

	if !IsEncrypted(encrypted) {
		t.Errorf("expected %q to look encrypted", encrypted)
	}
	if IsEncrypted("sk-plaintext-key") {
		t.Error("expected plaintext key to not look encrypted")
	}
}
