package crypto

import (
	"strings"
	"testing"
)

func TestHashAndVerifySecret(t *testing.T) {
	hash, err := HashSecret("s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash must not equal plaintext")
	}
	if !VerifySecret("s3cret", hash) {
		t.Error("expected correct secret to verify")
	}
	if VerifySecret("wrong", hash) {
		t.Error("expected wrong secret to fail verification")
	}
}

func TestVerifySecret_GarbageHash(t *testing.T) {
	if VerifySecret("anything", "not-a-bcrypt-hash") {
		t.Error("expected garbage hash to fail verification")
	}
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := GenerateSecret()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(a))
	}
	if a == b {
		t.Error("expected secrets to differ")
	}
}

func TestGeneratePairingCode(t *testing.T) {
	code, err := GeneratePairingCode(6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("expected 6 chars, got %d", len(code))
	}
	for _, c := range code {
		if !strings.ContainsRune(pairingCodeCharset, c) {
			t.Errorf("unexpected character %q in code", c)
		}
	}
}
