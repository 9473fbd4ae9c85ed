package helpers

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "secret1" {
		t.Fatal("hash must not equal the plain password")
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}
}

func TestCompareHashAndPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if !CompareHashAndPassword(hash, "secret1") {
		t.Fatal("correct password rejected")
	}
	if CompareHashAndPassword(hash, "secret2") {
		t.Fatal("wrong password accepted")
	}
	if CompareHashAndPassword("not-a-hash", "secret1") {
		t.Fatal("garbage hash accepted")
	}
}
