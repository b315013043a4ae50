package crypto

import "testing"

func TestHashPassword(t *testing.T) {
	password := "secreto123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if hash == "" || hash == password {
		t.Fatalf("Expected a bcrypt hash, got %q", hash)
	}
}

func TestVerifyPassword(t *testing.T) {
	password := "secreto123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !VerifyPassword(hash, password) {
		t.Error("Expected correct password to verify")
	}
	if VerifyPassword(hash, "wrongpassword") {
		t.Error("Expected wrong password to be rejected")
	}
	if VerifyPassword("not-a-hash", password) {
		t.Error("Expected malformed hash to be rejected")
	}
}

func TestHashPassword_DifferentSaltEachTime(t *testing.T) {
	password := "secreto123"

	hash1, _ := HashPassword(password)
	hash2, _ := HashPassword(password)

	if hash1 == hash2 {
		t.Error("Expected different hashes for the same password")
	}
	if !VerifyPassword(hash2, password) {
		t.Error("Expected second hash to verify")
	}
}
