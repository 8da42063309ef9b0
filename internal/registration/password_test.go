package registration

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantMsg  string // empty means valid
	}{
		{name: "valid", password: "correct-horse", wantMsg: ""},
		{name: "exactly eight chars", password: "12345678", wantMsg: ""},
		{name: "empty", password: "", wantMsg: "Password is required"},
		{name: "seven chars", password: "1234567", wantMsg: "Password must be at least 8 characters"},
		{name: "eight multibyte runes", password: "ññññññññ", wantMsg: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePassword(tt.password)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("validatePassword(%q) = %v, want nil", tt.password, err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("validatePassword(%q) = %v, want *ValidationError", tt.password, err)
			}
			if verr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", verr.Message, tt.wantMsg)
			}
			if verr.Field != "password" {
				t.Errorf("field = %q, want password", verr.Field)
			}
		})
	}
}

func TestBcryptHasher_HashNeverEqualsInput(t *testing.T) {
	// Low cost keeps the test fast; production cost comes from config.
	h := BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := h.Hash("hunter2hunter2")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "hunter2hunter2" {
		t.Fatal("Hash() returned the raw password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2hunter2")); err != nil {
		t.Errorf("CompareHashAndPassword() = %v, want match", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("wrong-password")); err == nil {
		t.Error("CompareHashAndPassword() matched a wrong password")
	}
}

func TestBcryptHasher_ZeroValueUsesDefaultCost(t *testing.T) {
	var h BcryptHasher

	hash, err := h.Hash("hunter2hunter2")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("Cost() error = %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want %d", cost, bcrypt.DefaultCost)
	}
}
