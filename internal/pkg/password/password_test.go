package password

import (
	"errors"
	"testing"
)

func TestValidate_Rules(t *testing.T) {
	cases := []struct {
		name     string
		password string
		want     error
	}{
		{"valid", "Passw0rd!", nil},
		{"valid all special chars", "Abcdef1@$!%*?&", nil},
		{"too short", "Ab1!", ErrTooShort},
		{"too short wins over other rules", "ab1", ErrTooShort},
		{"missing uppercase", "passw0rd!", ErrMissingUppercase},
		{"missing digit", "Password!", ErrMissingDigit},
		{"missing special", "Passw0rd1", ErrMissingSpecial},
		{"uppercase checked before digit", "password!", ErrMissingUppercase},
		{"special outside allowed set", "Passw0rd#", ErrMissingSpecial},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.password)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Validate(%q) = %v, want %v", tc.password, err, tc.want)
			}
		})
	}
}

func TestHash_SaltedPerCall(t *testing.T) {
	h1, err := Hash("Passw0rd!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := Hash("Passw0rd!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected different hashes for the same plaintext, got identical")
	}
	if err := Verify("Passw0rd!", h1); err != nil {
		t.Fatalf("verify h1: %v", err)
	}
	if err := Verify("Passw0rd!", h2); err != nil {
		t.Fatalf("verify h2: %v", err)
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	h, err := Hash("Passw0rd!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := Verify("Passw0rd?", h); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	if err := Verify("Passw0rd!", "not-a-bcrypt-hash"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch for malformed hash, got %v", err)
	}
}
