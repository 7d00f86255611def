package auth

import (
	"errors"
	"testing"
)

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		email, password string
		want            error
	}{
		{"ada@example.com", "pw", nil},
		{"", "pw", ErrEmailRequired},
		{"   ", "pw", ErrEmailRequired},
		{"ada@example.com", "", ErrPasswordRequired},
		{"not-an-email", "pw", ErrInvalidEmail},
		{"Ada <ada@example.com>", "pw", ErrInvalidEmail},
	}
	for _, tt := range tests {
		if got := ValidateCredentials(tt.email, tt.password); !errors.Is(got, tt.want) {
			t.Errorf("ValidateCredentials(%q, %q) = %v, want %v", tt.email, tt.password, got, tt.want)
		}
	}
}

func TestPasswordStrength(t *testing.T) {
	tests := map[string]Strength{
		"abc":              StrengthWeak,
		"abcdefgh":         StrengthWeak,
		"abcdefg1":         StrengthFair,
		"Abcdefgh1234!":    StrengthStrong,
		"correct horse 42": StrengthStrong,
	}
	for pw, want := range tests {
		if got := PasswordStrength(pw); got != want {
			t.Errorf("PasswordStrength(%q) = %v, want %v", pw, got, want)
		}
	}
}

func TestModeToggle(t *testing.T) {
	if ModeSignIn.Toggle() != ModeSignUp || ModeSignUp.Toggle() != ModeSignIn {
		t.Error("Toggle should flip between sign-in and sign-up")
	}
}

func TestSignInFailureOtherErrors(t *testing.T) {
	text, toast := SignInFailure(&Error{Status: 401, Code: "unverified-user", Message: "Email needs verification"})
	if text != "Email needs verification" || toast {
		t.Errorf("SignInFailure = %q, %v", text, toast)
	}
}
