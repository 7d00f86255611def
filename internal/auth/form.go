package auth

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"
)

// DefaultSignUpRevertDelay is how long the form stays in sign-up mode after
// a successful registration before flipping back to sign-in.
const DefaultSignUpRevertDelay = 5 * time.Second

// User-facing texts for the credential form.
const (
	NoAccountText     = "No account found. Please sign up first."
	SignUpSuccessText = "Account created! Check your inbox (or spam) to verify your email."
)

// Form validation errors.
var (
	ErrEmailRequired    = errors.New("Email is required")
	ErrPasswordRequired = errors.New("Password is required")
	ErrInvalidEmail     = errors.New("Please enter a valid email address")
)

// Mode is the credential form's mode.
type Mode int

const (
	ModeSignIn Mode = iota
	ModeSignUp
)

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModeSignIn {
		return ModeSignUp
	}
	return ModeSignIn
}

// ValidateCredentials checks the form fields before submission. Password
// strength is never checked here.
func ValidateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	if password == "" {
		return ErrPasswordRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// Strength is a password strength hint.
type Strength int

const (
	StrengthWeak Strength = iota
	StrengthFair
	StrengthStrong
)

func (s Strength) String() string {
	switch s {
	case StrengthStrong:
		return "strong"
	case StrengthFair:
		return "fair"
	default:
		return "weak"
	}
}

// PasswordStrength scores a password by length and character variety. It is
// a hint only; sign-up is never blocked on it.
func PasswordStrength(password string) Strength {
	var lower, upper, digit, other bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			other = true
		}
	}
	classes := 0
	for _, ok := range []bool{lower, upper, digit, other} {
		if ok {
			classes++
		}
	}

	n := len([]rune(password))
	switch {
	case n >= 12 && classes >= 3:
		return StrengthStrong
	case n >= 8 && classes >= 2:
		return StrengthFair
	default:
		return StrengthWeak
	}
}

// SignInFailure maps a sign-in error to the inline text and whether it also
// warrants a toast. Invalid credentials get dedicated wording.
func SignInFailure(err error) (text string, toast bool) {
	if errors.Is(err, ErrInvalidCredentials) {
		return NoAccountText, true
	}
	return err.Error(), false
}
