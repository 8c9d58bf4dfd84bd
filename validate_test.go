package authsync

import (
	"errors"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"alice@example.com",
		"a.b+tag@sub.example.co",
		"x@y.io",
	}
	for _, email := range valid {
		if err := ValidateEmail(email); err != nil {
			t.Errorf("ValidateEmail(%q) = %v, want nil", email, err)
		}
	}

	invalid := []string{
		"",
		"   ",
		"plainaddress",
		"@example.com",
		"alice@",
		"alice@example",
		"alice @example.com",
		"alice@exa mple.com",
		"alice@@example.com",
	}
	for _, email := range invalid {
		if err := ValidateEmail(email); !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("ValidateEmail(%q) = %v, want ErrInvalidEmail", email, err)
		}
	}
}

func TestValidateEmailTrimsWhitespace(t *testing.T) {
	if err := ValidateEmail("  alice@example.com  "); err != nil {
		t.Fatalf("surrounding whitespace should be tolerated, got %v", err)
	}
}

func TestValidatePassword(t *testing.T) {
	valid := []string{
		"Str0ng!pass",
		"Aa1!aaaa",
		`Tr0ub4dor&3`,
		"P@ssw0rd with spaces",
	}
	for _, pw := range valid {
		if err := ValidatePassword(pw); err != nil {
			t.Errorf("ValidatePassword(%q) = %v, want nil", pw, err)
		}
	}

	invalid := map[string]string{
		"short1!A":       "", // 8 chars is the floor, this one passes; see below
		"Sh0r!t":         "too short",
		"alllowercase1!": "no uppercase",
		"ALLUPPERCASE1!": "no lowercase",
		"NoDigits!!":     "no digit",
		"NoSymbol123":    "no symbol",
		"":               "empty",
	}
	for pw, reason := range invalid {
		if reason == "" {
			if err := ValidatePassword(pw); err != nil {
				t.Errorf("ValidatePassword(%q) = %v, want nil (exactly at floor)", pw, err)
			}
			continue
		}
		if err := ValidatePassword(pw); !errors.Is(err, ErrWeakPassword) {
			t.Errorf("ValidatePassword(%q) = %v, want ErrWeakPassword (%s)", pw, err, reason)
		}
	}
}

func TestValidatePasswordCustomMinLength(t *testing.T) {
	if err := validatePassword("Aa1!aaaaaaa", 12); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("11 chars against a 12 floor should fail, got %v", err)
	}
	if err := validatePassword("Aa1!aaaaaaaa", 12); err != nil {
		t.Fatalf("12 chars against a 12 floor should pass, got %v", err)
	}
}

func TestIsValidationError(t *testing.T) {
	if !IsValidationError(ErrInvalidEmail) || !IsValidationError(ErrWeakPassword) {
		t.Fatal("validation sentinels must classify as validation errors")
	}
	if IsValidationError(ErrInvalidCredentials) {
		t.Fatal("provider rejection is not a validation error")
	}
	if !IsAuthError(ErrInvalidCredentials) || IsAuthError(ErrInvalidEmail) {
		t.Fatal("IsAuthError misclassified")
	}
}
