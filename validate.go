package authsync

import (
	"regexp"
	"strings"
	"unicode"
)

// PasswordSymbols is the punctuation set that satisfies the symbol class of the
// password policy.
const PasswordSymbols = `!@#$%^&*()_+-=[]{};:'",.<>/?\|~`

// Conservative grammar: one non-space local part, an @, and a domain with at
// least one dot. Tighter than RFC 5322 on purpose; the provider has the final say.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail rejects candidate emails that would never be accepted by the
// identity provider. It is pure and synchronous: it runs to completion before
// any remote call so malformed input never generates network traffic or an
// audit entry.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the sign-up password policy with the default
// minimum length. Also pure and synchronous.
func ValidatePassword(password string) error {
	return validatePassword(password, defaultMinPasswordLength)
}

func validatePassword(password string, minLength int) error {
	if minLength <= 0 {
		minLength = defaultMinPasswordLength
	}
	if len(password) < minLength {
		return ErrWeakPassword
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}

	if !upper || !lower || !digit || !symbol {
		return ErrWeakPassword
	}
	return nil
}
