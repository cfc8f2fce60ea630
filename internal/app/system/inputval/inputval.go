// Package inputval holds the field rules applied to account and profile
// input before any storage or identity call is made. Each rule returns the
// message shown to the user.
package inputval

import (
	"net/mail"
	"strings"
	"unicode"

	"github.com/dalemusser/vlsiclub/internal/app/system/normalize"
)

// Messages returned by the validators.
const (
	MsgEmailRequired    = "Email is required."
	MsgEmailInvalid     = "Invalid email format. Please check your email."
	MsgPasswordRequired = "Password is required."
	MsgPasswordShort    = "Password must be at least 8 characters."
	MsgPasswordWeak     = "Password must contain at least one letter and one number."
	MsgNameInvalid      = "Name must be 1 to 100 characters and contain no control characters."
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// MaxNameLength is the longest accepted display name, in runes.
const MaxNameLength = 100

// IsValidEmail reports whether s is a bare address (no display name) with
// a well-formed local part and domain.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t<>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" || domain == "" {
		return false
	}
	return validDots(local) && validDots(domain)
}

func validDots(s string) bool {
	return !strings.HasPrefix(s, ".") && !strings.HasSuffix(s, ".") && !strings.Contains(s, "..")
}

// HasDomain reports whether email ends with "@"+domain, case-insensitively.
func HasDomain(email, domain string) bool {
	email = normalize.Email(email)
	domain = normalize.Domain(domain)
	if domain == "" {
		return true
	}
	return strings.HasSuffix(email, "@"+domain)
}

// DomainMessage is the message returned when an address is outside the
// institutional domain.
func DomainMessage(domain string) string {
	return "Please use your college email (@" + strings.TrimPrefix(domain, "@") + ")"
}

// Email checks presence and format. An empty return means valid.
func Email(s string) string {
	if strings.TrimSpace(s) == "" {
		return MsgEmailRequired
	}
	if !IsValidEmail(s) {
		return MsgEmailInvalid
	}
	return ""
}

// Password checks length and that both a letter and a digit are present.
func Password(s string) string {
	if s == "" {
		return MsgPasswordRequired
	}
	if len([]rune(s)) < MinPasswordLength {
		return MsgPasswordShort
	}
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return MsgPasswordWeak
	}
	return ""
}

// Name checks a display name. Leading and trailing space is ignored.
func Name(s string) string {
	s = strings.TrimSpace(s)
	n := len([]rune(s))
	if n == 0 || n > MaxNameLength {
		return MsgNameInvalid
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return MsgNameInvalid
		}
	}
	return ""
}
