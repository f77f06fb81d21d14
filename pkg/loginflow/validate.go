package loginflow

import (
	"regexp"
	"strings"
)

// Validation messages shown next to the offending input. Validators return
// the message, an empty string means the value passed.
const (
	msgIdentifierRequired = "Please enter your email or mobile number"
	msgIdentifierInvalid  = "Please enter a valid email or mobile number"
	msgMobileInvalid      = "Please enter a valid 10 digit mobile number"
	msgPasswordRequired   = "Please enter your password"
	msgPasswordWeak       = "Password must be 6-14 characters with at least one lowercase letter, one number and one special character"
	msgNameRequired       = "Please enter your full name"
	msgOtpInvalid         = "Please enter the 6 digit OTP"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	otpPattern    = regexp.MustCompile(`^[0-9]{6}$`)
)

const passwordSymbols = `!@#$%^&*()-_=+[]{};:'",.<>/?\|~` + "`"

// ValidateIdentifier accepts either an email address or an Indian mobile
// number.
func ValidateIdentifier(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return msgIdentifierRequired
	}
	if emailPattern.MatchString(v) || mobilePattern.MatchString(v) {
		return ""
	}
	return msgIdentifierInvalid
}

// ValidateMobile checks a standalone mobile field: exactly 10 digits starting
// with 6 through 9. An empty value passes, the field is optional during
// registration.
func ValidateMobile(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	if mobilePattern.MatchString(v) {
		return ""
	}
	return msgMobileInvalid
}

// ValidatePassword enforces the registration complexity rule: 6 to 14
// characters with at least one lowercase letter, one digit and one symbol
// from the allowed set.
func ValidatePassword(value string) string {
	if value == "" {
		return msgPasswordRequired
	}
	if len(value) < 6 || len(value) > 14 {
		return msgPasswordWeak
	}
	var hasLower, hasDigit, hasSymbol bool
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}
	if !hasLower || !hasDigit || !hasSymbol {
		return msgPasswordWeak
	}
	return ""
}

// ValidateLoginPassword only requires presence, complexity is not re-checked
// against existing accounts.
func ValidateLoginPassword(value string) string {
	if value == "" {
		return msgPasswordRequired
	}
	return ""
}

// ValidateName requires at least two characters after trimming.
func ValidateName(value string) string {
	if len(strings.TrimSpace(value)) < 2 {
		return msgNameRequired
	}
	return ""
}

// ValidateOtp requires exactly six numeric digits.
func ValidateOtp(value string) string {
	if otpPattern.MatchString(value) {
		return ""
	}
	return msgOtpInvalid
}

// IsEmail reports whether the identifier looks like an email address rather
// than a mobile number.
func IsEmail(value string) bool {
	return emailPattern.MatchString(strings.TrimSpace(value))
}
