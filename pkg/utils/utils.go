package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strings"
)

const randomCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateRandomString returns a cryptographically random string of the given length.
func GenerateRandomString(length int) string {
	var sb strings.Builder
	for i := 0; i < length; i++ {
		sb.WriteByte(randomCharset[RandomInt(len(randomCharset))])
	}
	return sb.String()
}

// RandomInt returns a cryptographically random int in [0, max).
func RandomInt(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		// crypto/rand failing means the platform entropy source is broken;
		// nothing sensible to fall back to.
		panic(err)
	}
	return int(n.Int64())
}

// MaskEmail masks the local part of an email for display, e.g. "jo***@example.com".
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return email
	}
	local := email[:at]
	if len(local) <= 2 {
		return local[:1] + "***" + email[at:]
	}
	return local[:2] + "***" + email[at:]
}

// MaskMobile masks all but the last three digits of a mobile number.
func MaskMobile(mobile string) string {
	if len(mobile) <= 3 {
		return mobile
	}
	return strings.Repeat("*", len(mobile)-3) + mobile[len(mobile)-3:]
}

// HashIdentifier returns a hex-encoded SHA-256 of an email or mobile identifier,
// used when a contact value must be referenced without exposing it.
func HashIdentifier(identifier string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(identifier))))
	return hex.EncodeToString(sum[:])
}

// IsAllDigits reports whether s is non-empty and contains only ASCII digits.
func IsAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
