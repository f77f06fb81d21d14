package loginflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"email", "user@example.com", true},
		{"email with subdomain", "user@mail.example.co.in", true},
		{"mobile", "9876543210", true},
		{"mobile starting with 6", "6123456789", true},
		{"empty", "", false},
		{"bare word", "user", false},
		{"email without tld", "user@example", false},
		{"mobile too short", "987654321", false},
		{"mobile starting with 5", "5876543210", false},
		{"mobile with letters", "98765x3210", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := ValidateIdentifier(tc.value)
			if tc.valid {
				assert.Empty(t, msg)
			} else {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

func TestValidateMobileOptional(t *testing.T) {
	assert.Empty(t, ValidateMobile(""))
	assert.Empty(t, ValidateMobile("9876543210"))
	assert.NotEmpty(t, ValidateMobile("12345"))
	assert.NotEmpty(t, ValidateMobile("1876543210"))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"missing symbol", "abc123", false},
		{"complete", "abc123!", true},
		{"too short", "a1!", false},
		{"too long", "abcdefg123456!!!", false},
		{"no lowercase", "ABC123!", false},
		{"no digit", "abcdef!", false},
		{"empty", "", false},
		{"symbols only from set", "pass9@word", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := ValidatePassword(tc.value)
			if tc.valid {
				assert.Empty(t, msg)
			} else {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	assert.NotEmpty(t, ValidateName(""))
	assert.NotEmpty(t, ValidateName(" a "))
	assert.Empty(t, ValidateName("Jo"))
	assert.Empty(t, ValidateName("  Asha  "))
}

func TestValidateOtp(t *testing.T) {
	assert.Empty(t, ValidateOtp("123456"))
	assert.NotEmpty(t, ValidateOtp("12345"))
	assert.NotEmpty(t, ValidateOtp("1234567"))
	assert.NotEmpty(t, ValidateOtp("12345a"))
	assert.NotEmpty(t, ValidateOtp(""))
}

func TestFieldEditClearsOnlyOwnError(t *testing.T) {
	st := NewState()
	st.IdentifierError = "bad identifier"
	st.PasswordError = "bad password"

	st.SetField(FieldPassword, "newpass1!")

	assert.Empty(t, st.PasswordError)
	assert.Equal(t, "bad identifier", st.IdentifierError)
}

func TestOtpDigitEditClearsOtpError(t *testing.T) {
	st := NewState()
	st.OtpError = "wrong code"
	st.NameError = "bad name"

	st.SetOtpDigit(2, "7")

	assert.Empty(t, st.OtpError)
	assert.Equal(t, "bad name", st.NameError)
	assert.Equal(t, "7", st.Otp[2])

	st.SetOtpDigit(9, "1")
	assert.Equal(t, [OtpLength]string{"", "", "7", "", "", ""}, st.Otp)
}
