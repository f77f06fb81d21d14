package ssoprovider

import (
	"context"
)

// UserStatus classifies an identifier's account standing, returned by the
// existence check and used to route the login flow.
type UserStatus string

const (
	StatusUnknown      UserStatus = "unknown"
	StatusUnregistered UserStatus = "unregistered"
	StatusUnverified   UserStatus = "unverified"
	StatusVerified     UserStatus = "verified"
)

// UserDetail is the provider's view of a logged-in user. EmailList and
// MobileList map identifiers to their verification state ("Verified" or
// "Unverified").
type UserDetail struct {
	SSOID        string            `json:"ssoid"`
	PrimaryEmail string            `json:"primaryEmail,omitempty"`
	EmailID      string            `json:"emailId,omitempty"`
	FirstName    string            `json:"firstName,omitempty"`
	LastName     string            `json:"lastName,omitempty"`
	LoginID      string            `json:"loginId,omitempty"`
	TicketID     string            `json:"ticketId,omitempty"`
	EmailList    map[string]string `json:"emailList,omitempty"`
	MobileList   map[string]string `json:"mobileList,omitempty"`
}

// LoginResult is what a successful credential or OTP verification yields.
type LoginResult struct {
	TicketID  string     `json:"ticketId"`
	EncTicket string     `json:"encTicket,omitempty"`
	SSOID     string     `json:"ssoid"`
	User      UserDetail `json:"user"`
}

// RegisterRequest carries the fields collected on the set-password screen.
type RegisterRequest struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Password   string `json:"password"`
	Mobile     string `json:"mobile,omitempty"`
}

// RegisterResult is the provider acknowledgement of a registration. The
// account stays unverified until the signup OTP is confirmed.
type RegisterResult struct {
	SSOID      string `json:"ssoid"`
	Identifier string `json:"identifier"`
	OtpSent    bool   `json:"otpSent"`
}

// Client is the SSO provider surface the rest of the service talks to.
// Implementations must return structured errors, never panic; an unavailable
// provider is a recoverable condition that callers degrade to not-logged-in.
type Client interface {
	// Ready reports whether the provider answered its readiness probe.
	Ready(ctx context.Context) error

	// GetValidLoggedInUser validates a session ticket and returns the
	// identity bound to it.
	GetValidLoggedInUser(ctx context.Context, ticketID string) (*UserDetail, error)

	// GetUserDetails returns the full detail record including contact
	// verification lists.
	GetUserDetails(ctx context.Context, ticketID string) (*UserDetail, error)

	// CheckUserExists classifies an email/mobile identifier.
	CheckUserExists(ctx context.Context, identifier string) (UserStatus, error)

	// RegisterUser creates an unverified account and triggers the signup OTP.
	RegisterUser(ctx context.Context, req RegisterRequest) (*RegisterResult, error)

	// LoginWithPassword performs a credential login.
	LoginWithPassword(ctx context.Context, identifier, password string) (*LoginResult, error)

	GetLoginOtp(ctx context.Context, identifier string) error
	GetSignUpOtp(ctx context.Context, identifier string) error
	GetForgotPasswordOtp(ctx context.Context, identifier string) error

	VerifyLoginOtp(ctx context.Context, identifier, otp string) (*LoginResult, error)
	VerifySignUpOtp(ctx context.Context, identifier, otp string) (*LoginResult, error)

	// VerifyForgotPasswordOtp returns a one-time reset token on success.
	VerifyForgotPasswordOtp(ctx context.Context, identifier, otp string) (string, error)

	// ResetPassword consumes a reset token and sets the new password.
	ResetPassword(ctx context.Context, identifier, resetToken, newPassword string) error

	// SignOutUser invalidates the ticket on the provider side.
	SignOutUser(ctx context.Context, ticketID string) error
}
