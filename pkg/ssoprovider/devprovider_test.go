package ssoprovider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnpath/cert-portal/pkg/errors"
	"github.com/learnpath/cert-portal/pkg/notification"
)

func newDevProvider(t *testing.T) (*DevProvider, *notification.MockNotifier) {
	t.Helper()
	mock := &notification.MockNotifier{}
	nm, err := notification.NewNotificationManagerWithOptions(notification.WithDefaultTemplates())
	require.NoError(t, err)
	nm.RegisterNotifier(notification.EmailSystem, mock)
	nm.RegisterNotifier(notification.SMSSystem, mock)
	return NewDevProvider(nm), mock
}

func TestCheckUserExistsClassification(t *testing.T) {
	ctx := context.Background()
	p, _ := newDevProvider(t)
	require.NoError(t, p.SeedUser("known@example.com", "Known", "pass123!"))

	status, err := p.CheckUserExists(ctx, "known@example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, status)

	status, err = p.CheckUserExists(ctx, "stranger@example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusUnregistered, status)

	_, err = p.RegisterUser(ctx, RegisterRequest{Identifier: "new@example.com", Name: "New", Password: "pass123!"})
	require.NoError(t, err)
	status, err = p.CheckUserExists(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusUnverified, status)
}

func TestPasswordLogin(t *testing.T) {
	ctx := context.Background()
	p, _ := newDevProvider(t)
	require.NoError(t, p.SeedUser("user@example.com", "User", "secret1!"))

	result, err := p.LoginWithPassword(ctx, "user@example.com", "secret1!")
	require.NoError(t, err)
	assert.NotEmpty(t, result.TicketID)
	assert.NotEmpty(t, result.SSOID)

	detail, err := p.GetValidLoggedInUser(ctx, result.TicketID)
	require.NoError(t, err)
	assert.Equal(t, result.SSOID, detail.SSOID)
	assert.Equal(t, "Verified", detail.EmailList["user@example.com"])

	_, err = p.LoginWithPassword(ctx, "user@example.com", "wrong")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidCredentials))
}

func TestSignupOtpRoundTrip(t *testing.T) {
	ctx := context.Background()
	p, mock := newDevProvider(t)

	reg, err := p.RegisterUser(ctx, RegisterRequest{Identifier: "new@example.com", Name: "New", Password: "pass123!"})
	require.NoError(t, err)
	assert.True(t, reg.OtpSent)
	require.Len(t, mock.Deliveries, 1)
	delivered := mock.Deliveries[0].Data.Data["Passcode"]
	require.Len(t, delivered, 6)

	// wrong passcode carries the provider's numeric business code
	_, err = p.VerifySignUpOtp(ctx, "new@example.com", "000000")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeOtpIncorrect))
	var svcErr *errors.Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, errors.OtpIncorrectCode, svcErr.Details["code"])

	result, err := p.VerifySignUpOtp(ctx, "new@example.com", delivered)
	require.NoError(t, err)
	assert.NotEmpty(t, result.TicketID)

	// verification flips the account to verified
	status, err := p.CheckUserExists(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, status)
}

func TestLoginOtpDeliveredOverSms(t *testing.T) {
	ctx := context.Background()
	p, mock := newDevProvider(t)
	require.NoError(t, p.SeedUser("9876543210", "Mobile User", "secret1!"))

	require.NoError(t, p.GetLoginOtp(ctx, "9876543210"))
	require.Len(t, mock.Deliveries, 1)

	code, err := p.CurrentPasscode("9876543210")
	require.NoError(t, err)
	result, err := p.VerifyLoginOtp(ctx, "9876543210", code)
	require.NoError(t, err)
	assert.NotEmpty(t, result.User.MobileList["9876543210"])
}

func TestForgotPasswordReset(t *testing.T) {
	ctx := context.Background()
	p, _ := newDevProvider(t)
	require.NoError(t, p.SeedUser("user@example.com", "User", "oldpass1!"))

	require.NoError(t, p.GetForgotPasswordOtp(ctx, "user@example.com"))
	code, err := p.CurrentPasscode("user@example.com")
	require.NoError(t, err)

	token, err := p.VerifyForgotPasswordOtp(ctx, "user@example.com", code)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// reset token is single use and bound to the identifier
	require.NoError(t, p.ResetPassword(ctx, "user@example.com", token, "newpass1!"))
	err = p.ResetPassword(ctx, "user@example.com", token, "again1!")
	assert.Error(t, err)

	_, err = p.LoginWithPassword(ctx, "user@example.com", "oldpass1!")
	assert.Error(t, err)
	_, err = p.LoginWithPassword(ctx, "user@example.com", "newpass1!")
	assert.NoError(t, err)
}

func TestSignOutInvalidatesTicket(t *testing.T) {
	ctx := context.Background()
	p, _ := newDevProvider(t)
	require.NoError(t, p.SeedUser("user@example.com", "User", "secret1!"))

	result, err := p.LoginWithPassword(ctx, "user@example.com", "secret1!")
	require.NoError(t, err)

	require.NoError(t, p.SignOutUser(ctx, result.TicketID))
	_, err = p.GetValidLoggedInUser(ctx, result.TicketID)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTicketInvalid))
}
