package loginflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnpath/cert-portal/pkg/checkout"
	"github.com/learnpath/cert-portal/pkg/config"
	"github.com/learnpath/cert-portal/pkg/notification"
	"github.com/learnpath/cert-portal/pkg/sessionbridge"
	"github.com/learnpath/cert-portal/pkg/sessionstore"
	"github.com/learnpath/cert-portal/pkg/ssoprovider"
	"github.com/learnpath/cert-portal/pkg/ssosession"
)

type flowFixture struct {
	svc      *Service
	session  *ssosession.Service
	provider *ssoprovider.DevProvider
	visitor  *ssosession.Visitor
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()
	nm, err := notification.NewNotificationManagerWithOptions(notification.WithDefaultTemplates())
	require.NoError(t, err)
	nm.RegisterNotifier(notification.EmailSystem, &notification.MockNotifier{})
	nm.RegisterNotifier(notification.SMSSystem, &notification.MockNotifier{})

	provider := ssoprovider.NewDevProvider(nm)
	bridge := sessionbridge.NewBridge(sessionbridge.NewInMemRepository())

	// entitlement stub so a completed login can refresh permissions
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200,
			"data": map[string]interface{}{
				"ssoId": r.Header.Get("x-sso-id"),
				"productDetails": []map[string]interface{}{
					{"productCode": "ETPR", "permissions": []string{}},
				},
			},
		})
	}))
	t.Cleanup(srv.Close)

	ssoCfg := config.DefaultSSOConfig()
	ssoCfg.AuthHost = srv.URL

	session := ssosession.NewService(provider, bridge,
		config.DefaultChannelConfig(), ssoCfg, config.DefaultMerchantPolicy())

	cfg := config.DefaultFlowConfig()
	svc := NewService(provider, session, cfg)

	return &flowFixture{
		svc:      svc,
		session:  session,
		provider: provider,
		visitor: &ssosession.Visitor{
			SID:   "sid-flow",
			Store: sessionstore.New(),
			Jar:   sessionbridge.NewMemJar(),
		},
	}
}

func (f *flowFixture) state() *State {
	return StateFor(f.visitor.Store)
}

func TestSubmitIdentifierRoutesNewUserToRegistration(t *testing.T) {
	f := newFlowFixture(t)
	f.svc.Open(f.visitor, nil)
	f.state().SetField(FieldIdentifier, "new@example.com")

	f.svc.SubmitIdentifier(context.Background(), f.visitor)

	st := f.state()
	assert.Equal(t, ScreenSetPassword, st.CurrentScreen())
	assert.Equal(t, ssoprovider.StatusUnregistered, st.UserStatus)
	assert.False(t, st.IsCheckingUser)
}

func TestSubmitIdentifierRoutesVerifiedUserToPasswordLogin(t *testing.T) {
	f := newFlowFixture(t)
	require.NoError(t, f.provider.SeedUser("known@example.com", "Known", "secret1!"))
	f.svc.Open(f.visitor, nil)
	f.state().SetField(FieldIdentifier, "known@example.com")

	f.svc.SubmitIdentifier(context.Background(), f.visitor)

	st := f.state()
	assert.Equal(t, ScreenPasswordLogin, st.CurrentScreen())
	assert.Equal(t, ssoprovider.StatusVerified, st.UserStatus)
}

func TestSubmitIdentifierRejectsMalformedInput(t *testing.T) {
	f := newFlowFixture(t)
	f.svc.Open(f.visitor, nil)
	f.state().SetField(FieldIdentifier, "not-an-identifier")

	f.svc.SubmitIdentifier(context.Background(), f.visitor)

	st := f.state()
	assert.Equal(t, ScreenLoginInput, st.CurrentScreen())
	assert.NotEmpty(t, st.IdentifierError)
}

func TestRegistrationAndSignupOtpVerification(t *testing.T) {
	f := newFlowFixture(t)
	f.svc.Open(f.visitor, nil)
	st := f.state()
	st.SetField(FieldIdentifier, "fresh@example.com")
	f.svc.SubmitIdentifier(context.Background(), f.visitor)
	require.Equal(t, ScreenSetPassword, st.CurrentScreen())

	st.SetField(FieldName, "Fresh User")
	st.SetField(FieldPassword, "secret1!")
	f.svc.SubmitRegistration(context.Background(), f.visitor)

	require.Equal(t, ScreenOtpLogin, st.CurrentScreen())
	assert.Equal(t, OtpContextSignup, st.OtpCtx)
	require.NotNil(t, st.RegistrationResponse)
	assert.True(t, st.RegistrationResponse.OtpSent)

	code, err := f.provider.CurrentPasscode("fresh@example.com")
	require.NoError(t, err)
	for i, d := range code {
		st.SetOtpDigit(i, string(d))
	}
	f.svc.VerifyOtp(context.Background(), f.visitor)

	assert.Equal(t, ScreenSuccess, st.CurrentScreen())
	assert.True(t, f.visitor.Store.IsLogin())
	assert.Equal(t, OtpContextNone, st.OtpCtx)
}

// opaqueDetailClient yields bare signup verifications and refuses detail
// fetches, forcing the identity fallback.
type opaqueDetailClient struct {
	ssoprovider.Client
}

func (c opaqueDetailClient) VerifySignUpOtp(ctx context.Context, identifier, otp string) (*ssoprovider.LoginResult, error) {
	res, err := c.Client.VerifySignUpOtp(ctx, identifier, otp)
	if err != nil {
		return nil, err
	}
	return &ssoprovider.LoginResult{TicketID: res.TicketID, EncTicket: res.EncTicket}, nil
}

func (c opaqueDetailClient) GetUserDetails(ctx context.Context, ticketID string) (*ssoprovider.UserDetail, error) {
	return nil, fmt.Errorf("details endpoint unavailable")
}

func TestSignupIdentityFallsBackToRegistration(t *testing.T) {
	f := newFlowFixture(t)
	svc := NewService(opaqueDetailClient{f.provider}, f.session, config.DefaultFlowConfig())

	svc.Open(f.visitor, nil)
	st := f.state()
	st.SetField(FieldIdentifier, "fresh@example.com")
	svc.SubmitIdentifier(context.Background(), f.visitor)
	st.SetField(FieldName, "Fresh User")
	st.SetField(FieldPassword, "secret1!")
	svc.SubmitRegistration(context.Background(), f.visitor)
	require.Equal(t, ScreenOtpLogin, st.CurrentScreen())
	reg := st.RegistrationResponse
	require.NotNil(t, reg)

	code, err := f.provider.CurrentPasscode("fresh@example.com")
	require.NoError(t, err)
	for i, d := range code {
		st.SetOtpDigit(i, string(d))
	}
	svc.VerifyOtp(context.Background(), f.visitor)

	require.Equal(t, ScreenSuccess, st.CurrentScreen())
	info, ok := f.visitor.Store.UserInfo()
	require.True(t, ok)
	assert.Equal(t, reg.SSOID, info.SSOID,
		"registration acknowledgement stands in when the detail fetch fails")
	assert.Equal(t, "fresh@example.com", info.LoginID)
}

func TestRegistrationValidatesAllFields(t *testing.T) {
	f := newFlowFixture(t)
	f.svc.Open(f.visitor, nil)
	st := f.state()
	st.SetField(FieldIdentifier, "fresh@example.com")
	st.SetField(FieldName, "X")
	st.SetField(FieldPassword, "abc123")
	st.SetField(FieldMobile, "12345")

	f.svc.SubmitRegistration(context.Background(), f.visitor)

	assert.NotEmpty(t, st.NameError)
	assert.NotEmpty(t, st.PasswordError)
	assert.NotEmpty(t, st.MobileError)
	assert.Equal(t, ScreenLoginInput, st.CurrentScreen())
}

func TestPasswordLoginWrongPasswordStaysPut(t *testing.T) {
	f := newFlowFixture(t)
	require.NoError(t, f.provider.SeedUser("known@example.com", "Known", "secret1!"))
	f.svc.Open(f.visitor, nil)
	st := f.state()
	st.SetField(FieldIdentifier, "known@example.com")
	f.svc.SubmitIdentifier(context.Background(), f.visitor)

	st.SetField(FieldPassword, "wrong-pass")
	f.svc.SubmitPasswordLogin(context.Background(), f.visitor)

	assert.Equal(t, ScreenPasswordLogin, st.CurrentScreen())
	assert.NotEmpty(t, st.PasswordError)
	assert.False(t, f.visitor.Store.IsLogin())
}

func TestPasswordLoginLandsOnSuccessWithoutPlans(t *testing.T) {
	f := newFlowFixture(t)
	require.NoError(t, f.provider.SeedUser("known@example.com", "Known", "secret1!"))
	f.svc.Open(f.visitor, nil)
	st := f.state()
	st.SetField(FieldIdentifier, "known@example.com")
	f.svc.SubmitIdentifier(context.Background(), f.visitor)

	st.SetField(FieldPassword, "secret1!")
	f.svc.SubmitPasswordLogin(context.Background(), f.visitor)

	assert.Equal(t, ScreenSuccess, st.CurrentScreen())
	assert.True(t, f.visitor.Store.IsLogin())
	assert.Empty(t, st.Password, "password must not linger after login")
	assert.NotEmpty(t, f.visitor.Jar.Get(config.CookieTicketID))
}

func TestPasswordLoginLandsOnPlanSelectionWithPlans(t *testing.T) {
	f := newFlowFixture(t)
	require.NoError(t, f.provider.SeedUser("known@example.com", "Known", "secret1!"))
	plans := []checkout.PaymentPlan{{PlanCode: "YEARLY", FinalPlanPrice: 2499}}
	f.svc.Open(f.visitor, plans)
	st := f.state()
	st.SetField(FieldIdentifier, "known@example.com")
	f.svc.SubmitIdentifier(context.Background(), f.visitor)

	st.SetField(FieldPassword, "secret1!")
	f.svc.SubmitPasswordLogin(context.Background(), f.visitor)

	assert.Equal(t, ScreenPlanSelection, st.CurrentScreen())
	assert.True(t, f.visitor.Store.IsLogin())
}

func TestPlansPopulateOnce(t *testing.T) {
	f := newFlowFixture(t)
	first := []checkout.PaymentPlan{{PlanCode: "YEARLY", FinalPlanPrice: 2499}}
	f.svc.Open(f.visitor, first)
	f.svc.Open(f.visitor, []checkout.PaymentPlan{{PlanCode: "MONTHLY", FinalPlanPrice: 299}})

	st := f.state()
	require.Len(t, st.AvailablePlans, 1)
	assert.Equal(t, "YEARLY", st.AvailablePlans[0].PlanCode)
}

func TestLoginOtpFlow(t *testing.T) {
	f := newFlowFixture(t)
	require.NoError(t, f.provider.SeedUser("known@example.com", "Known", "secret1!"))
	f.svc.Open(f.visitor, nil)
	st := f.state()
	st.SetField(FieldIdentifier, "known@example.com")
	f.svc.SubmitIdentifier(context.Background(), f.visitor)

	f.svc.RequestLoginOtp(context.Background(), f.visitor)
	require.Equal(t, ScreenOtpLogin, st.CurrentScreen())
	assert.Equal(t, OtpContextLogin, st.OtpCtx)

	for i := 0; i < OtpLength; i++ {
		st.SetOtpDigit(i, "0")
	}
	f.svc.VerifyOtp(context.Background(), f.visitor)
	assert.Equal(t, ScreenOtpLogin, st.CurrentScreen())
	assert.NotEmpty(t, st.OtpError)
	assert.False(t, f.visitor.Store.IsLogin())

	code, err := f.provider.CurrentPasscode("known@example.com")
	require.NoError(t, err)
	for i, d := range code {
		st.SetOtpDigit(i, string(d))
	}
	f.svc.VerifyOtp(context.Background(), f.visitor)
	assert.Equal(t, ScreenSuccess, st.CurrentScreen())
	assert.True(t, f.visitor.Store.IsLogin())
}

func TestPasswordResetRoundTrip(t *testing.T) {
	f := newFlowFixture(t)
	require.NoError(t, f.provider.SeedUser("known@example.com", "Known", "secret1!"))
	f.svc.Open(f.visitor, nil)
	st := f.state()
	st.SetField(FieldIdentifier, "known@example.com")
	f.svc.SubmitIdentifier(context.Background(), f.visitor)

	f.svc.RequestPasswordReset(context.Background(), f.visitor)
	require.Equal(t, ScreenForgotPasswordReset, st.CurrentScreen())
	assert.Equal(t, OtpContextReset, st.OtpCtx)
	assert.Empty(t, st.Password)

	code, err := f.provider.CurrentPasscode("known@example.com")
	require.NoError(t, err)
	for i, d := range code {
		st.SetOtpDigit(i, string(d))
	}
	st.SetField(FieldPassword, "fresh2@pass")
	f.svc.SubmitPasswordReset(context.Background(), f.visitor)

	assert.Equal(t, ScreenPasswordLogin, st.CurrentScreen())
	assert.Empty(t, st.Password, "password field clears after reset")

	_, err = f.provider.LoginWithPassword(context.Background(), "known@example.com", "secret1!")
	assert.Error(t, err, "old password must stop working")
	_, err = f.provider.LoginWithPassword(context.Background(), "known@example.com", "fresh2@pass")
	assert.NoError(t, err)
}

func TestCloseDiscardsFlowStateOnly(t *testing.T) {
	f := newFlowFixture(t)
	require.NoError(t, f.provider.SeedUser("known@example.com", "Known", "secret1!"))
	f.svc.Open(f.visitor, nil)
	st := f.state()
	st.SetField(FieldIdentifier, "known@example.com")
	f.svc.SubmitIdentifier(context.Background(), f.visitor)
	st.SetField(FieldPassword, "secret1!")
	f.svc.SubmitPasswordLogin(context.Background(), f.visitor)
	require.True(t, f.visitor.Store.IsLogin())

	f.svc.Close(f.visitor)

	assert.True(t, f.visitor.Store.IsLogin(), "closing the dialog is not a logout")
	fresh := StateFor(f.visitor.Store)
	assert.Equal(t, ScreenLoginInput, fresh.CurrentScreen())
	assert.Empty(t, fresh.Identifier)
}
