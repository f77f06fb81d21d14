package loginflow

import (
	"context"
	"log/slog"

	"github.com/learnpath/cert-portal/pkg/checkout"
	"github.com/learnpath/cert-portal/pkg/config"
	"github.com/learnpath/cert-portal/pkg/errors"
	"github.com/learnpath/cert-portal/pkg/ssoprovider"
	"github.com/learnpath/cert-portal/pkg/ssosession"
)

// Banner messages surfaced on provider failures. Field validation messages
// live in validate.go.
const (
	msgCheckFailed     = "We could not verify this account right now, please try again"
	msgLoginFailed     = "Incorrect email/mobile or password"
	msgRegisterFailed  = "We could not create your account right now, please try again"
	msgOtpSendFailed   = "We could not send the OTP right now, please try again"
	msgOtpIncorrect    = "The OTP you entered is incorrect"
	msgOtpVerifyFailed = "We could not verify the OTP right now, please try again"
	msgResetFailed     = "We could not reset your password right now, please try again"
)

// Service drives the login dialog state machine. Each submit operation
// validates its inputs, talks to the SSO provider, and moves the visitor's
// flow state to the next screen. Provider failures land as messages on the
// state, never as panics or HTTP errors.
type Service struct {
	provider ssoprovider.Client
	session  *ssosession.Service
	cfg      config.FlowConfig
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithFlowLogger sets the logger.
func WithFlowLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates the login flow service.
func NewService(provider ssoprovider.Client, session *ssosession.Service, cfg config.FlowConfig, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		session:  session,
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open starts (or returns) the visitor's flow, seeding the plans to offer
// after authentication. Reopening an already live flow keeps its state. A
// fresh flow re-arms the plan resumption guard for the episode it begins.
func (s *Service) Open(v *ssosession.Visitor, plans []checkout.PaymentPlan) *State {
	if _, ok := v.Store.FlowState().(*State); !ok {
		v.Store.ArmResume()
	}
	st := StateFor(v.Store)
	st.SetPlans(plans)
	return st
}

// Close discards the flow state. Auth state and cookies are untouched, the
// dialog closing is not a logout.
func (s *Service) Close(v *ssosession.Visitor) {
	v.Store.SetFlowState(nil)
}

// SubmitIdentifier classifies the entered email or mobile and routes to the
// matching screen: registration for unknown or unverified accounts, password
// login for verified ones.
func (s *Service) SubmitIdentifier(ctx context.Context, v *ssosession.Visitor) {
	st := StateFor(v.Store)
	st.mu.Lock()
	if msg := ValidateIdentifier(st.Identifier); msg != "" {
		st.IdentifierError = msg
		st.mu.Unlock()
		return
	}
	if st.IsCheckingUser {
		st.mu.Unlock()
		return
	}
	st.IsCheckingUser = true
	identifier := st.Identifier
	st.mu.Unlock()

	status, err := s.provider.CheckUserExists(ctx, identifier)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.IsCheckingUser = false
	if err != nil {
		s.logger.Warn("user existence check failed", "err", err)
		st.IdentifierError = msgCheckFailed
		return
	}
	st.UserStatus = status
	switch status {
	case ssoprovider.StatusVerified:
		st.Screen = ScreenPasswordLogin
	default:
		st.Screen = ScreenSetPassword
	}
}

// SubmitRegistration creates the account from the set-password screen and
// moves to OTP verification. The signup OTP is sent by the provider as part
// of registration.
func (s *Service) SubmitRegistration(ctx context.Context, v *ssosession.Visitor) {
	st := StateFor(v.Store)
	st.mu.Lock()
	nameMsg := ValidateName(st.Name)
	passMsg := ValidatePassword(st.Password)
	mobileMsg := ValidateMobile(st.Mobile)
	st.NameError = nameMsg
	st.PasswordError = passMsg
	st.MobileError = mobileMsg
	if nameMsg != "" || passMsg != "" || mobileMsg != "" {
		st.mu.Unlock()
		return
	}
	if st.IsLoading {
		st.mu.Unlock()
		return
	}
	st.IsLoading = true
	req := ssoprovider.RegisterRequest{
		Identifier: st.Identifier,
		Name:       st.Name,
		Password:   st.Password,
		Mobile:     st.Mobile,
	}
	st.mu.Unlock()

	res, err := s.provider.RegisterUser(ctx, req)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.IsLoading = false
	if err != nil {
		s.logger.Warn("registration failed", "err", err)
		if errors.IsCode(err, errors.ErrCodeUserExists) {
			st.UserStatus = ssoprovider.StatusVerified
			st.Screen = ScreenPasswordLogin
			return
		}
		st.PasswordError = msgRegisterFailed
		return
	}
	st.RegistrationResponse = res
	st.OtpCtx = OtpContextSignup
	st.Otp = [OtpLength]string{}
	st.OtpError = ""
	st.Screen = ScreenOtpLogin
}

// SubmitPasswordLogin performs a credential login and completes the flow on
// success.
func (s *Service) SubmitPasswordLogin(ctx context.Context, v *ssosession.Visitor) {
	st := StateFor(v.Store)
	st.mu.Lock()
	if msg := ValidateLoginPassword(st.Password); msg != "" {
		st.PasswordError = msg
		st.mu.Unlock()
		return
	}
	if st.IsLoading {
		st.mu.Unlock()
		return
	}
	st.IsLoading = true
	identifier, password := st.Identifier, st.Password
	st.mu.Unlock()

	result, err := s.provider.LoginWithPassword(ctx, identifier, password)

	st.mu.Lock()
	st.IsLoading = false
	if err != nil {
		s.logger.Info("password login rejected", "err", err)
		st.PasswordError = msgLoginFailed
		st.mu.Unlock()
		return
	}
	st.mu.Unlock()

	s.completeLogin(ctx, v, st, result)
}

// RequestLoginOtp switches a verified account from password entry to OTP
// login, sending the code to the identifier.
func (s *Service) RequestLoginOtp(ctx context.Context, v *ssosession.Visitor) {
	st := StateFor(v.Store)
	st.mu.Lock()
	if st.IsSendingOtp {
		st.mu.Unlock()
		return
	}
	st.IsSendingOtp = true
	identifier := st.Identifier
	st.mu.Unlock()

	err := s.provider.GetLoginOtp(ctx, identifier)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.IsSendingOtp = false
	if err != nil {
		s.logger.Warn("login otp send failed", "err", err)
		st.PasswordError = msgOtpSendFailed
		return
	}
	st.OtpCtx = OtpContextLogin
	st.Otp = [OtpLength]string{}
	st.OtpError = ""
	st.Screen = ScreenOtpLogin
}

// RequestPasswordReset sends the forgot-password OTP and moves to the reset
// screen.
func (s *Service) RequestPasswordReset(ctx context.Context, v *ssosession.Visitor) {
	st := StateFor(v.Store)
	st.mu.Lock()
	if st.IsSendingOtp {
		st.mu.Unlock()
		return
	}
	st.IsSendingOtp = true
	identifier := st.Identifier
	st.mu.Unlock()

	err := s.provider.GetForgotPasswordOtp(ctx, identifier)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.IsSendingOtp = false
	if err != nil {
		s.logger.Warn("password reset otp send failed", "err", err)
		st.PasswordError = msgOtpSendFailed
		return
	}
	st.OtpCtx = OtpContextReset
	st.Otp = [OtpLength]string{}
	st.OtpError = ""
	st.Password = ""
	st.PasswordError = ""
	st.Screen = ScreenForgotPasswordReset
}

// ResendOtp re-sends the code for whichever flow requested it.
func (s *Service) ResendOtp(ctx context.Context, v *ssosession.Visitor) {
	st := StateFor(v.Store)
	st.mu.Lock()
	if st.IsResendingOtp {
		st.mu.Unlock()
		return
	}
	st.IsResendingOtp = true
	identifier := st.Identifier
	otpCtx := st.OtpCtx
	st.mu.Unlock()

	var err error
	switch otpCtx {
	case OtpContextSignup:
		err = s.provider.GetSignUpOtp(ctx, identifier)
	case OtpContextReset:
		err = s.provider.GetForgotPasswordOtp(ctx, identifier)
	default:
		err = s.provider.GetLoginOtp(ctx, identifier)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.IsResendingOtp = false
	if err != nil {
		s.logger.Warn("otp resend failed", "context", string(otpCtx), "err", err)
		st.OtpError = msgOtpSendFailed
		return
	}
	st.Otp = [OtpLength]string{}
	st.OtpError = ""
}

// VerifyOtp checks the entered code against the flow that requested it. A
// signup code verifies the new account, a login code signs the visitor in.
// Reset codes are handled by SubmitPasswordReset.
func (s *Service) VerifyOtp(ctx context.Context, v *ssosession.Visitor) {
	st := StateFor(v.Store)
	code := st.OtpValue()
	st.mu.Lock()
	if msg := ValidateOtp(code); msg != "" {
		st.OtpError = msg
		st.mu.Unlock()
		return
	}
	if st.IsVerifyingOtp {
		st.mu.Unlock()
		return
	}
	st.IsVerifyingOtp = true
	identifier := st.Identifier
	otpCtx := st.OtpCtx
	st.mu.Unlock()

	var result *ssoprovider.LoginResult
	var err error
	if otpCtx == OtpContextSignup {
		result, err = s.provider.VerifySignUpOtp(ctx, identifier, code)
	} else {
		result, err = s.provider.VerifyLoginOtp(ctx, identifier, code)
	}

	st.mu.Lock()
	st.IsVerifyingOtp = false
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeOtpIncorrect) {
			st.OtpError = msgOtpIncorrect
		} else {
			s.logger.Warn("otp verification failed", "context", string(otpCtx), "err", err)
			st.OtpError = msgOtpVerifyFailed
		}
		st.mu.Unlock()
		return
	}
	st.mu.Unlock()

	s.completeLogin(ctx, v, st, result)
}

// SubmitPasswordReset verifies the reset OTP and sets the new password in
// one step, then returns to password login with the password field cleared.
func (s *Service) SubmitPasswordReset(ctx context.Context, v *ssosession.Visitor) {
	st := StateFor(v.Store)
	code := st.OtpValue()
	st.mu.Lock()
	otpMsg := ValidateOtp(code)
	passMsg := ValidatePassword(st.Password)
	st.OtpError = otpMsg
	st.PasswordError = passMsg
	if otpMsg != "" || passMsg != "" {
		st.mu.Unlock()
		return
	}
	if st.IsLoading {
		st.mu.Unlock()
		return
	}
	st.IsLoading = true
	identifier, password := st.Identifier, st.Password
	st.mu.Unlock()

	token, err := s.provider.VerifyForgotPasswordOtp(ctx, identifier, code)
	if err == nil {
		err = s.provider.ResetPassword(ctx, identifier, token, password)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.IsLoading = false
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeOtpIncorrect) {
			st.OtpError = msgOtpIncorrect
			return
		}
		s.logger.Warn("password reset failed", "err", err)
		st.PasswordError = msgResetFailed
		return
	}
	st.Password = ""
	st.PasswordError = ""
	st.Otp = [OtpLength]string{}
	st.OtpError = ""
	st.OtpCtx = OtpContextNone
	st.Screen = ScreenPasswordLogin
}

// completeLogin lands an authenticated result: a fresh detail fetch enriches
// the identity when the provider allows it, otherwise the verification
// response fields stand, filled in from the registration acknowledgement
// when a signup left one. The flow then moves to plan selection when plans
// were queued, success otherwise.
func (s *Service) completeLogin(ctx context.Context, v *ssosession.Visitor, st *State, result *ssoprovider.LoginResult) {
	if detail, err := s.provider.GetUserDetails(ctx, result.TicketID); err == nil {
		result.User = *detail
	} else {
		s.logger.Warn("post-login detail fetch failed, using login response identity", "err", err)
		st.mu.Lock()
		if reg := st.RegistrationResponse; reg != nil {
			if result.User.SSOID == "" {
				result.User.SSOID = reg.SSOID
			}
			if result.User.LoginID == "" {
				result.User.LoginID = reg.Identifier
			}
		}
		st.mu.Unlock()
	}
	s.session.ApplyLoginResult(ctx, v, result)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.Password = ""
	st.Otp = [OtpLength]string{}
	st.OtpCtx = OtpContextNone
	if len(st.AvailablePlans) > 0 {
		st.Screen = ScreenPlanSelection
	} else {
		st.Screen = ScreenSuccess
	}
}
