package ssoprovider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/learnpath/cert-portal/pkg/errors"
	"github.com/learnpath/cert-portal/pkg/notification"
	"github.com/learnpath/cert-portal/pkg/utils"
)

// otpValidity is how long a delivered passcode stays verifiable.
const otpValidity = 5 * time.Minute

type devUser struct {
	ssoID        string
	name         string
	email        string
	mobile       string
	passwordHash []byte
	verified     bool
	totpSecret   string
}

// DevProvider is an in-process Client for development and tests. It issues
// real time-based passcodes and delivers them through the notification
// manager, so the full login and signup flows can run without the hosted
// provider.
type DevProvider struct {
	mu          sync.Mutex
	users       map[string]*devUser // keyed by identifier (email or mobile)
	tickets     map[string]string   // ticketID -> identifier
	resetTokens map[string]string   // identifier -> reset token

	notifier *notification.NotificationManager
	logger   *slog.Logger
	now      func() time.Time
}

// DevProviderOption configures a DevProvider.
type DevProviderOption func(*DevProvider)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) DevProviderOption {
	return func(p *DevProvider) {
		p.now = now
	}
}

// WithDevLogger sets the logger.
func WithDevLogger(logger *slog.Logger) DevProviderOption {
	return func(p *DevProvider) {
		p.logger = logger
	}
}

// NewDevProvider creates a DevProvider delivering passcodes through nm.
func NewDevProvider(nm *notification.NotificationManager, opts ...DevProviderOption) *DevProvider {
	p := &DevProvider{
		users:       make(map[string]*devUser),
		tickets:     make(map[string]string),
		resetTokens: make(map[string]string),
		notifier:    nm,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SeedUser registers a verified account directly, used to arrange fixtures.
func (p *DevProvider) SeedUser(identifier, name, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	secret, err := p.newTotpSecret(identifier)
	if err != nil {
		return err
	}
	u := &devUser{
		ssoID:        uuid.New().String(),
		name:         name,
		passwordHash: hash,
		verified:     true,
		totpSecret:   secret,
	}
	if utils.IsAllDigits(identifier) {
		u.mobile = identifier
	} else {
		u.email = identifier
	}
	p.mu.Lock()
	p.users[identifier] = u
	p.mu.Unlock()
	return nil
}

func (p *DevProvider) newTotpSecret(identifier string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "cert-portal-dev",
		AccountName: identifier,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate otp secret: %w", err)
	}
	return key.Secret(), nil
}

func (p *DevProvider) Ready(_ context.Context) error {
	return nil
}

func (p *DevProvider) detail(u *devUser) *UserDetail {
	d := &UserDetail{
		SSOID:      u.ssoID,
		FirstName:  u.name,
		EmailList:  map[string]string{},
		MobileList: map[string]string{},
	}
	status := "Unverified"
	if u.verified {
		status = "Verified"
	}
	if u.email != "" {
		d.PrimaryEmail = u.email
		d.EmailID = u.email
		d.LoginID = u.email
		d.EmailList[u.email] = status
	}
	if u.mobile != "" {
		if d.LoginID == "" {
			d.LoginID = u.mobile
		}
		d.MobileList[u.mobile] = status
	}
	return d
}

func (p *DevProvider) userByTicket(ticketID string) (*devUser, error) {
	identifier, ok := p.tickets[ticketID]
	if !ok {
		return nil, errors.New(errors.ErrCodeTicketInvalid, "unknown or expired ticket")
	}
	u, ok := p.users[identifier]
	if !ok {
		return nil, errors.New(errors.ErrCodeUserNotFound, "user no longer exists")
	}
	return u, nil
}

func (p *DevProvider) GetValidLoggedInUser(_ context.Context, ticketID string) (*UserDetail, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := p.userByTicket(ticketID)
	if err != nil {
		return nil, err
	}
	d := p.detail(u)
	d.TicketID = ticketID
	return d, nil
}

func (p *DevProvider) GetUserDetails(ctx context.Context, ticketID string) (*UserDetail, error) {
	return p.GetValidLoggedInUser(ctx, ticketID)
}

func (p *DevProvider) CheckUserExists(_ context.Context, identifier string) (UserStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[identifier]
	if !ok {
		return StatusUnregistered, nil
	}
	if !u.verified {
		return StatusUnverified, nil
	}
	return StatusVerified, nil
}

func (p *DevProvider) RegisterUser(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	p.mu.Lock()
	if existing, ok := p.users[req.Identifier]; ok && existing.verified {
		p.mu.Unlock()
		return nil, errors.New(errors.ErrCodeUserExists, "account already registered")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		p.mu.Unlock()
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to hash password")
	}
	secret, err := p.newTotpSecret(req.Identifier)
	if err != nil {
		p.mu.Unlock()
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to provision otp")
	}
	u := &devUser{
		ssoID:        uuid.New().String(),
		name:         req.Name,
		passwordHash: hash,
		totpSecret:   secret,
	}
	if utils.IsAllDigits(req.Identifier) {
		u.mobile = req.Identifier
	} else {
		u.email = req.Identifier
		u.mobile = req.Mobile
	}
	p.users[req.Identifier] = u
	p.mu.Unlock()

	if err := p.sendOtp(ctx, req.Identifier, notification.SignupOtpEmail, notification.SignupOtpSms); err != nil {
		return nil, err
	}
	return &RegisterResult{SSOID: u.ssoID, Identifier: req.Identifier, OtpSent: true}, nil
}

func (p *DevProvider) LoginWithPassword(_ context.Context, identifier, password string) (*LoginResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[identifier]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidCredentials, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return nil, errors.New(errors.ErrCodeInvalidCredentials, "invalid credentials")
	}
	return p.issueTicket(identifier, u), nil
}

// issueTicket mints a ticket for u. Caller holds the lock.
func (p *DevProvider) issueTicket(identifier string, u *devUser) *LoginResult {
	ticketID := uuid.New().String()
	p.tickets[ticketID] = identifier
	d := p.detail(u)
	d.TicketID = ticketID
	return &LoginResult{
		TicketID:  ticketID,
		EncTicket: utils.HashIdentifier(ticketID),
		SSOID:     u.ssoID,
		User:      *d,
	}
}

func (p *DevProvider) passcode(u *devUser) (string, error) {
	code, err := totp.GenerateCodeCustom(u.totpSecret, p.now(), totp.ValidateOpts{
		Period: uint(otpValidity.Seconds()),
		Digits: otp.DigitsSix,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to generate passcode")
	}
	return code, nil
}

func (p *DevProvider) verifyPasscode(u *devUser, code string) bool {
	ok, err := totp.ValidateCustom(code, u.totpSecret, p.now(), totp.ValidateOpts{
		Period: uint(otpValidity.Seconds()),
		Skew:   1,
		Digits: otp.DigitsSix,
	})
	return err == nil && ok
}

func (p *DevProvider) sendOtp(_ context.Context, identifier string, emailType, smsType notification.NoticeType) error {
	p.mu.Lock()
	u, ok := p.users[identifier]
	if !ok {
		p.mu.Unlock()
		return errors.New(errors.ErrCodeUserNotFound, "no account for identifier")
	}
	code, err := p.passcode(u)
	p.mu.Unlock()
	if err != nil {
		return err
	}

	data := notification.NotificationData{
		To:   identifier,
		Data: map[string]string{"Passcode": code},
	}
	masked := utils.MaskEmail(identifier)
	if utils.IsAllDigits(identifier) {
		masked = utils.MaskMobile(identifier)
		err = p.notifier.Send(smsType, notification.SMSSystem, data)
	} else {
		err = p.notifier.Send(emailType, notification.EmailSystem, data)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to deliver passcode")
	}
	p.logger.Info("passcode delivered", "to", masked)
	return nil
}

func (p *DevProvider) GetLoginOtp(ctx context.Context, identifier string) error {
	return p.sendOtp(ctx, identifier, notification.LoginOtpEmail, notification.LoginOtpSms)
}

func (p *DevProvider) GetSignUpOtp(ctx context.Context, identifier string) error {
	return p.sendOtp(ctx, identifier, notification.SignupOtpEmail, notification.SignupOtpSms)
}

func (p *DevProvider) GetForgotPasswordOtp(ctx context.Context, identifier string) error {
	return p.sendOtp(ctx, identifier, notification.PasswordResetOtp, notification.PasswordResetOtp)
}

func (p *DevProvider) verifyOtp(identifier, code string, markVerified bool) (*LoginResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[identifier]
	if !ok {
		return nil, errors.New(errors.ErrCodeUserNotFound, "no account for identifier")
	}
	if !p.verifyPasscode(u, code) {
		return nil, errors.New(errors.ErrCodeOtpIncorrect, "incorrect passcode").
			WithDetail("code", errors.OtpIncorrectCode)
	}
	if markVerified {
		u.verified = true
	}
	return p.issueTicket(identifier, u), nil
}

func (p *DevProvider) VerifyLoginOtp(_ context.Context, identifier, otpCode string) (*LoginResult, error) {
	return p.verifyOtp(identifier, otpCode, false)
}

func (p *DevProvider) VerifySignUpOtp(_ context.Context, identifier, otpCode string) (*LoginResult, error) {
	return p.verifyOtp(identifier, otpCode, true)
}

func (p *DevProvider) VerifyForgotPasswordOtp(_ context.Context, identifier, otpCode string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[identifier]
	if !ok {
		return "", errors.New(errors.ErrCodeUserNotFound, "no account for identifier")
	}
	if !p.verifyPasscode(u, otpCode) {
		return "", errors.New(errors.ErrCodeOtpIncorrect, "incorrect passcode").
			WithDetail("code", errors.OtpIncorrectCode)
	}
	token := uuid.New().String()
	p.resetTokens[identifier] = token
	return token, nil
}

func (p *DevProvider) ResetPassword(_ context.Context, identifier, resetToken, newPassword string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	token, ok := p.resetTokens[identifier]
	if !ok || token != resetToken {
		return errors.New(errors.ErrCodeUnauthorized, "invalid reset token")
	}
	u, ok := p.users[identifier]
	if !ok {
		return errors.New(errors.ErrCodeUserNotFound, "no account for identifier")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to hash password")
	}
	u.passwordHash = hash
	delete(p.resetTokens, identifier)
	return nil
}

func (p *DevProvider) SignOutUser(_ context.Context, ticketID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.tickets, ticketID)
	return nil
}

// CurrentPasscode returns the live passcode for identifier, used by tests
// that need to complete an OTP round-trip without scraping notifications.
func (p *DevProvider) CurrentPasscode(identifier string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[identifier]
	if !ok {
		return "", errors.New(errors.ErrCodeUserNotFound, "no account for identifier")
	}
	return p.passcode(u)
}

var _ Client = (*DevProvider)(nil)
