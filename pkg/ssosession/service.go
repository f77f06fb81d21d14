package ssosession

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/learnpath/cert-portal/pkg/config"
	"github.com/learnpath/cert-portal/pkg/sessionbridge"
	"github.com/learnpath/cert-portal/pkg/sessions"
	"github.com/learnpath/cert-portal/pkg/sessionstore"
	"github.com/learnpath/cert-portal/pkg/ssoprovider"
)

// Visitor bundles the per-request state one resolution works against: the
// visitor's store, their cookie jar, and the request attributes the session
// record wants.
type Visitor struct {
	SID       string
	Store     *sessionstore.Store
	Jar       sessionbridge.Jar
	Referer   string
	DeviceID  string
	IPAddress string
	UserAgent string
}

// Service reconciles session cookies with provider round-trips and resolves
// entitlements. Every operation degrades to not-logged-in instead of
// propagating provider failures; cookie and store updates for one resolution
// land together.
type Service struct {
	client     ssoprovider.Client
	bridge     *sessionbridge.Bridge
	records    *sessions.Service
	channel    config.ChannelConfig
	ssoCfg     config.SSOConfig
	policy     config.MerchantPolicy
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSessionRecords enables persistent ticket session records.
func WithSessionRecords(records *sessions.Service) Option {
	return func(s *Service) {
		s.records = records
	}
}

// WithEntitlementHTTPClient sets the HTTP client used for entitlement calls.
func WithEntitlementHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.httpClient = client
	}
}

// WithServiceLogger sets the logger.
func WithServiceLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates the session service.
func NewService(
	client ssoprovider.Client,
	bridge *sessionbridge.Bridge,
	channel config.ChannelConfig,
	ssoCfg config.SSOConfig,
	policy config.MerchantPolicy,
	opts ...Option,
) *Service {
	s := &Service{
		client:     client,
		bridge:     bridge,
		channel:    channel,
		ssoCfg:     ssoCfg,
		policy:     policy,
		httpClient: &http.Client{Timeout: ssoCfg.RequestTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init bootstraps a visitor session: records the channel context, detects a
// payment continuation returning from the login redirect, then resolves the
// login state. Safe to call on every request; it never returns an error.
func (s *Service) Init(ctx context.Context, v *Visitor) {
	v.Store.SetChannel(sessionstore.Channel{
		Merchant: s.channel.Merchant,
		Platform: s.channel.Platform,
	})

	plan, ok, err := s.bridge.SelectedPlan(ctx, v.SID)
	if err != nil {
		s.logger.Warn("failed to read pending plan", "err", err)
	}
	if ok && plan.CheckReferer != "" && refererMatchesHost(v.Referer, s.ssoCfg.LoginHost) {
		v.Store.SetPendingResume(true)
	}

	s.GetUserDetail(ctx, v)
}

// GetUserDetail resolves the visitor's login state from the ticket cookie.
// Failures of any kind degrade to not-logged-in.
func (s *Service) GetUserDetail(ctx context.Context, v *Visitor) {
	ticketID := v.Jar.Get(config.CookieTicketID)
	if ticketID == "" {
		ticketID = v.Store.TicketID()
	}
	if ticketID == "" {
		s.handleNotLoggedIn(v)
		return
	}

	valid, err := s.client.GetValidLoggedInUser(ctx, ticketID)
	if err != nil {
		s.logger.Info("ticket validation failed", "err", err)
		s.handleNotLoggedIn(v)
		return
	}

	detail, err := s.client.GetUserDetails(ctx, valid.TicketID)
	if err != nil {
		s.logger.Warn("user detail fetch failed after validation", "err", err)
		s.handleNotLoggedIn(v)
		return
	}

	s.applyResolution(ctx, v, detail, "")
}

// GetUserDetailForced always performs a fresh provider round-trip, bypassing
// any cached resolution; used after operations that change login state. It
// always yields exactly one of a detail record or an error.
func (s *Service) GetUserDetailForced(ctx context.Context, v *Visitor) (*ssoprovider.UserDetail, error) {
	ticketID := v.Jar.Get(config.CookieTicketID)
	if ticketID == "" {
		ticketID = v.Store.TicketID()
	}

	detail, err := s.client.GetUserDetails(ctx, ticketID)
	if err != nil {
		s.handleNotLoggedIn(v)
		return nil, err
	}
	if detail.TicketID == "" {
		detail.TicketID = ticketID
	}
	s.applyResolution(ctx, v, detail, "")
	return detail, nil
}

// ApplyLoginResult lands a fresh credential or OTP login into the visitor's
// session, then refreshes entitlements.
func (s *Service) ApplyLoginResult(ctx context.Context, v *Visitor, result *ssoprovider.LoginResult) {
	detail := result.User
	if detail.TicketID == "" {
		detail.TicketID = result.TicketID
	}
	if detail.SSOID == "" {
		detail.SSOID = result.SSOID
	}
	s.applyResolution(ctx, v, &detail, result.EncTicket)
	s.GetPermissions(ctx, v)
}

// applyResolution commits one successful resolution: cookies, store, session
// record and the login-check notification land together.
func (s *Service) applyResolution(ctx context.Context, v *Visitor, detail *ssoprovider.UserDetail, encTicket string) {
	v.Jar.Set(config.CookieTicketID, detail.TicketID)
	if encTicket != "" {
		v.Jar.Set(config.CookieEncTicket, encTicket)
	}
	v.Jar.Set(config.CookieSSOID, detail.SSOID)

	identifier := detail.LoginID
	if identifier == "" {
		identifier = detail.PrimaryEmail
	}
	v.Store.SetUserInfo(sessionstore.UserInfo{
		SSOID:        detail.SSOID,
		PrimaryEmail: detail.PrimaryEmail,
		EmailID:      detail.EmailID,
		FirstName:    detail.FirstName,
		LoginID:      detail.LoginID,
		TicketID:     detail.TicketID,
		Identifier:   identifier,
		IsLogged:     true,
		EmailList:    detail.EmailList,
		MobileList:   detail.MobileList,
	})

	if s.records != nil {
		_, err := s.records.RecordLogin(ctx, sessions.RecordSessionRequest{
			TicketID:  detail.TicketID,
			SSOID:     detail.SSOID,
			Email:     detail.PrimaryEmail,
			UserType:  string(v.Store.UserType()),
			Merchant:  s.channel.Merchant,
			Platform:  s.channel.Platform,
			IPAddress: v.IPAddress,
			UserAgent: v.UserAgent,
		})
		if err != nil {
			s.logger.Warn("failed to record login session", "err", err)
		}
	}

	v.Store.NotifyLoginCheck()
	v.Store.FinishLoginProcessing()
}

// handleNotLoggedIn clears the auth slices so no consumer can observe a
// half-resolved session. Cookies are left alone; a stale ticket is harmless
// and the next resolution overwrites it.
func (s *Service) handleNotLoggedIn(v *Visitor) {
	v.Store.ClearAuth()
}

// PermissionsResult is the structured outcome of an entitlement refresh.
// Failures are results, not errors.
type PermissionsResult struct {
	Status      string                `json:"status"`
	Code        int                   `json:"code,omitempty"`
	Error       string                `json:"error,omitempty"`
	UserType    sessionstore.UserType `json:"userType,omitempty"`
	Permissions []string              `json:"permissions,omitempty"`
	Features    []string              `json:"accessibleFeatures,omitempty"`
	CanUpgrade  bool                  `json:"canUpgrade"`
}

// GetPermissions refreshes entitlements from the auth backend and commits
// the result to the store. Without an SSO id it returns a skipped result and
// never touches the network.
func (s *Service) GetPermissions(ctx context.Context, v *Visitor) *PermissionsResult {
	ssoID := v.Jar.Get(config.CookieSSOID)
	if ssoID == "" {
		if info, ok := v.Store.UserInfo(); ok {
			ssoID = info.SSOID
		}
	}
	if ssoID == "" {
		return &PermissionsResult{Status: "SKIPPED"}
	}

	ticketID := v.Jar.Get(config.CookieTicketID)
	if ticketID == "" {
		ticketID = v.Store.TicketID()
	}

	resp, status, err := s.fetchEntitlements(ctx, entitlementRequest{
		SSOID:    ssoID,
		TicketID: ticketID,
		DeviceID: v.DeviceID,
	})
	if err != nil {
		s.logger.Warn("entitlement refresh failed", "status", status, "err", err)
		return &PermissionsResult{Status: "ERROR", Code: status, Error: err.Error()}
	}

	if resp.Data.Token != "" {
		v.Jar.Set(config.CookieOneTime, resp.Data.Token)
		v.Store.SetUserToken(resp.Data.Token)
	}

	var product *productDetail
	for i := range resp.Data.ProductDetails {
		if resp.Data.ProductDetails[i].ProductCode == s.channel.ProductCode {
			product = &resp.Data.ProductDetails[i]
			break
		}
	}
	if product == nil {
		s.logger.Warn("no product entry for configured product code",
			"productCode", s.channel.ProductCode)
		return &PermissionsResult{Status: "SUCCESS", Code: resp.Code}
	}

	userType := GetUserType(product.Permissions)
	v.Store.SetEntitlements(product.Permissions, product.AccessibleFeatures, userType, product.SubscriptionDetail)
	canUpgrade := s.CheckPermissions(v, product.Permissions)
	v.Store.SetCanUpgrade(canUpgrade)

	if s.records != nil && ticketID != "" {
		if err := s.records.UpdateUserType(ctx, ticketID, string(userType)); err != nil {
			s.logger.Debug("failed to update recorded user type", "err", err)
		}
	}

	return &PermissionsResult{
		Status:      "SUCCESS",
		Code:        resp.Code,
		UserType:    userType,
		Permissions: product.Permissions,
		Features:    product.AccessibleFeatures,
		CanUpgrade:  canUpgrade,
	}
}

// CheckPermissions reports upgrade/buy eligibility. A group subscription
// short-circuits to not-eligible and marks the visitor as a group user; the
// merchant policy can veto the upgrade CTA for already-subscribed users.
func (s *Service) CheckPermissions(v *Visitor, permissions []string) bool {
	if hasPerm(permissions, PermGroupSubscription) {
		v.Store.SetGroupUser(true)
		return false
	}

	if hasPerm(permissions, PermSubscribed) && !s.policy.AllowsUpgrade(s.channel.Merchant) {
		return false
	}

	return hasPerm(permissions, PermCanBuy) || len(permissions) == 0
}

// Logout signs the visitor out. Cleanup runs unconditionally: even when the
// provider sign-out fails, the store slices, bridge records, cookies and the
// session record are all invalidated.
func (s *Service) Logout(ctx context.Context, v *Visitor) {
	ticketID := v.Jar.Get(config.CookieTicketID)
	if ticketID == "" {
		ticketID = v.Store.TicketID()
	}

	if err := s.client.SignOutUser(ctx, ticketID); err != nil {
		s.logger.Warn("provider sign-out failed, continuing cleanup", "err", err)
	}

	v.Store.ClearAuth()
	v.Store.ResetLoginProcessing()

	if err := s.bridge.Clear(ctx, v.SID); err != nil {
		s.logger.Warn("failed to clear bridge records", "err", err)
	}
	v.Jar.ClearSession()

	if s.records != nil && ticketID != "" {
		if err := s.records.RevokeSession(ctx, ticketID); err != nil {
			s.logger.Debug("failed to revoke session record", "err", err)
		}
	}
}

// AfterLoginCall queues cb until login completes, or runs it immediately
// when it already has.
func (s *Service) AfterLoginCall(v *Visitor, cb func()) {
	v.Store.AfterLoginCall(cb)
}

// VerifyLogin re-validates against the provider. When the resolved ticket
// matches the one already in the store the refetch is skipped and only the
// after-login stack is flushed.
func (s *Service) VerifyLogin(ctx context.Context, v *Visitor) {
	ticketID := v.Jar.Get(config.CookieTicketID)
	if ticketID == "" {
		ticketID = v.Store.TicketID()
	}
	if ticketID == "" {
		s.handleNotLoggedIn(v)
		return
	}

	valid, err := s.client.GetValidLoggedInUser(ctx, ticketID)
	if err != nil {
		s.handleNotLoggedIn(v)
		return
	}

	if valid.TicketID == v.Store.TicketID() && v.Store.IsLogin() {
		v.Store.FinishLoginProcessing()
		return
	}

	detail, err := s.client.GetUserDetails(ctx, valid.TicketID)
	if err != nil {
		s.handleNotLoggedIn(v)
		return
	}
	s.applyResolution(ctx, v, detail, "")
}

// refererMatchesHost reports whether referer points at the given host.
func refererMatchesHost(referer, host string) bool {
	if referer == "" || host == "" {
		return false
	}
	ref, err := url.Parse(referer)
	if err != nil {
		return false
	}
	target, err := url.Parse(host)
	if err != nil {
		return false
	}
	if target.Host == "" {
		return ref.Host == target.Path
	}
	return ref.Host == target.Host
}
