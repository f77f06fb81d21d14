package sessionstore

import (
	"encoding/json"
	"sync"
)

// UserType classifies the visitor's subscription tier, derived from the
// entitlement permission strings.
type UserType string

const (
	UserTypeNew       UserType = "New"
	UserTypeFree      UserType = "free"
	UserTypeTrial     UserType = "trial"
	UserTypePaid      UserType = "Paid"
	UserTypeCancelled UserType = "cancelled"
	UserTypeExpired   UserType = "expired"
)

// UserInfo is the resolved SSO identity for a visitor. Created on successful
// SSO resolution, cleared on logout or failed validation.
type UserInfo struct {
	SSOID        string            `json:"sso_id"`
	PrimaryEmail string            `json:"primary_email,omitempty"`
	EmailID      string            `json:"email_id,omitempty"`
	FirstName    string            `json:"first_name,omitempty"`
	LoginID      string            `json:"login_id,omitempty"`
	TicketID     string            `json:"ticket_id,omitempty"`
	Identifier   string            `json:"identifier,omitempty"`
	IsLogged     bool              `json:"is_logged"`
	EmailList    map[string]string `json:"email_list,omitempty"`
	MobileList   map[string]string `json:"mobile_list,omitempty"`
}

// Channel is the immutable-per-session routing context passed to every
// provider call.
type Channel struct {
	Merchant string
	Platform string
}

// Store is the per-visitor state container. It holds four domains:
// auth/session info, analytics counters, runtime channel config, and the
// login-flow state. All mutation goes through its methods; nothing else in
// the process keeps authoritative copies.
type Store struct {
	mu sync.Mutex

	channel Channel

	// auth/session domain
	userInfo        *UserInfo
	isLogin         bool
	ticketID        string
	userToken       string
	entitlementRaw  json.RawMessage
	permissions     []string
	features        []string
	userType        UserType
	isGroupUser     bool
	canUpgrade      bool
	pendingResume   bool
	resumeFired     bool
	loginProcessed  bool
	afterLogin      []func()
	loginCheckHooks []func(UserInfo)

	// analytics domain
	counters map[string]int

	// login-flow domain; the concrete type is owned by the loginflow
	// package, the store only anchors it to the visitor session
	flowState interface{}
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		counters: make(map[string]int),
		userType: UserTypeNew,
	}
}

// SetChannel records the merchant/platform routing context. It is set once
// during init and never changed for the life of the session.
func (s *Store) SetChannel(ch Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = ch
}

// Channel returns the routing context.
func (s *Store) Channel() Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// SetTicketID stores the short-lived session ticket.
func (s *Store) SetTicketID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticketID = id
}

// TicketID returns the stored session ticket, empty when none.
func (s *Store) TicketID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticketID
}

// SetUserInfo records a resolved identity. The login flag is derived from
// the record itself so the two can never disagree.
func (s *Store) SetUserInfo(info UserInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userInfo = &info
	s.isLogin = info.IsLogged
	if info.TicketID != "" {
		s.ticketID = info.TicketID
	}
}

// UserInfo returns the resolved identity, if any.
func (s *Store) UserInfo() (UserInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userInfo == nil {
		return UserInfo{}, false
	}
	return *s.userInfo, true
}

// IsLogin is the single authoritative login flag.
func (s *Store) IsLogin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLogin
}

// SetEntitlements records the resolved capability strings and the tier they
// classify to, together with the raw entitlement payload for consumers that
// need fields this service does not model.
func (s *Store) SetEntitlements(permissions, features []string, userType UserType, raw json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions = append([]string(nil), permissions...)
	s.features = append([]string(nil), features...)
	s.userType = userType
	s.entitlementRaw = raw
}

// Permissions returns a copy of the capability strings.
func (s *Store) Permissions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.permissions...)
}

// AccessibleFeatures returns a copy of the feature strings.
func (s *Store) AccessibleFeatures() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.features...)
}

// UserType returns the classified tier.
func (s *Store) UserType() UserType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userType
}

// SetUserToken stores the refreshed one-time token from the entitlement
// endpoint.
func (s *Store) SetUserToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userToken = token
}

// UserToken returns the stored one-time token.
func (s *Store) UserToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userToken
}

// SetGroupUser marks the visitor as covered by a group subscription.
func (s *Store) SetGroupUser(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isGroupUser = v
}

// IsGroupUser reports group-subscription coverage.
func (s *Store) IsGroupUser() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isGroupUser
}

// SetCanUpgrade records upgrade/buy eligibility.
func (s *Store) SetCanUpgrade(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canUpgrade = v
}

// CanUpgrade reports upgrade/buy eligibility.
func (s *Store) CanUpgrade() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canUpgrade
}

// SetPendingResume records that the visitor returned from a login redirect
// that the payment flow initiated, detected during init.
func (s *Store) SetPendingResume(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingResume = v
}

// PendingResume reports whether a payment continuation is waiting.
func (s *Store) PendingResume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingResume
}

// ConsumePendingResume clears the continuation marker and reports whether it
// was set. Check and clear happen under one lock so two resumption paths can
// never both observe it.
func (s *Store) ConsumePendingResume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.pendingResume
	s.pendingResume = false
	return was
}

// ConsumeResumeOnce trips the resumption guard, true only for the first
// caller since the last arm, so a persisted plan is re-initiated at most
// once per selection.
func (s *Store) ConsumeResumeOnce() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resumeFired {
		return false
	}
	s.resumeFired = true
	return true
}

// ArmResume re-arms the resumption guard for a new plan selection or flow
// episode.
func (s *Store) ArmResume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumeFired = false
}

// ClearAuth wipes every auth/session slice in one step. Ticket, token,
// entitlements and identity are invalidated together so no consumer can
// observe a half-cleared session. The pending-resume marker is continuation
// state owned by the payment flow and survives.
func (s *Store) ClearAuth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userInfo = nil
	s.isLogin = false
	s.ticketID = ""
	s.userToken = ""
	s.entitlementRaw = nil
	s.permissions = nil
	s.features = nil
	s.userType = UserTypeNew
	s.isGroupUser = false
	s.canUpgrade = false
}

// AfterLoginCall queues cb until the login round-trip completes; once the
// flush has happened, callbacks run immediately instead of being queued.
func (s *Store) AfterLoginCall(cb func()) {
	s.mu.Lock()
	if s.loginProcessed {
		s.mu.Unlock()
		cb()
		return
	}
	s.afterLogin = append(s.afterLogin, cb)
	s.mu.Unlock()
}

// FinishLoginProcessing marks the login round-trip complete and flushes the
// queued callbacks exactly once. The stack is cleared atomically with the
// flush marker so no callback can fire twice.
func (s *Store) FinishLoginProcessing() {
	s.mu.Lock()
	if s.loginProcessed {
		s.mu.Unlock()
		return
	}
	s.loginProcessed = true
	cbs := s.afterLogin
	s.afterLogin = nil
	s.mu.Unlock()

	for _, cb := range cbs {
		cb()
	}
}

// LoginProcessed reports whether the login round-trip has completed.
func (s *Store) LoginProcessed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginProcessed
}

// ResetLoginProcessing rearms the after-login queue for a new login episode
// (used after logout).
func (s *Store) ResetLoginProcessing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginProcessed = false
	s.afterLogin = nil
}

// OnLoginCheck registers a listener invoked whenever a login resolution
// lands. This is the server-side analogue of the page-level loginCheck event.
func (s *Store) OnLoginCheck(fn func(UserInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginCheckHooks = append(s.loginCheckHooks, fn)
}

// NotifyLoginCheck invokes the registered login-check listeners with the
// current identity.
func (s *Store) NotifyLoginCheck() {
	s.mu.Lock()
	var info UserInfo
	if s.userInfo != nil {
		info = *s.userInfo
	}
	hooks := append([]func(UserInfo){}, s.loginCheckHooks...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(info)
	}
}

// IncrCounter bumps an analytics counter.
func (s *Store) IncrCounter(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name]++
}

// Counters returns a copy of the analytics counters.
func (s *Store) Counters() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.counters))
	for k, v := range s.counters {
		out[k] = v
	}
	return out
}

// SetFlowState anchors the login-flow state to this session. The concrete
// type belongs to the loginflow package.
func (s *Store) SetFlowState(v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flowState = v
}

// FlowState returns the anchored login-flow state, nil when no flow is open.
func (s *Store) FlowState() interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flowState
}
