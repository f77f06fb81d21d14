package loginflow

import (
	"sync"

	"github.com/learnpath/cert-portal/pkg/checkout"
	"github.com/learnpath/cert-portal/pkg/sessionstore"
	"github.com/learnpath/cert-portal/pkg/ssoprovider"
)

// Screen names the panel the visitor currently sees inside the login dialog.
type Screen string

const (
	ScreenLoginInput          Screen = "loginInput"
	ScreenSetPassword         Screen = "setPassword"
	ScreenPasswordLogin       Screen = "passwordLogin"
	ScreenOtpLogin            Screen = "otpLogin"
	ScreenForgotPasswordReset Screen = "forgotPasswordReset"
	ScreenPlanSelection       Screen = "planSelection"
	ScreenSuccess             Screen = "success"
)

// OtpContext tags which flow requested the OTP currently being verified, so
// verification routes to the matching provider endpoint instead of being
// inferred from the screen history.
type OtpContext string

const (
	OtpContextNone   OtpContext = ""
	OtpContextSignup OtpContext = "signup"
	OtpContextLogin  OtpContext = "login"
	OtpContextReset  OtpContext = "reset"
)

// OtpLength is the number of digit slots on the OTP screens.
const OtpLength = 6

// Field identifies one editable input of the flow.
type Field string

const (
	FieldIdentifier Field = "identifier"
	FieldPassword   Field = "password"
	FieldName       Field = "name"
	FieldMobile     Field = "mobile"
	FieldOtp        Field = "otp"
)

// State is the per-visitor login flow state. It lives inside the visitor's
// session store and is discarded when the dialog closes.
type State struct {
	mu sync.Mutex

	Screen Screen

	Identifier string
	Password   string
	Name       string
	Mobile     string
	Otp        [OtpLength]string

	// Per-field validation messages. A message clears only when its own
	// field is edited, touching a sibling leaves it alone.
	IdentifierError string
	PasswordError   string
	NameError       string
	MobileError     string
	OtpError        string

	UserStatus ssoprovider.UserStatus
	OtpCtx     OtpContext

	IsCheckingUser bool
	IsSendingOtp   bool
	IsVerifyingOtp bool
	IsResendingOtp bool
	IsLoading      bool

	// AvailablePlans is populated once when the dialog opens with plans to
	// offer and never overwritten while the flow is live.
	AvailablePlans []checkout.PaymentPlan

	// RegistrationResponse keeps the provider acknowledgement around as an
	// identity fallback if the post-verification detail fetch fails.
	RegistrationResponse *ssoprovider.RegisterResult

	ResetToken string

	resumeConsumed bool
}

// NewState returns a flow state positioned on the identifier screen.
func NewState() *State {
	return &State{Screen: ScreenLoginInput}
}

// StateFor returns the visitor's flow state, creating it on first use.
func StateFor(store *sessionstore.Store) *State {
	if st, ok := store.FlowState().(*State); ok && st != nil {
		return st
	}
	st := NewState()
	store.SetFlowState(st)
	return st
}

// SetField updates one input and clears the validation message that belongs
// to it. Messages on other fields are untouched.
func (st *State) SetField(field Field, value string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	switch field {
	case FieldIdentifier:
		st.Identifier = value
		st.IdentifierError = ""
	case FieldPassword:
		st.Password = value
		st.PasswordError = ""
	case FieldName:
		st.Name = value
		st.NameError = ""
	case FieldMobile:
		st.Mobile = value
		st.MobileError = ""
	}
}

// SetOtpDigit updates a single OTP slot and clears the OTP message. Indexes
// outside the slot range are ignored.
func (st *State) SetOtpDigit(idx int, digit string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if idx < 0 || idx >= OtpLength {
		return
	}
	st.Otp[idx] = digit
	st.OtpError = ""
}

// OtpValue joins the digit slots into the submitted code.
func (st *State) OtpValue() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	code := ""
	for _, d := range st.Otp {
		code += d
	}
	return code
}

// ClearOtp empties the digit slots, keeping any message for the caller to
// replace.
func (st *State) ClearOtp() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Otp = [OtpLength]string{}
}

// SetPlans records the plans offered by the opener. Only the first non-empty
// assignment sticks.
func (st *State) SetPlans(plans []checkout.PaymentPlan) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.AvailablePlans) > 0 || len(plans) == 0 {
		return
	}
	st.AvailablePlans = append([]checkout.PaymentPlan(nil), plans...)
}

// HasPlans reports whether the flow should land on plan selection after
// authentication.
func (st *State) HasPlans() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.AvailablePlans) > 0
}

// ConsumeResume flips the one-shot resumption guard. The first caller gets
// true, later callers and the out-of-band watcher get false, so a parked
// payment is resumed at most once per flow.
func (st *State) ConsumeResume() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.resumeConsumed {
		return false
	}
	st.resumeConsumed = true
	return true
}

// resetToSuccess clears the form for a login that completed outside the
// dialog and lands on the success panel. Queued plans are kept, the plan
// path owns those.
func (st *State) resetToSuccess() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Identifier = ""
	st.Password = ""
	st.Name = ""
	st.Mobile = ""
	st.Otp = [OtpLength]string{}
	st.IdentifierError = ""
	st.PasswordError = ""
	st.NameError = ""
	st.MobileError = ""
	st.OtpError = ""
	st.UserStatus = ssoprovider.StatusUnknown
	st.OtpCtx = OtpContextNone
	st.IsCheckingUser = false
	st.IsSendingOtp = false
	st.IsVerifyingOtp = false
	st.IsResendingOtp = false
	st.IsLoading = false
	st.Screen = ScreenSuccess
}

// CurrentScreen returns the active panel under the state lock.
func (st *State) CurrentScreen() Screen {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.Screen
}

func (st *State) setScreen(s Screen) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Screen = s
}

// Snapshot is the wire view of the flow state. Secrets never leave the
// server, only their validation messages do.
type Snapshot struct {
	Screen          Screen                 `json:"screen"`
	Identifier      string                 `json:"identifier"`
	IdentifierError string                 `json:"identifierError,omitempty"`
	PasswordError   string                 `json:"passwordError,omitempty"`
	NameError       string                 `json:"nameError,omitempty"`
	MobileError     string                 `json:"mobileError,omitempty"`
	OtpError        string                 `json:"otpError,omitempty"`
	UserStatus      ssoprovider.UserStatus `json:"userStatus,omitempty"`
	IsCheckingUser  bool                   `json:"isCheckingUser"`
	IsSendingOtp    bool                   `json:"isSendingOtp"`
	IsVerifyingOtp  bool                   `json:"isVerifyingOtp"`
	IsResendingOtp  bool                   `json:"isResendingOtp"`
	IsLoading       bool                   `json:"isLoading"`
	AvailablePlans  []checkout.PaymentPlan `json:"availablePlans,omitempty"`
}

// Snapshot copies the externally visible parts of the state.
func (st *State) Snapshot() Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return Snapshot{
		Screen:          st.Screen,
		Identifier:      st.Identifier,
		IdentifierError: st.IdentifierError,
		PasswordError:   st.PasswordError,
		NameError:       st.NameError,
		MobileError:     st.MobileError,
		OtpError:        st.OtpError,
		UserStatus:      st.UserStatus,
		IsCheckingUser:  st.IsCheckingUser,
		IsSendingOtp:    st.IsSendingOtp,
		IsVerifyingOtp:  st.IsVerifyingOtp,
		IsResendingOtp:  st.IsResendingOtp,
		IsLoading:       st.IsLoading,
		AvailablePlans:  append([]checkout.PaymentPlan(nil), st.AvailablePlans...),
	}
}
