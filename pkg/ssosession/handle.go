package ssosession

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/learnpath/cert-portal/pkg/sessionstore"
)

// VisitorProvider resolves the per-request Visitor (store, jar, request
// attributes). The HTTP layer supplies it so the service stays transport
// agnostic.
type VisitorProvider interface {
	Visitor(w http.ResponseWriter, r *http.Request) *Visitor
}

type Handle struct {
	svc      *Service
	visitors VisitorProvider
}

func NewHandle(svc *Service, visitors VisitorProvider) Handle {
	return Handle{
		svc:      svc,
		visitors: visitors,
	}
}

// SessionState is the login snapshot returned to page consumers.
type SessionState struct {
	IsLogin       bool                   `json:"isLogin"`
	UserType      sessionstore.UserType  `json:"userType"`
	UserInfo      *sessionstore.UserInfo `json:"userInfo,omitempty"`
	CanUpgrade    bool                   `json:"canUpgrade"`
	IsGroupUser   bool                   `json:"isGroupUser"`
	PendingResume bool                   `json:"pendingResume"`
}

func snapshot(store *sessionstore.Store) SessionState {
	state := SessionState{
		IsLogin:       store.IsLogin(),
		UserType:      store.UserType(),
		CanUpgrade:    store.CanUpgrade(),
		IsGroupUser:   store.IsGroupUser(),
		PendingResume: store.PendingResume(),
	}
	if info, ok := store.UserInfo(); ok {
		state.UserInfo = &info
	}
	return state
}

// Bootstrap the visitor session
// (POST /session/init)
func (h Handle) Init(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	h.svc.Init(r.Context(), v)
	render.JSON(w, r, snapshot(v.Store))
}

// Resolve the current login state
// (GET /session/user)
func (h Handle) GetUser(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	h.svc.GetUserDetail(r.Context(), v)
	render.JSON(w, r, snapshot(v.Store))
}

// Force a fresh provider round-trip
// (POST /session/user/refresh)
func (h Handle) RefreshUser(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	if _, err := h.svc.GetUserDetailForced(r.Context(), v); err != nil {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, map[string]interface{}{
			"status": "ERROR",
			"error":  err.Error(),
			"state":  snapshot(v.Store),
		})
		return
	}
	render.JSON(w, r, snapshot(v.Store))
}

// Refresh entitlements
// (GET /session/permissions)
func (h Handle) GetPermissions(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	result := h.svc.GetPermissions(r.Context(), v)
	render.JSON(w, r, result)
}

// Re-validate after an out-of-band login
// (POST /session/verify)
func (h Handle) Verify(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	h.svc.VerifyLogin(r.Context(), v)
	render.JSON(w, r, snapshot(v.Store))
}

// Sign out
// (POST /session/logout)
func (h Handle) Logout(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	h.svc.Logout(r.Context(), v)
	render.JSON(w, r, map[string]string{"status": "SUCCESS"})
}

// Routes mounts the session endpoints.
func (h Handle) Routes(r chi.Router) {
	r.Post("/init", h.Init)
	r.Get("/user", h.GetUser)
	r.Post("/user/refresh", h.RefreshUser)
	r.Get("/permissions", h.GetPermissions)
	r.Post("/verify", h.Verify)
	r.Post("/logout", h.Logout)
}
