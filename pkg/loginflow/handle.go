package loginflow

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/learnpath/cert-portal/pkg/checkout"
	"github.com/learnpath/cert-portal/pkg/ssosession"
)

type Handle struct {
	svc      *Service
	visitors ssosession.VisitorProvider
}

func NewHandle(svc *Service, visitors ssosession.VisitorProvider) Handle {
	return Handle{
		svc:      svc,
		visitors: visitors,
	}
}

type openRequest struct {
	Plans []checkout.PaymentPlan `json:"plans,omitempty"`
}

type fieldRequest struct {
	Field Field  `json:"field"`
	Value string `json:"value"`
	Index int    `json:"index,omitempty"`
}

// Open the login dialog
// (POST /flow/open)
func (h Handle) Open(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	var req openRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid request body"})
		return
	}
	st := h.svc.Open(v, req.Plans)
	// watch for a login finishing in another tab while the dialog is up;
	// the watcher outlives this request, so it does not ride r.Context()
	if !v.Store.IsLogin() {
		h.svc.WatchLogin(context.Background(), v, nil)
	}
	render.JSON(w, r, st.Snapshot())
}

// Edit one input field
// (POST /flow/field)
func (h Handle) SetField(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	var req fieldRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid request body"})
		return
	}
	st := StateFor(v.Store)
	if req.Field == FieldOtp {
		st.SetOtpDigit(req.Index, req.Value)
	} else {
		st.SetField(req.Field, req.Value)
	}
	render.JSON(w, r, st.Snapshot())
}

// Submit the identifier screen
// (POST /flow/identifier)
func (h Handle) SubmitIdentifier(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	h.svc.SubmitIdentifier(r.Context(), v)
	render.JSON(w, r, StateFor(v.Store).Snapshot())
}

// Submit the registration screen
// (POST /flow/register)
func (h Handle) SubmitRegistration(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	h.svc.SubmitRegistration(r.Context(), v)
	render.JSON(w, r, StateFor(v.Store).Snapshot())
}

// Submit a password login
// (POST /flow/login)
func (h Handle) SubmitPasswordLogin(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	h.svc.SubmitPasswordLogin(r.Context(), v)
	render.JSON(w, r, StateFor(v.Store).Snapshot())
}

// Switch to OTP login
// (POST /flow/otp/request)
func (h Handle) RequestLoginOtp(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	h.svc.RequestLoginOtp(r.Context(), v)
	render.JSON(w, r, StateFor(v.Store).Snapshot())
}

// Resend the pending OTP
// (POST /flow/otp/resend)
func (h Handle) ResendOtp(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	h.svc.ResendOtp(r.Context(), v)
	render.JSON(w, r, StateFor(v.Store).Snapshot())
}

// Verify the entered OTP
// (POST /flow/otp/verify)
func (h Handle) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	h.svc.VerifyOtp(r.Context(), v)
	render.JSON(w, r, StateFor(v.Store).Snapshot())
}

// Start a password reset
// (POST /flow/password/forgot)
func (h Handle) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	h.svc.RequestPasswordReset(r.Context(), v)
	render.JSON(w, r, StateFor(v.Store).Snapshot())
}

// Complete a password reset
// (POST /flow/password/reset)
func (h Handle) SubmitPasswordReset(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	h.svc.SubmitPasswordReset(r.Context(), v)
	render.JSON(w, r, StateFor(v.Store).Snapshot())
}

// Close the dialog
// (POST /flow/close)
func (h Handle) Close(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	h.svc.Close(v)
	render.JSON(w, r, map[string]string{"status": "SUCCESS"})
}

// Routes mounts the login flow endpoints.
func (h Handle) Routes(r chi.Router) {
	r.Post("/open", h.Open)
	r.Post("/field", h.SetField)
	r.Post("/identifier", h.SubmitIdentifier)
	r.Post("/register", h.SubmitRegistration)
	r.Post("/login", h.SubmitPasswordLogin)
	r.Post("/otp/request", h.RequestLoginOtp)
	r.Post("/otp/resend", h.ResendOtp)
	r.Post("/otp/verify", h.VerifyOtp)
	r.Post("/password/forgot", h.RequestPasswordReset)
	r.Post("/password/reset", h.SubmitPasswordReset)
	r.Post("/close", h.Close)
}
