package sessions

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/learnpath/cert-portal/pkg/errors"
)

type Handle struct {
	svc *Service
}

func NewHandle(svc *Service) Handle {
	return Handle{svc: svc}
}

// List active sessions for an account
// (GET /sessions/{ssoid})
func (h Handle) ListActive(w http.ResponseWriter, r *http.Request) {
	ssoID := chi.URLParam(r, "ssoid")
	resp, err := h.svc.ListActiveSessionSummaries(r.Context(), ssoID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// Look up one session by ticket
// (GET /sessions/ticket/{ticketId})
func (h Handle) GetByTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
	session, err := h.svc.GetSession(r.Context(), ticketID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, session)
}

// Revoke one session
// (POST /sessions/ticket/{ticketId}/revoke)
func (h Handle) Revoke(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
	if err := h.svc.RevokeSession(r.Context(), ticketID); err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"status": "SUCCESS"})
}

// Revoke every session of an account
// (POST /sessions/{ssoid}/revoke)
func (h Handle) RevokeAll(w http.ResponseWriter, r *http.Request) {
	ssoID := chi.URLParam(r, "ssoid")
	if err := h.svc.RevokeAllSessions(r.Context(), ssoID); err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"status": "SUCCESS"})
}

// Purge revoked sessions older than the retention window
// (POST /sessions/cleanup)
func (h Handle) Cleanup(w http.ResponseWriter, r *http.Request) {
	retention := 30 * 24 * time.Hour
	if raw := r.URL.Query().Get("retention"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "invalid retention duration"})
			return
		}
		retention = d
	}
	if err := h.svc.CleanupRevoked(r.Context(), retention); err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"status": "SUCCESS"})
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	render.Status(r, errors.MapErrorCodeToHTTPStatus(code))
	render.JSON(w, r, map[string]string{
		"code":  string(code),
		"error": err.Error(),
	})
}

// Routes mounts the session administration endpoints. Callers guard these
// with the admin token middleware.
func (h Handle) Routes(r chi.Router) {
	r.Get("/{ssoid}", h.ListActive)
	r.Post("/{ssoid}/revoke", h.RevokeAll)
	r.Get("/ticket/{ticketId}", h.GetByTicket)
	r.Post("/ticket/{ticketId}/revoke", h.Revoke)
	r.Post("/cleanup", h.Cleanup)
}
