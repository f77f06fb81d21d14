package checkout

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

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

// Carry a plan selection toward payment
// (POST /checkout/continue)
func (h Handle) Continue(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	var plan PaymentPlan
	if err := render.DecodeJSON(r.Body, &plan); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid plan payload"})
		return
	}
	// an explicit selection starts a new continuation episode
	v.Store.ArmResume()
	outcome := h.svc.ContinueToPay(r.Context(), v, plan)
	render.JSON(w, r, outcome)
}

// Resume a parked continuation after login
// (POST /checkout/resume)
func (h Handle) Resume(w http.ResponseWriter, r *http.Request) {
	v := h.visitors.Visitor(w, r)
	outcome := h.svc.Resume(r.Context(), v)
	if outcome == nil {
		render.JSON(w, r, map[string]string{"status": "NO_PENDING_PLAN"})
		return
	}
	render.JSON(w, r, outcome)
}

// Routes mounts the checkout endpoints.
func (h Handle) Routes(r chi.Router) {
	r.Post("/continue", h.Continue)
	r.Post("/resume", h.Resume)
}
