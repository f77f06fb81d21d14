package client

import (
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/learnpath/cert-portal/pkg/sessionbridge"
	"github.com/learnpath/cert-portal/pkg/sessionstore"
	"github.com/learnpath/cert-portal/pkg/ssosession"
)

// Portal-owned cookies, distinct from the SSO cookie set.
const (
	SIDCookieName    = "PORTAL_SID"
	DeviceCookieName = "PORTAL_DID"
)

// VisitorRegistry resolves the per-request Visitor: it issues the portal's
// own visitor-id and device-id cookies and binds the request to its Store
// and cookie jar.
type VisitorRegistry struct {
	manager *sessionstore.Manager
	codec   *sessionbridge.CookieCodec
}

// NewVisitorRegistry creates a VisitorRegistry.
func NewVisitorRegistry(manager *sessionstore.Manager, codec *sessionbridge.CookieCodec) *VisitorRegistry {
	return &VisitorRegistry{
		manager: manager,
		codec:   codec,
	}
}

func (reg *VisitorRegistry) portalCookie(w http.ResponseWriter, r *http.Request, name string) string {
	if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	value := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   reg.codec.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
	})
	return value
}

// Visitor builds the Visitor for one request.
func (reg *VisitorRegistry) Visitor(w http.ResponseWriter, r *http.Request) *ssosession.Visitor {
	sid := reg.portalCookie(w, r, SIDCookieName)
	deviceID := reg.portalCookie(w, r, DeviceCookieName)

	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		} else {
			ip = r.RemoteAddr
		}
	}

	return &ssosession.Visitor{
		SID:       sid,
		Store:     reg.manager.GetOrCreate(sid),
		Jar:       sessionbridge.NewRequestJar(reg.codec, w, r),
		Referer:   r.Referer(),
		DeviceID:  deviceID,
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}

var _ ssosession.VisitorProvider = (*VisitorRegistry)(nil)
