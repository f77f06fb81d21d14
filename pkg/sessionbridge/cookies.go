package sessionbridge

import (
	"net/http"
	"time"

	"github.com/learnpath/cert-portal/pkg/config"
)

// CookieCodec reads and writes the SSO cookies on the portal domain. Writes
// are skipped when the request already carries the same value, so ordinary
// page loads do not churn Set-Cookie headers.
type CookieCodec struct {
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// NewCookieCodec creates a CookieCodec from cfg.
func NewCookieCodec(cfg config.CookieConfig) *CookieCodec {
	return &CookieCodec{
		Domain:   cfg.Domain,
		Path:     "/",
		Secure:   cfg.Secure,
		HTTPOnly: cfg.HTTPOnly,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   cfg.MaxAge,
	}
}

// Read returns the named cookie's value from r, empty when absent.
func (c *CookieCodec) Read(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Write sets the named cookie unless the request already carries value.
// Returns whether a Set-Cookie header was emitted.
func (c *CookieCodec) Write(w http.ResponseWriter, r *http.Request, name, value string) bool {
	if r != nil && c.Read(r, name) == value {
		return false
	}
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Domain:   c.Domain,
		Path:     c.Path,
		HttpOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
	if c.MaxAge > 0 {
		cookie.Expires = time.Now().Add(c.MaxAge)
	}
	http.SetCookie(w, cookie)
	return true
}

// Clear expires the named cookie on the portal domain.
func (c *CookieCodec) Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Domain:   c.Domain,
		Path:     c.Path,
		MaxAge:   -1,
		HttpOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// ClearSession expires every session cookie together so a logout can never
// leave a partial cookie set behind.
func (c *CookieCodec) ClearSession(w http.ResponseWriter) {
	for _, name := range []string{
		config.CookieTicketID,
		config.CookieEncTicket,
		config.CookieSSOID,
		config.CookieOneTime,
	} {
		c.Clear(w, name)
	}
}
