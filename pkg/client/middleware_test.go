package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnpath/cert-portal/pkg/config"
	"github.com/learnpath/cert-portal/pkg/sessionbridge"
	"github.com/learnpath/cert-portal/pkg/sessionstore"
)

func newRegistry() (*VisitorRegistry, *sessionstore.Manager) {
	manager := sessionstore.NewManager()
	codec := sessionbridge.NewCookieCodec(config.CookieConfig{Domain: "", Secure: false, HTTPOnly: true})
	return NewVisitorRegistry(manager, codec), manager
}

func TestVisitorIssuesStableSID(t *testing.T) {
	reg, manager := newRegistry()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	v := reg.Visitor(w, r)

	require.NotEmpty(t, v.SID)
	assert.NotNil(t, v.Store)
	assert.Equal(t, 1, manager.Len())

	// a second request carrying the cookie maps to the same store
	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		r2.AddCookie(c)
	}
	v2 := reg.Visitor(httptest.NewRecorder(), r2)
	assert.Equal(t, v.SID, v2.SID)
	assert.Same(t, v.Store, v2.Store)
	assert.Equal(t, 1, manager.Len())
}

func TestRequireLogin(t *testing.T) {
	reg, manager := newRegistry()
	handler := reg.RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// log the visitor in, replay with their cookie
	var sid string
	for _, c := range w.Result().Cookies() {
		if c.Name == SIDCookieName {
			sid = c.Value
		}
	}
	require.NotEmpty(t, sid)
	manager.GetOrCreate(sid).SetUserInfo(sessionstore.UserInfo{SSOID: "sso-1", IsLogged: true})

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		r2.AddCookie(c)
	}
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, r2)
	assert.Equal(t, http.StatusOK, w2.Code)
}

func TestRequireAdmin(t *testing.T) {
	auth := NewAdminAuth("test-secret")
	handler := jwtauth.Verifier(auth)(jwtauth.Authenticator(auth)(RequireAdmin(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)))

	// no token
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// token without the admin role
	_, plain, err := auth.Encode(map[string]interface{}{"sub": "u-1", "roles": []string{"viewer"}})
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+plain)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// admin token
	_, admin, err := auth.Encode(map[string]interface{}{"sub": "u-1", "roles": []string{"admin"}})
	require.NoError(t, err)
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+admin)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}
