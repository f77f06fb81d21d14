package sessionbridge

import (
	"net/http"
	"sync"

	"github.com/learnpath/cert-portal/pkg/config"
)

// Jar is the per-request cookie surface the session service works against.
// The HTTP implementation wraps a CookieCodec; tests use MemJar.
type Jar interface {
	Get(name string) string
	// Set writes the cookie, reporting whether a write was actually emitted.
	Set(name, value string) bool
	Clear(name string)
	// ClearSession expires the whole session cookie set at once.
	ClearSession()
}

// RequestJar binds a CookieCodec to one request/response pair.
type RequestJar struct {
	codec *CookieCodec
	w     http.ResponseWriter
	r     *http.Request
}

// NewRequestJar creates a Jar over one request/response pair.
func NewRequestJar(codec *CookieCodec, w http.ResponseWriter, r *http.Request) *RequestJar {
	return &RequestJar{codec: codec, w: w, r: r}
}

func (j *RequestJar) Get(name string) string {
	return j.codec.Read(j.r, name)
}

func (j *RequestJar) Set(name, value string) bool {
	return j.codec.Write(j.w, j.r, name, value)
}

func (j *RequestJar) Clear(name string) {
	j.codec.Clear(j.w, name)
}

func (j *RequestJar) ClearSession() {
	j.codec.ClearSession(j.w)
}

// MemJar is an in-memory Jar for tests.
type MemJar struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemJar creates an empty MemJar.
func NewMemJar() *MemJar {
	return &MemJar{values: make(map[string]string)}
}

func (j *MemJar) Get(name string) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.values[name]
}

func (j *MemJar) Set(name, value string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.values[name] == value {
		return false
	}
	j.values[name] = value
	return true
}

func (j *MemJar) Clear(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.values, name)
}

func (j *MemJar) ClearSession() {
	for _, name := range []string{
		config.CookieTicketID,
		config.CookieEncTicket,
		config.CookieSSOID,
		config.CookieOneTime,
	} {
		j.Clear(name)
	}
}
