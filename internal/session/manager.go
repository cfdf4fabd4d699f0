package session

import (
	"net/http"
)

// Manager owns the long-lived session identifier carried in the client cookie.
// Sessions are not stored; tokens and reservations keyed by the id expire on
// their own.
type Manager struct {
	cookie CookieOptions
}

func NewManager(opts CookieOptions) *Manager {
	return &Manager{cookie: opts}
}

// Resolve returns the session id from the request cookie. Malformed values are
// treated as absent.
func (m *Manager) Resolve(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || !ValidID(c.Value) {
		return "", false
	}
	return c.Value, true
}

// Create generates a new session id and the cookie the caller must set on the
// response before any body is written.
func (m *Manager) Create() (string, *http.Cookie, error) {
	id, err := GenerateID()
	if err != nil {
		return "", nil, err
	}
	return id, NewCookie(id, m.cookie), nil
}
