package auth

import (
	"context"
	"net/http"
	"time"
)

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Middleware resolves the caller of each request and answers the user and
// role questions asked by route guards, the access log and the audit trail.
type Middleware struct {
	client    HTTPDoer
	adminRole string
	devBypass bool

	sessionAPI    string
	sessionCookie string

	assertCookie   string
	assertIssuer   string
	assertAudience string
	assertLeeway   time.Duration
	keys           *keyCache

	stop context.CancelFunc
}

// Middleware attaches the resolved User to the request context. Requests
// without credentials continue anonymously; a session cookie rejected by the
// session API is answered with 401.
func (m *Middleware) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := m.identify(r)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if u.Username != "" {
				r = r.WithContext(ContextWithUser(r.Context(), u))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// identify tries dev headers, then the assertion cookie, then the session
// cookie. A bad assertion falls through; a bad session does not.
func (m *Middleware) identify(r *http.Request) (User, error) {
	if m.devBypass {
		if u := devUserFromHeaders(r); u.Username != "" {
			return u, nil
		}
	}
	if c, err := r.Cookie(m.assertCookie); err == nil && c.Value != "" && m.keys.key() != nil {
		if u, err := m.verifyAssertion(c.Value); err == nil {
			return u, nil
		}
	}
	if m.sessionCookie == "" {
		return User{}, nil
	}
	c, err := r.Cookie(m.sessionCookie)
	if err != nil || c.Value == "" {
		return User{}, nil
	}
	return m.lookupSession(r.Context(), c)
}

func (m *Middleware) GetUser(ctx context.Context) User {
	u, _ := userFrom(ctx)
	return u
}

func (m *Middleware) IsAuthenticated(ctx context.Context) bool {
	u, ok := userFrom(ctx)
	return ok && u.Username != ""
}

func (m *Middleware) IsAdmin(ctx context.Context) bool {
	u, ok := userFrom(ctx)
	return ok && m.adminRole != "" && u.Role.Name == m.adminRole
}

// IsRole and IsUser also hold for the admin role.
func (m *Middleware) IsRole(ctx context.Context, role Role) bool {
	u, ok := userFrom(ctx)
	return ok && (u.Role.Name == role.Name || m.IsAdmin(ctx))
}

func (m *Middleware) IsUser(ctx context.Context, username string) bool {
	u, ok := userFrom(ctx)
	return ok && (u.Username == username || m.IsAdmin(ctx))
}
