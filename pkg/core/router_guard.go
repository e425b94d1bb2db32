package core

import (
	"net/http"
	"slices"

	manifest "github.com/joeydtaylor/certipop/pkg/manifest"
	"github.com/joeydtaylor/certipop/pkg/middleware/auth"
)

// withGuard enforces a route's guard block before next runs.
func withGuard(next http.HandlerFunc, a *auth.Middleware, g manifest.Guard) http.HandlerFunc {
	open := !g.RequireAuth && len(g.Users) == 0 && len(g.Roles) == 0
	if open {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if code := authorize(r, a, g); code != http.StatusOK {
			http.Error(w, http.StatusText(code), code)
			return
		}
		next(w, r)
	}
}

// authorize returns 200, 401 or 403. Users are checked before roles; the
// admin role satisfies any role list. Without an auth middleware nothing can
// be proven, so every guarded route is 401.
func authorize(r *http.Request, a *auth.Middleware, g manifest.Guard) int {
	if a == nil {
		return http.StatusUnauthorized
	}
	ctx := r.Context()
	u := a.GetUser(ctx)
	if g.RequireAuth && !a.IsAuthenticated(ctx) {
		return http.StatusUnauthorized
	}
	switch {
	case len(g.Users) > 0:
		if u.Username == "" {
			return http.StatusUnauthorized
		}
		if !slices.Contains(g.Users, u.Username) {
			return http.StatusForbidden
		}
	case len(g.Roles) > 0:
		if u.Username == "" {
			return http.StatusUnauthorized
		}
		if !a.IsAdmin(ctx) && !slices.Contains(g.Roles, u.Role.Name) {
			return http.StatusForbidden
		}
	}
	return http.StatusOK
}
