package auth

import "net/http"

// devUserFromHeaders builds a User from X-Dev-* headers. Only consulted when
// dev_bypass is on.
func devUserFromHeaders(r *http.Request) User {
	name := r.Header.Get("X-Dev-User")
	if name == "" {
		return User{}
	}
	return User{
		Username:             name,
		Role:                 Role{Name: r.Header.Get("X-Dev-Role")},
		AuthenticationSource: AuthenticationSource{Provider: r.Header.Get("X-Dev-Provider")},
	}
}
