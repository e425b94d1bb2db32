package auth

import "context"

type Role struct {
	Name string `json:"name"`
}

type AuthenticationSource struct {
	Provider string `json:"provider"`
}

// User is the caller as reported by the session API, an assertion or dev
// headers.
type User struct {
	Username             string               `json:"username"`
	AuthenticationSource AuthenticationSource `json:"authenticationSource"`
	Role                 Role                 `json:"role"`
}

type ctxKey int

const userKey ctxKey = iota

// ContextWithUser attaches u to ctx the same way the middleware does.
func ContextWithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func userFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey).(User)
	return u, ok
}
