package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type assertionClaims struct {
	jwt.RegisteredClaims
	UID   string   `json:"uid"`
	Role  string   `json:"role"`
	Roles []string `json:"roles"`
}

// verifyAssertion checks an RS256 assertion against the cached key and the
// configured issuer and audience.
func (m *Middleware) verifyAssertion(raw string) (User, error) {
	pub := m.keys.key()
	if pub == nil {
		return User{}, errors.New("assertion key not loaded")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(m.assertLeeway),
	}
	if m.assertIssuer != "" {
		opts = append(opts, jwt.WithIssuer(m.assertIssuer))
	}
	if m.assertAudience != "" {
		opts = append(opts, jwt.WithAudience(m.assertAudience))
	}

	var c assertionClaims
	if _, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return pub, nil }, opts...); err != nil {
		return User{}, fmt.Errorf("invalid assertion: %w", err)
	}

	name := c.UID
	if name == "" {
		name = c.Subject
	}
	if name == "" {
		return User{}, errors.New("assertion has neither uid nor sub")
	}
	role := c.Role
	if role == "" && len(c.Roles) > 0 {
		role = c.Roles[0]
	}
	return User{
		Username:             name,
		Role:                 Role{Name: role},
		AuthenticationSource: AuthenticationSource{Provider: "assert"},
	}, nil
}
