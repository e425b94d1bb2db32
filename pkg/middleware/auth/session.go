package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// lookupSession forwards the session cookie to auth.session_api and decodes
// the User it answers with.
func (m *Middleware) lookupSession(ctx context.Context, c *http.Cookie) (User, error) {
	if m.sessionAPI == "" {
		return User{}, errors.New("auth.session_api not set")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.sessionAPI, nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.AddCookie(c)

	res, err := m.client.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("session lookup: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return User{}, fmt.Errorf("session lookup: status %d", res.StatusCode)
	}

	var u User
	if err := json.NewDecoder(res.Body).Decode(&u); err != nil {
		return User{}, fmt.Errorf("session lookup: %w", err)
	}
	if u.Username == "" {
		return User{}, errors.New("session lookup: no username")
	}
	return u, nil
}
