package manifest

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"slices"
	"strings"
)

// Route binds a method and path to a named handler.
type Route struct {
	Path    string   `toml:"path"`
	Method  string   `toml:"method"` // default GET
	Guard   Guard    `toml:"guard"`
	Policy  Policy   `toml:"policy"`
	Handler HSpec    `toml:"handler"`
	Tags    []string `toml:"tags"`
}

// Guard is evaluated by core before the handler runs. Users win over Roles
// when both are set.
type Guard struct {
	RequireAuth bool     `toml:"require_auth"`
	Users       []string `toml:"users"`
	Roles       []string `toml:"roles"`
}

type Policy struct {
	TimeoutMS    int   `toml:"timeout_ms"`
	MaxBodyBytes int64 `toml:"max_body_bytes"` // 0: unlimited
}

type HSpec struct {
	Type HandlerType `toml:"type"` // default inproc
	Name string      `toml:"name"`
}

var methods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

// normalize cleans the path and fills defaults in place.
func (r *Route) normalize() error {
	p := strings.TrimSpace(r.Path)
	if p == "" {
		return errors.New("path is required")
	}
	r.Path = path.Clean("/" + strings.TrimPrefix(p, "/"))

	if r.Method = strings.ToUpper(strings.TrimSpace(r.Method)); r.Method == "" {
		r.Method = http.MethodGet
	}
	if r.Handler.Type == "" {
		r.Handler.Type = HandlerInproc
	}
	return nil
}

func (r *Route) validate() error {
	if r.Handler.Type != HandlerInproc {
		return fmt.Errorf("unknown handler type %q", r.Handler.Type)
	}
	if strings.TrimSpace(r.Handler.Name) == "" {
		return errors.New("handler.name required for inproc")
	}
	if !slices.Contains(methods, r.Method) {
		return fmt.Errorf("unsupported method %q", r.Method)
	}
	switch {
	case r.Policy.TimeoutMS < 0:
		return errors.New("policy.timeout_ms must be >= 0")
	case r.Policy.MaxBodyBytes < 0:
		return errors.New("policy.max_body_bytes must be >= 0")
	}
	return nil
}
