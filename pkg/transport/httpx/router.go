package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router is the routing surface core.BuildRouter mounts routes on.
type Router interface {
	Use(mw ...func(http.Handler) http.Handler)
	Handle(method, path string, h http.Handler)
	Mux() http.Handler
}

type chiRouter struct{ mux *chi.Mux }

// NewChi returns a Router backed by a fresh chi.Mux.
func NewChi() Router { return &chiRouter{mux: chi.NewRouter()} }

func (c *chiRouter) Use(mw ...func(http.Handler) http.Handler) { c.mux.Use(mw...) }

func (c *chiRouter) Handle(method, path string, h http.Handler) { c.mux.Method(method, path, h) }

func (c *chiRouter) Mux() http.Handler { return c.mux }
