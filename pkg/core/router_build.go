package core

import (
	"net/http"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	manifest "github.com/joeydtaylor/certipop/pkg/manifest"
	hmetrics "github.com/joeydtaylor/certipop/pkg/middleware/metrics"
)

// BuildRouter mounts every manifest route on d.Router behind the shared
// middleware chain and returns the finished handler.
func BuildRouter(cfg manifest.Config, d BuildDeps) http.Handler {
	r := d.Router
	r.Use(chimd.RequestID, chimd.Recoverer, chimd.Heartbeat("/ping"))
	if d.Auth != nil {
		r.Use(d.Auth.Middleware())
	}
	if d.LogMW != nil {
		r.Use(d.LogMW.Middleware(d.Auth))
	}
	r.Use(hmetrics.Collect(d.Auth))

	if d.Metrics != nil {
		r.Handle(http.MethodGet, "/metrics", d.Metrics)
	}
	for _, rt := range cfg.Routes {
		r.Handle(rt.Method, rt.Path, routeHandler(rt, d))
	}
	return r.Mux()
}

// routeHandler applies, outermost first: guard, timeout, body limit.
func routeHandler(rt manifest.Route, d BuildDeps) http.HandlerFunc {
	h := wrapRoute(rt, d)
	if n := rt.Policy.MaxBodyBytes; n > 0 {
		h = withBodyLimit(h, n)
	}
	if ms := rt.Policy.TimeoutMS; ms > 0 {
		h = withTimeout(h, time.Duration(ms)*time.Millisecond)
	}
	return withGuard(h, d.Auth, rt.Guard)
}
