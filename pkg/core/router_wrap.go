package core

import (
	"net/http"

	manifest "github.com/joeydtaylor/certipop/pkg/manifest"
)

// wrapRoute resolves a route's handler spec. Misconfigured routes still mount
// and answer 500 so the rest of the manifest keeps serving.
func wrapRoute(rt manifest.Route, d BuildDeps) http.HandlerFunc {
	if rt.Handler.Type != manifest.HandlerInproc {
		return failing("unknown handler type")
	}
	h, ok := d.Handlers.Lookup(rt.Handler.Name)
	if !ok {
		return failing("handler not found")
	}
	return h
}

func failing(msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, msg, http.StatusInternalServerError)
	}
}
