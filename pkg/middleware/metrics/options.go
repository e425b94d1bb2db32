package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

var (
	skipMu sync.RWMutex
	skip   = map[string]bool{"/metrics": true, "/ping": true}
)

// AddMetricsSkipPaths excludes more paths from the HTTP collectors.
func AddMetricsSkipPaths(paths ...string) {
	skipMu.Lock()
	defer skipMu.Unlock()
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			skip[p] = true
		}
	}
}

func skipped(r *http.Request) bool {
	skipMu.RLock()
	defer skipMu.RUnlock()
	return skip[r.URL.Path]
}

// uriLabel prefers the matched chi pattern so path parameters do not blow
// up label cardinality. Unmatched requests share one label.
func uriLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
