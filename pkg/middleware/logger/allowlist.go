package logger

import (
	"net/http"
	"strings"
	"sync"
)

const maxLoggedBody = 64 << 10

// Paths whose JSON request bodies may be logged. Empty by default:
// decode-extract bodies carry whole documents.
var (
	bodyLogMu    sync.RWMutex
	bodyLogPaths = map[string]bool{}
)

// AddBodyLogPaths extends the allowlist.
func AddBodyLogPaths(paths ...string) {
	bodyLogMu.Lock()
	defer bodyLogMu.Unlock()
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			bodyLogPaths[p] = true
		}
	}
}

func allowlisted(path string) bool {
	bodyLogMu.RLock()
	defer bodyLogMu.RUnlock()
	return bodyLogPaths[path]
}

func shouldLogBody(r *http.Request, body []byte) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return false
	}
	return len(body) > 0 && len(body) <= maxLoggedBody &&
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") &&
		allowlisted(r.URL.Path)
}
