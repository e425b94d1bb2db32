package core

import "net/http"

// Handlers maps the handler.name of inproc routes to their implementation.
// Each service package contributes its own set; see Merge.
type Handlers map[string]http.HandlerFunc

// Register makes a handler available under a name referenced in the manifest.
func (h Handlers) Register(name string, fn http.HandlerFunc) {
	h[name] = fn
}

// Lookup retrieves a registered in-proc handler by name.
func (h Handlers) Lookup(name string) (http.HandlerFunc, bool) {
	fn, ok := h[name]
	return fn, ok
}

// Merge folds sets together; later sets win on name clashes.
func Merge(sets ...Handlers) Handlers {
	out := Handlers{}
	for _, s := range sets {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}
