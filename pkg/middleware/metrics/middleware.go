package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/middleware"
	"github.com/joeydtaylor/certipop/pkg/middleware/auth"
)

// Collect records request counts and latency once the handler returns. ca
// may be nil, in which case the role label is empty.
func Collect(ca *auth.Middleware) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			if skipped(r) {
				return
			}
			var role string
			if ca != nil {
				role = ca.GetUser(r.Context()).Role.Name
			}
			code := strconv.Itoa(ww.Status())

			responseTime.Observe(time.Since(start).Seconds())
			totalHttpRequestsFromRole.WithLabelValues(role).Inc()
			totalHttpRequestsToUri.WithLabelValues(code, uriLabel(r), r.Method).Inc()
			totalHttpRequests.WithLabelValues(code, r.Method).Inc()
		})
	}
}
