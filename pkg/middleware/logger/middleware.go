package logger

import (
	"bytes"
	"io"
	"net/http"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/certipop/pkg/middleware/auth"
	"go.uber.org/zap"
)

// Middleware logs one "request" line per request once the handler returns.
// The query string is never logged: it carries NRNs.
func (m *Middleware) Middleware(ca *auth.Middleware) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := captureBody(r)
			ww := chimd.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("dateTime", start.UTC().Format(time.RFC1123)),
				zap.String("requestId", chimd.GetReqID(r.Context())),
				zap.String("httpScheme", scheme(r)),
				zap.String("httpProto", r.Proto),
				zap.String("httpMethod", r.Method),
				zap.String("remoteAddr", r.RemoteAddr),
				zap.String("uri", r.URL.Path),
				zap.Duration("lat", time.Since(start)),
				zap.Int("responseSize", ww.BytesWritten()),
				zap.Int("status", ww.Status()),
			}
			fields = append(fields, callerFields(ca, r)...)
			if shouldLogBody(r, body) {
				fields = append(fields, zap.ByteString("requestData", body))
			}
			m.access.Info("request", fields...)
		})
	}
}

// captureBody buffers and restores the body of allowlisted paths only.
func captureBody(r *http.Request) []byte {
	if r.Body == nil || !allowlisted(r.URL.Path) {
		return nil
	}
	b, err := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(b))
	if err != nil {
		return nil
	}
	return b
}

func callerFields(ca *auth.Middleware, r *http.Request) []zap.Field {
	var u auth.User
	authed := false
	if ca != nil {
		u = ca.GetUser(r.Context())
		authed = ca.IsAuthenticated(r.Context())
	}
	return []zap.Field{
		zap.Bool("isAuthenticated", authed),
		zap.String("username", u.Username),
		zap.String("role", u.Role.Name),
		zap.String("authenticationProvider", u.AuthenticationSource.Provider),
	}
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
