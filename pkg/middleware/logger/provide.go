package logger

import "go.uber.org/zap"

// Middleware writes one access-log line per request.
type Middleware struct {
	access *zap.Logger
}

// NewMiddleware uses access for request lines; nil means a no-op logger.
func NewMiddleware(access *zap.Logger) *Middleware {
	if access == nil {
		access = zap.NewNop()
	}
	return &Middleware{access: access}
}

func ProvideLoggerMiddleware(cfg Config) *Middleware {
	return NewMiddleware(NewLog(cfg, "http-access.log"))
}

func ProvideLogger(cfg Config) *zap.Logger { return NewLog(cfg, "system.log") }
