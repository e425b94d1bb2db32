package core

import (
	"net/http"

	"github.com/joeydtaylor/certipop/pkg/middleware/auth"
	"github.com/joeydtaylor/certipop/pkg/middleware/logger"
	httpx "github.com/joeydtaylor/certipop/pkg/transport/httpx"
)

type BuildDeps struct {
	Auth     *auth.Middleware
	LogMW    *logger.Middleware
	Metrics  http.Handler
	Router   httpx.Router
	Handlers Handlers
}
