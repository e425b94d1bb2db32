// bundlefx/bundlefx.go
package bundlefx

import (
	"context"

	"github.com/joeydtaylor/certipop/pkg/middleware/auth"
	"github.com/joeydtaylor/certipop/pkg/middleware/logger"
	"github.com/joeydtaylor/certipop/pkg/middleware/metrics"
	"go.uber.org/fx"
)

// Module provides the middleware stack. It expects auth.Config and
// logger.Config in the graph.
var Module = fx.Options(
	fx.Provide(provideAuth),
	fx.Provide(logger.ProvideLoggerMiddleware),
	fx.Provide(logger.ProvideLogger),
	fx.Provide(fx.Annotate(metrics.ProvideMetrics, fx.ResultTags(`name:"metrics"`))),
)

func provideAuth(lc fx.Lifecycle, cfg auth.Config) *auth.Middleware {
	m := auth.New(cfg)
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		m.Close()
		return nil
	}})
	return m
}
