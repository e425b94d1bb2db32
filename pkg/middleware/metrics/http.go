package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ProvideMetrics serves the default registry on /metrics.
func ProvideMetrics() http.Handler { return promhttp.Handler() }
