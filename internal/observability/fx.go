package observability

import (
	"github.com/agrocoop/agrocoop/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(metrics.NewHTTPMetrics),
	fx.Invoke(ensureSchedulerMetrics),
)

func ensureSchedulerMetrics() {
	metrics.Scheduler()
}
