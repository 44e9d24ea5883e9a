package metrics

import (
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
)

var Module = fx.Module("metrics",
	fx.Provide(ConfigFrom),
	fx.Provide(Fees),
	fx.Provide(func(cfg Config) (*HTTPMetrics, error) {
		return NewHTTPMetrics(cfg, otel.GetMeterProvider())
	}),
)
