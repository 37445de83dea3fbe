package zone

import "go.uber.org/fx"

var Module = fx.Module("zone.repository",
	fx.Provide(Provide),
)
