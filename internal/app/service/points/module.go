package points

import "go.uber.org/fx"

// Module exposes the points manager via Fx.
var Module = fx.Options(
	fx.Provide(NewManager),
)
