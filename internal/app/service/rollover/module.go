package rollover

import "go.uber.org/fx"

// Module exposes the rollover scheduler and its optional ticker via Fx.
var Module = fx.Options(
	fx.Provide(NewScheduler, NewWorker),
	fx.Invoke(registerWorker),
)
