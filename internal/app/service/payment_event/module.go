package payment_event

import (
	"context"

	"go.uber.org/fx"
)

func register(lc fx.Lifecycle, t *Translator) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			t.Wait()
			return nil
		},
	})
}

// Module exposes the Stripe event translator via Fx.
var Module = fx.Options(
	fx.Provide(NewTranslator),
	fx.Invoke(register),
)
