package config

import "go.uber.org/fx"

func provideCurrencyConfigHolder() (*CurrencyConfigHolder, error) {
	return NewCurrencyConfigHolder(DefaultCurrencyConfigPaths()...)
}

var Module = fx.Module("config",
	fx.Provide(
		Load,
		provideCurrencyConfigHolder,
	),
)
