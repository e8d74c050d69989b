package timewindow

import (
	"github.com/smallbiznis/coursepulse/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("timewindow",
	fx.Provide(newResolverFromConfig),
)

func newResolverFromConfig(cfg config.Config) *Resolver {
	return NewResolver(cfg.Analytics.Location(), cfg.Analytics.EpochFloor)
}
