package records

import (
	"github.com/smallbiznis/coursepulse/internal/records/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("records",
	fx.Provide(repository.NewFetcher),
)
