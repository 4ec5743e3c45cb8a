package revenue

import (
	"github.com/pqasys/langcsebkg5-sub008/internal/revenue/repository"
	"github.com/pqasys/langcsebkg5-sub008/internal/revenue/service"
	"go.uber.org/fx"
)

var Module = fx.Module("revenue.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
