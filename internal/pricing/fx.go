package pricing

import (
	"github.com/pqasys/langcsebkg5-sub008/internal/pricing/repository"
	"github.com/pqasys/langcsebkg5-sub008/internal/pricing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
