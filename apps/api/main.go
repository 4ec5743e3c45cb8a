// @title           Lingua Admin API
// @version         1.0
// @description     Revenue reporting and course monthly pricing
// @BasePath        /api
// @Schemes         http https

package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/pqasys/langcsebkg5-sub008/internal/audit"
	"github.com/pqasys/langcsebkg5-sub008/internal/clock"
	"github.com/pqasys/langcsebkg5-sub008/internal/config"
	"github.com/pqasys/langcsebkg5-sub008/internal/observability"
	"github.com/pqasys/langcsebkg5-sub008/internal/pricing"
	"github.com/pqasys/langcsebkg5-sub008/internal/revenue"
	"github.com/pqasys/langcsebkg5-sub008/internal/server"
	"github.com/pqasys/langcsebkg5-sub008/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		audit.Module,
		revenue.Module,
		pricing.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
