package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pqasys/langcsebkg5-sub008/internal/audit"
	"github.com/pqasys/langcsebkg5-sub008/internal/clock"
	"github.com/pqasys/langcsebkg5-sub008/internal/config"
	"github.com/pqasys/langcsebkg5-sub008/internal/migration"
	"github.com/pqasys/langcsebkg5-sub008/internal/observability"
	"github.com/pqasys/langcsebkg5-sub008/internal/pricing"
	"github.com/pqasys/langcsebkg5-sub008/internal/revenue"
	"github.com/pqasys/langcsebkg5-sub008/internal/seed"
	"github.com/pqasys/langcsebkg5-sub008/internal/server"
	"github.com/pqasys/langcsebkg5-sub008/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const migrateTimeout = 2 * time.Minute

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  lingua serve    - migrate, seed and run the HTTP API (default)")
	fmt.Println("  lingua migrate  - apply migrations and seed the plan catalogue, then exit")
}

func main() {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "serve":
		fx.New(baseOptions(), bootstrap(), apiOptions()).Run()
	case "migrate":
		app := fx.New(baseOptions(), bootstrap())
		ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
		defer cancel()
		if err := app.Start(ctx); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := app.Stop(ctx); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func baseOptions() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(func() (*snowflake.Node, error) {
			return snowflake.NewNode(1)
		}),
		db.Module,
		clock.Module,
	)
}

func bootstrap() fx.Option {
	return fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := migration.RunMigrations(sqlDB); err != nil {
			return err
		}
		if cfg.Bootstrap.EnsureDefaultPlans {
			return seed.EnsureDefaultPlans(conn)
		}
		return nil
	})
}

func apiOptions() fx.Option {
	return fx.Options(
		audit.Module,
		revenue.Module,
		pricing.Module,
		server.Module,
	)
}
