package db

import (
	"context"
	"fmt"

	glebarez "github.com/glebarez/sqlite"
	"github.com/smallbiznis/coursepulse/internal/config"
	obslogger "github.com/smallbiznis/coursepulse/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(ConfigFrom),
	fx.Provide(New),
)

// New opens the record store, instruments it with tracing and pool metrics, and
// closes it on shutdown.
func New(lc fx.Lifecycle, cfg Config, appCfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 obslogger.NewGormLogger(obslogger.DefaultGormLoggerConfig()),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Type, err)
	}

	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.Name))); err != nil {
		return nil, fmt.Errorf("register tracing plugin: %w", err)
	}
	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          cfg.Name,
		RefreshInterval: 15,
		StartServer:     false,
		Labels:          map[string]string{"service": appCfg.AppName},
	})); err != nil {
		return nil, fmt.Errorf("register prometheus plugin: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	}
	if cfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if lc != nil {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := sqlDB.PingContext(ctx); err != nil {
					return fmt.Errorf("ping %s: %w", cfg.Type, err)
				}
				log.Info("database connected", zap.String("type", cfg.Type), zap.String("name", cfg.Name))
				return nil
			},
			OnStop: func(context.Context) error {
				return sqlDB.Close()
			},
		})
	}

	return conn, nil
}

// NewTest opens a private in-memory sqlite database using the pure-Go driver.
func NewTest(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	return gorm.Open(glebarez.Open(dsn), &gorm.Config{
		Logger: obslogger.NewGormLogger(obslogger.DefaultGormLoggerConfig()),
	})
}
