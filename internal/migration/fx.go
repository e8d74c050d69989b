package migration

import (
	"github.com/smallbiznis/coursepulse/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.DBAutoMigrate {
			log.Info("schema migrations disabled")
			return nil
		}
		if err := Run(conn); err != nil {
			return err
		}
		log.Info("schema migrations applied", zap.String("dialect", conn.Dialector.Name()))
		return nil
	}),
)
