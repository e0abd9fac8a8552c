package migration

import (
	completiondomain "github.com/smallbiznis/factuur/internal/completion/domain"
	"github.com/smallbiznis/factuur/internal/config"
	"github.com/smallbiznis/factuur/internal/seed"
	vatratedomain "github.com/smallbiznis/factuur/internal/vatrate/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// The embedded migrations are postgres-only; sqlite (tests,
			// embedded use) gets its schema from the models.
			if err := conn.AutoMigrate(&vatratedomain.VatRate{}, &completiondomain.CompletionRun{}); err != nil {
				return err
			}
		}
		return seed.EnsureVatRates(conn)
	}),
)
