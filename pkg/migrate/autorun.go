package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/rentalcrm-backend/pkg/config"
	"github.com/angelmondragon/rentalcrm-backend/pkg/db"
	"github.com/angelmondragon/rentalcrm-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations at boot when running in dev
// with RENTALCRM_DB_AUTO_MIGRATE enabled, or whenever the backend is SQLite.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	sqlite := cfg.KV.Normalized() == config.KVBackendSQLite
	if !sqlite && (!cfg.App.IsDev() || !cfg.DB.AutoMigrate) {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": client.Dialect()})
	logg.Info(ctx, "running goose migrations (auto-run)")

	if err := Run(ctx, sqlDB, client.Dialect(), EmbeddedDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
