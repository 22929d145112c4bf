package migrate

import (
	"context"
	"fmt"

	"github.com/catalyst/moodle-availability-paypal/pkg/config"
	"github.com/catalyst/moodle-availability-paypal/pkg/db"
	"github.com/catalyst/moodle-availability-paypal/pkg/logger"
)

// MaybeRunDev applies pending migrations at startup, but only in dev with
// AVAILPAYPAL_APP_AUTO_MIGRATE set. Production schemas move through
// cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.App.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": DefaultDir}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running Goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}
