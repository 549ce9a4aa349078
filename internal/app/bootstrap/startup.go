// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/shipyard/internal/app/resources"
	"github.com/dalemusser/shipyard/internal/app/store/sessions"
	userstore "github.com/dalemusser/shipyard/internal/app/store/users"
	"github.com/dalemusser/shipyard/internal/app/system/timeouts"
	"github.com/dalemusser/shipyard/internal/app/system/workers"
	"github.com/dalemusser/shipyard/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It loads
// shared templates, applies timeouts, seeds the first admin and starts the
// activity session cleanup worker.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{Logout: appCfg.LogoutTimeout})
	n := timeouts.ConfigureFromEnv()
	cur := timeouts.Current()
	logger.Info("timeouts configured",
		zap.Int("env_overrides", n),
		zap.Duration("short", cur.Short),
		zap.Duration("medium", cur.Medium),
		zap.Duration("logout", cur.Logout))

	resources.LoadSharedTemplates()

	if err := ensureInitialAdmin(ctx, userstore.New(deps.MongoDatabase), appCfg.AdminUsername, appCfg.AdminPassword, logger); err != nil {
		return err
	}

	if deps.bg != nil {
		w := workers.NewSessionCleanup(sessions.New(deps.MongoDatabase), logger,
			appCfg.SessionCleanupInterval, appCfg.SessionInactiveThreshold)
		w.Start()
		deps.bg.cleanup = w
	}

	return nil
}

// adminStore is the part of the user store used to seed the first admin.
type adminStore interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, u models.User, password string) (models.User, error)
}

// ensureInitialAdmin creates an admin when the console has no users yet.
// A blank username disables seeding.
func ensureInitialAdmin(ctx context.Context, users adminStore, username, password string, logger *zap.Logger) error {
	if username == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	n, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return nil
	}

	u, err := users.Create(ctx, models.User{Username: username, Role: models.RoleAdmin}, password)
	if err != nil {
		return fmt.Errorf("create initial admin: %w", err)
	}
	logger.Info("created initial admin", zap.String("username", u.Username), zap.String("user_id", u.ID.Hex()))
	return nil
}
