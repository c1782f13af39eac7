// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	applicantstore "github.com/dalemusser/registryhub/internal/app/store/applicants"
	attachmentstore "github.com/dalemusser/registryhub/internal/app/store/attachments"
	userstore "github.com/dalemusser/registryhub/internal/app/store/users"
	"github.com/dalemusser/registryhub/internal/app/system/ratelimit"
	"github.com/dalemusser/registryhub/internal/app/system/timeouts"
	"github.com/dalemusser/registryhub/internal/app/system/workers"
	"github.com/dalemusser/registryhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Upload: appCfg.UploadTimeout,
		Export: appCfg.ExportTimeout,
	})

	if err := ensureAdmin(ctx, deps, appCfg.AdminUsername, appCfg.AdminPassword, logger); err != nil {
		return err
	}

	rt := deps.Runtime
	db := deps.RegistryMongoDatabase

	rt.Metrics.WatchApplicants(db, timeouts.Medium())

	rt.LoginLimiter = ratelimit.NewLoginLimiter(appCfg.LoginRateLimit)
	rt.RegisterLimiter = ratelimit.New(appCfg.RegisterRateLimit, time.Minute)

	if appCfg.BlobSweepInterval > 0 {
		sweep := workers.NewBlobSweep(
			attachmentstore.New(db, appCfg.GridFSBucket),
			[]workers.ReferenceSource{
				applicantstore.NewPending(db, appCfg.PendingTTL),
				applicantstore.NewRegistry(db),
			},
			logger,
			appCfg.BlobSweepInterval,
			appCfg.BlobSweepGrace,
		)
		sweep.OnSwept(rt.Metrics.AddBlobsSwept)
		sweep.Start()
		rt.BlobSweep = sweep
	}

	return nil
}

// ensureAdmin creates the bootstrap administrator when a username is
// configured and no user with that name exists yet. Existing accounts,
// including their password, are left alone.
func ensureAdmin(ctx context.Context, deps DBDeps, username, password string, logger *zap.Logger) error {
	if username == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	created, err := userstore.New(deps.RegistryMongoDatabase).EnsureUser(ctx, username, password, models.RoleAdmin)
	if err != nil {
		logger.Error("bootstrap admin failed", zap.String("username", username), zap.Error(err))
		return err
	}
	if created {
		logger.Info("created bootstrap admin", zap.String("username", username))
	}
	return nil
}
