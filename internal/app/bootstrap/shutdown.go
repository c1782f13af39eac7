// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background work and then tears down DB connections.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if rt := deps.Runtime; rt != nil {
		if rt.BlobSweep != nil {
			rt.BlobSweep.Stop()
		}
		if rt.LoginLimiter != nil {
			rt.LoginLimiter.Stop()
		}
		if rt.RegisterLimiter != nil {
			rt.RegisterLimiter.Stop()
		}
	}
	if deps.RegistryMongoClient != nil {
		logger.Info("disconnecting RegistryHub MongoDB client")
		if err := deps.RegistryMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
