// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	attachmentsfeature "github.com/dalemusser/registryhub/internal/app/features/attachments"
	auditlogfeature "github.com/dalemusser/registryhub/internal/app/features/auditlog"
	errorsfeature "github.com/dalemusser/registryhub/internal/app/features/errors"
	exportfeature "github.com/dalemusser/registryhub/internal/app/features/export"
	healthfeature "github.com/dalemusser/registryhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/registryhub/internal/app/features/login"
	registerfeature "github.com/dalemusser/registryhub/internal/app/features/register"
	registryfeature "github.com/dalemusser/registryhub/internal/app/features/registry"
	reviewfeature "github.com/dalemusser/registryhub/internal/app/features/review"
	applicantstore "github.com/dalemusser/registryhub/internal/app/store/applicants"
	attachmentstore "github.com/dalemusser/registryhub/internal/app/store/attachments"
	auditstore "github.com/dalemusser/registryhub/internal/app/store/audit"
	userstore "github.com/dalemusser/registryhub/internal/app/store/users"
	"github.com/dalemusser/registryhub/internal/app/system/auditlog"
	"github.com/dalemusser/registryhub/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed.
//
// Layout:
//
//	/health            liveness and database ping
//	/metrics           Prometheus scrape endpoint
//	/api/auth          login and current user
//	/api/applicants    intake, review, registry, attachments and export
//	/api/audit         audit trail (admins)
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.RegistryMongoDatabase
	rt := deps.Runtime

	tokens, err := auth.NewTokenManager(appCfg.JWTSecret, appCfg.JWTIssuer, appCfg.JWTTTL)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}

	// The fetcher reloads the user on every request so a disabled account or
	// a role change takes effect before the token expires.
	guard := auth.NewGuard(tokens, userstore.NewFetcher(db), logger)

	// Stores shared by the applicant features.
	pending := applicantstore.NewPending(db, appCfg.PendingTTL)
	registry := applicantstore.NewRegistry(db)
	blobs := attachmentstore.New(db, appCfg.GridFSBucket)
	users := userstore.New(db)

	errLog := errorsfeature.NewErrorLogger(logger)
	events := auditstore.New(db)
	auditLog := auditlog.New(events, logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Loads the bearer-token user into context when present.
	r.Use(guard.LoadBearerUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.RegistryMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", rt.Metrics.Handler())

	// Authentication
	loginHandler := loginfeature.NewHandler(users, tokens, rt.LoginLimiter, errLog, auditLog, rt.Metrics, logger)
	r.Mount("/api/auth", loginfeature.Routes(loginHandler))

	auditHandler := auditlogfeature.NewHandler(events, users, errLog, logger)
	r.Mount("/api/audit", auditlogfeature.Routes(auditHandler))

	var publicLimit func(http.Handler) http.Handler
	if rt.RegisterLimiter != nil {
		publicLimit = rt.RegisterLimiter.Middleware
	}

	r.Route("/api/applicants", func(r chi.Router) {
		registerfeature.MountRoutes(r,
			registerfeature.NewHandler(pending, registry, blobs, appCfg.UploadMaxBytes, errLog, auditLog, rt.Metrics, logger),
			publicLimit)

		reviewfeature.MountRoutes(r,
			reviewfeature.NewHandler(pending, registry, appCfg.RejectedRetention, errLog, auditLog, rt.Metrics, logger))

		exportfeature.MountRoutes(r,
			exportfeature.NewHandler(registry, errLog, auditLog, rt.Metrics, logger))

		attachmentsfeature.MountRoutes(r,
			attachmentsfeature.NewHandler(blobs, errLog, logger))

		registryfeature.MountRoutes(r,
			registryfeature.NewHandler(registry, blobs, appCfg.UploadMaxBytes, errLog, auditLog, rt.Metrics, logger),
			publicLimit)
	})

	return r, nil
}
