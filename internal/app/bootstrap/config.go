// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	attachmentstore "github.com/dalemusser/registryhub/internal/app/store/attachments"
	"github.com/dalemusser/registryhub/internal/app/system/auth"
	"github.com/dalemusser/registryhub/internal/app/system/limits"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for RegistryHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: REGISTRYHUB_MONGO_URI, REGISTRYHUB_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "registry_hub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Token authentication
	{Name: "jwt_secret", Default: "", Desc: "HMAC secret for signing access tokens (at least 32 characters)"},
	{Name: "jwt_issuer", Default: "registryhub", Desc: "Issuer claim for access tokens"},
	{Name: "jwt_ttl", Default: "1h", Desc: "Access token lifetime (e.g., 1h, 30m)"},

	// Attachments
	{Name: "gridfs_bucket", Default: attachmentstore.DefaultBucket, Desc: "GridFS bucket for applicant attachments"},
	{Name: "upload_max_bytes", Default: int(limits.DefaultMaxUploadBytes), Desc: "Maximum size of a single uploaded file in bytes"},

	// Applicant lifecycle
	{Name: "pending_ttl", Default: "720h", Desc: "How long an undecided registration is kept (e.g., 720h)"},
	{Name: "rejected_retention", Default: "168h", Desc: "How long a rejected registration is kept before removal"},

	// Request timeouts
	{Name: "upload_timeout", Default: "30s", Desc: "Timeout for requests that store attachments"},
	{Name: "export_timeout", Default: "60s", Desc: "Timeout for building the registry spreadsheet"},

	// Orphaned attachment sweep
	{Name: "blob_sweep_interval", Default: "1h", Desc: "How often unreferenced attachments are removed (0 disables)"},
	{Name: "blob_sweep_grace", Default: "1h", Desc: "Minimum age of an attachment before it may be swept"},

	// Rate limits
	{Name: "login_rate_limit", Default: 10, Desc: "Login attempts per minute per IP"},
	{Name: "register_rate_limit", Default: 20, Desc: "Public registration and self-service requests per minute per IP"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Applicant event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Bootstrap administrator
	{Name: "admin_username", Default: "", Desc: "Username of the administrator created on startup when missing"},
	{Name: "admin_password", Default: "", Desc: "Password of the bootstrap administrator"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// WAFFLE_* and REGISTRYHUB_* environment variables and command-line flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "REGISTRYHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret: appValues.String("jwt_secret"),
		JWTIssuer: appValues.String("jwt_issuer"),
		JWTTTL:    appValues.Duration("jwt_ttl", time.Hour),

		GridFSBucket:   appValues.String("gridfs_bucket"),
		UploadMaxBytes: int64(appValues.Int("upload_max_bytes")),

		PendingTTL:        appValues.Duration("pending_ttl", 30*24*time.Hour),
		RejectedRetention: appValues.Duration("rejected_retention", 7*24*time.Hour),

		UploadTimeout: appValues.Duration("upload_timeout", 30*time.Second),
		ExportTimeout: appValues.Duration("export_timeout", 60*time.Second),

		BlobSweepInterval: appValues.Duration("blob_sweep_interval", time.Hour),
		BlobSweepGrace:    appValues.Duration("blob_sweep_grace", time.Hour),

		LoginRateLimit:    appValues.Int("login_rate_limit"),
		RegisterRateLimit: appValues.Int("register_rate_limit"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		AdminUsername: appValues.String("admin_username"),
		AdminPassword: appValues.String("admin_password"),
	}

	if appCfg.GridFSBucket == "" {
		appCfg.GridFSBucket = attachmentstore.DefaultBucket
	}
	if appCfg.UploadMaxBytes <= 0 {
		appCfg.UploadMaxBytes = limits.DefaultMaxUploadBytes
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// RegistryHub checks the MongoDB URI format, the token secret strength and
// the bootstrap administrator pair before anything connects.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if len(appCfg.JWTSecret) < auth.MinSecretLength {
		return fmt.Errorf("jwt_secret must be at least %d characters", auth.MinSecretLength)
	}
	if appCfg.JWTTTL <= 0 {
		return fmt.Errorf("jwt_ttl must be positive, got %s", appCfg.JWTTTL)
	}
	if appCfg.PendingTTL <= 0 {
		return fmt.Errorf("pending_ttl must be positive, got %s", appCfg.PendingTTL)
	}

	if (appCfg.AdminUsername == "") != (appCfg.AdminPassword == "") {
		return fmt.Errorf("admin_username and admin_password must be set together")
	}

	return nil
}
