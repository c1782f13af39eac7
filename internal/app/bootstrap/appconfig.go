// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, CORS); everything about the
// registry itself lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Token authentication
	JWTSecret string        // HMAC signing secret, at least 32 characters
	JWTIssuer string        // "iss" claim written into and required on every token
	JWTTTL    time.Duration // lifetime of an issued token

	// Attachments
	GridFSBucket   string // GridFS bucket holding photos and credential scans
	UploadMaxBytes int64  // per-file upload ceiling

	// Applicant lifecycle
	PendingTTL        time.Duration // how long an undecided registration is kept
	RejectedRetention time.Duration // how long a rejected registration is kept

	// Request timeouts; zero keeps the built-in default
	UploadTimeout time.Duration
	ExportTimeout time.Duration

	// Orphaned attachment sweep
	BlobSweepInterval time.Duration // 0 disables the sweep
	BlobSweepGrace    time.Duration // blobs younger than this are never swept

	// Rate limits, requests per minute per client IP
	LoginRateLimit    int
	RegisterRateLimit int

	// Audit logging
	AuditLogAuth  string // "all", "db", "log", or "off"
	AuditLogAdmin string // "all", "db", "log", or "off"

	// Bootstrap administrator, created on startup when missing
	AdminUsername string
	AdminPassword string
}
