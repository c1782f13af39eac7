// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/registryhub/internal/app/system/metrics"
	"github.com/dalemusser/registryhub/internal/app/system/ratelimit"
	"github.com/dalemusser/registryhub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// WAFFLE passes DBDeps by value to every hook, so state created during
// Startup and needed again at Shutdown hangs off the Runtime pointer.
type DBDeps struct {
	RegistryMongoClient   *mongo.Client
	RegistryMongoDatabase *mongo.Database

	Runtime *Runtime
}

// Runtime carries the long-lived services shared between lifecycle hooks.
type Runtime struct {
	Metrics         *metrics.Metrics
	BlobSweep       *workers.BlobSweep
	LoginLimiter    *ratelimit.LoginLimiter
	RegisterLimiter *ratelimit.Limiter
}
