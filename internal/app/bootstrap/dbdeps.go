// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/shipyard/internal/app/system/kubecache"
	"github.com/dalemusser/shipyard/internal/app/system/workers"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is nil unless blocklist_backend is "redis".
	Redis *redis.Client

	// bg collects the long-lived services started by Startup and
	// BuildHandler so Shutdown can stop them.
	bg *background
}

type background struct {
	cleanup *workers.SessionCleanup
	kube    *kubecache.Cache
}
