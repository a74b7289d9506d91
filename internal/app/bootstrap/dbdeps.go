// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/hackreg/internal/app/system/blobstore"
	"github.com/dalemusser/hackreg/internal/app/system/dbconn"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the backends every request path depends on.
type DBDeps struct {
	Conn          *dbconn.Conn
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Redis *redis.Client
	Blobs *blobstore.S3
}
