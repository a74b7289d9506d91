// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/hackreg/internal/app/system/blobstore"
	"github.com/dalemusser/hackreg/internal/app/system/dbconn"
	"github.com/dalemusser/hackreg/internal/app/system/indexes"
	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/dalemusser/hackreg/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// ConnectDB opens MongoDB, Redis and the blob store. A failure closes
// whatever was already opened.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	conn := dbconn.New(appCfg.MongoURI, appCfg.MongoDatabase, dbconn.Options{
		MaxPoolSize:            appCfg.MongoMaxPoolSize,
		MinPoolSize:            appCfg.MongoMinPoolSize,
		ServerSelectionTimeout: 10 * time.Second,
	}, logger)

	db, err := conn.EnsureConnected(ctx)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}

	rdb, err := ratelimit.Dial(ctx, appCfg.RedisURL)
	if err != nil {
		_ = conn.Close(ctx)
		return DBDeps{}, fmt.Errorf("connect redis: %w", err)
	}

	blobs, err := blobstore.NewS3(ctx, appCfg.Blob)
	if err != nil {
		_ = rdb.Close()
		_ = conn.Close(ctx)
		return DBDeps{}, fmt.Errorf("blob store: %w", err)
	}

	logger.Info("backends connected",
		zap.String("database", appCfg.MongoDatabase),
		zap.String("bucket", appCfg.Blob.Bucket))

	return DBDeps{
		Conn:          conn,
		MongoClient:   conn.Client(),
		MongoDatabase: db,
		Redis:         rdb,
		Blobs:         blobs,
	}, nil
}

// EnsureSchema installs collection validators and indexes. The unique
// indexes are what make team-name and email uniqueness hold under races.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure validators failed", zap.Error(err))
		return err
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	return nil
}
