// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	collegestore "github.com/dalemusser/hackreg/internal/app/store/colleges"
	"github.com/dalemusser/hackreg/internal/app/system/collegeseed"
	"github.com/dalemusser/hackreg/internal/app/system/submission"
	"github.com/dalemusser/hackreg/internal/app/system/timeouts"
	"github.com/dalemusser/hackreg/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// spoolCleanup is started in Startup and stopped in Shutdown.
var spoolCleanup *workers.SpoolCleanup

// Startup runs one-time initialization after backends and schema are
// ready, before the handler is built. It installs the configured
// timeouts, imports the college seed file if any, and starts the spool
// cleanup worker.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(appCfg.Timeouts)

	if err := seedColleges(ctx, collegestore.New(deps.MongoDatabase), appCfg.CollegeSeedFile, logger); err != nil {
		return err
	}

	// A spool file older than a few submission deadlines has no request
	// left to remove it.
	spoolCleanup = workers.NewSpoolCleanup(appCfg.UploadTempDir, submission.SpoolPrefix,
		10*time.Minute, 4*timeouts.Submit(), logger)
	spoolCleanup.Start()
	return nil
}

type collegeImporter interface {
	Import(ctx context.Context, names []string) (collegestore.ImportResult, error)
}

// seedColleges imports path into the directory. Names already present
// are skipped, so restarting with the same file is a no-op.
func seedColleges(ctx context.Context, dir collegeImporter, path string, logger *zap.Logger) error {
	if path == "" {
		return nil
	}
	names, err := collegeseed.Load(path)
	if err != nil {
		logger.Error("read college seed file failed", zap.String("path", path), zap.Error(err))
		return err
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Batch(), logger, "college seed import")
	defer cancel()

	res, err := dir.Import(ctx, names)
	if err != nil {
		logger.Error("college seed import failed", zap.Error(err))
		return err
	}
	logger.Info("college seed imported",
		zap.String("path", path),
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped))
	return nil
}
