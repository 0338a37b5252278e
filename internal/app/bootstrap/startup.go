// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	metricsstore "github.com/dalemusser/crushnote/internal/app/store/metrics"
	"github.com/dalemusser/crushnote/internal/app/store/oauthstate"
	"github.com/dalemusser/crushnote/internal/app/system/metrics"
	"github.com/dalemusser/crushnote/internal/app/system/timeouts"
	"github.com/dalemusser/crushnote/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// oauthSweepInterval is how often abandoned OAuth states are purged.
const oauthSweepInterval = 5 * time.Minute

// stateSweeper is started here and stopped in Shutdown.
var stateSweeper *workers.Sweeper

// Startup runs once after the schema is in place and before the handler is
// built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase
	fetch := func(ctx context.Context) metricsstore.Counts {
		return metricsstore.FetchCounts(ctx, db)
	}
	if err := metrics.RegisterCounts(fetch, timeouts.Short()); err != nil {
		return err
	}

	stateSweeper = workers.NewSweeper("oauth_states", oauthstate.New(db), oauthSweepInterval, logger)
	stateSweeper.Start()

	t := timeouts.Current()
	logger.Info("crushnote ready",
		zap.String("time_zone", appCfg.Location.String()),
		zap.Int("submission_last_day", appCfg.SubmissionLastDay),
		zap.Int("letters_per_day", appCfg.Limits.LettersPerDay),
		zap.Duration("timeout_short", t.Short),
		zap.Duration("timeout_medium", t.Medium))
	return nil
}
