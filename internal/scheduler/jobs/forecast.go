package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/gridcast/internal/runner"
	"github.com/wonny/gridcast/internal/store"
	"github.com/wonny/gridcast/pkg/config"
	"github.com/wonny/gridcast/pkg/logger"
	"github.com/wonny/gridcast/pkg/redis"
)

// ForecastJob refreshes the forecast run for the configured model on a cron
// schedule: reload the lagged inputs, retrain the grid, predict forward, and
// persist the result as a new run.
type ForecastJob struct {
	cfg    *config.Config
	pool   *pgxpool.Pool
	cache  *redis.Cache
	logger *logger.Logger
}

// NewForecastJob creates a new forecast refresh job
func NewForecastJob(cfg *config.Config, pool *pgxpool.Pool, cache *redis.Cache, log *logger.Logger) *ForecastJob {
	return &ForecastJob{
		cfg:    cfg,
		pool:   pool,
		cache:  cache,
		logger: log,
	}
}

// Name returns the job name
func (j *ForecastJob) Name() string {
	return "forecast_refresh"
}

// Schedule returns the cron schedule (with seconds)
func (j *ForecastJob) Schedule() string {
	return j.cfg.Scheduler.ForecastCron
}

// Run executes one full forecast refresh
func (j *ForecastJob) Run(ctx context.Context) error {
	modelName := j.cfg.Engine.ModelName
	j.logger.WithModel(modelName).Info("Starting scheduled forecast refresh")

	repo := store.NewRepository(j.pool)
	r := runner.New(j.cfg, j.logger, repo, j.cache)

	res, runID, err := r.Forecast(ctx, modelName)
	if err != nil {
		return fmt.Errorf("forecast refresh: %w", err)
	}

	j.logger.WithRun(runID).WithModel(modelName).
		WithField("rows", len(res.Rows)).Info("Forecast refresh completed")

	return nil
}
