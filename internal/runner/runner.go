// Package runner wires the file providers, the engine, and the store into
// the complete train→predict pipeline shared by the CLI and the scheduler.
package runner

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/wonny/gridcast/internal/contracts"
	"github.com/wonny/gridcast/internal/dataset"
	"github.com/wonny/gridcast/internal/engine"
	"github.com/wonny/gridcast/internal/models"
	"github.com/wonny/gridcast/internal/store"
	"github.com/wonny/gridcast/pkg/config"
	"github.com/wonny/gridcast/pkg/logger"
	"github.com/wonny/gridcast/pkg/redis"
)

// WindowFile is the window table filename expected under the data directory
const WindowFile = "windows.csv"

// Runner executes full runs against the configured data directory
// ⭐ SSOT: 실행 파이프라인 조립은 여기서만
type Runner struct {
	cfg   *config.Config
	log   *logger.Logger
	repo  *store.Repository // nil = don't persist
	cache *redis.Cache      // nil = no caching
}

// New creates a runner. repo and cache are optional; without a repo results
// are returned but not persisted.
func New(cfg *config.Config, log *logger.Logger, repo *store.Repository, cache *redis.Cache) *Runner {
	return &Runner{cfg: cfg, log: log, repo: repo, cache: cache}
}

// Backtest trains across the window grid and predicts every validation
// window. Returns the result and, when a store is attached, the run id.
func (r *Runner) Backtest(ctx context.Context, modelName string) (*contracts.PredictionResult, int64, error) {
	datasets, spec, _, err := r.loadInputs()
	if err != nil {
		return nil, 0, err
	}

	coll, predictFn, err := r.train(ctx, modelName, datasets, spec)
	if err != nil {
		return nil, 0, err
	}

	predictor := engine.NewPredictor(r.log.Zerolog())
	res, err := predictor.Backtest(ctx, []*contracts.ModelCollection{coll}, []contracts.PredictFunc{predictFn})
	if err != nil {
		return nil, 0, err
	}

	runID, err := r.persist(ctx, modelName, res)
	return res, runID, err
}

// Forecast trains across the window grid and predicts past the end of the
// observed data using forecast_h<horizon>.csv feature sets.
func (r *Runner) Forecast(ctx context.Context, modelName string) (*contracts.PredictionResult, int64, error) {
	datasets, spec, horizons, err := r.loadInputs()
	if err != nil {
		return nil, 0, err
	}

	forecastData, err := dataset.LoadForecastDir(r.cfg.Engine.DataDir, horizons)
	if err != nil {
		return nil, 0, err
	}

	coll, predictFn, err := r.train(ctx, modelName, datasets, spec)
	if err != nil {
		return nil, 0, err
	}

	predictor := engine.NewPredictor(r.log.Zerolog())
	res, err := predictor.Forecast(ctx,
		[]*contracts.ModelCollection{coll},
		[]contracts.PredictFunc{predictFn},
		forecastData)
	if err != nil {
		return nil, 0, err
	}

	runID, err := r.persist(ctx, modelName, res)
	return res, runID, err
}

// loadInputs reads the lagged datasets and the window table from the data
// directory
func (r *Runner) loadInputs() ([]contracts.LaggedDataset, contracts.WindowSpec, []int, error) {
	dir := r.cfg.Engine.DataDir

	horizons, err := dataset.DiscoverHorizons(dir)
	if err != nil {
		return nil, contracts.WindowSpec{}, nil, err
	}

	opts := dataset.LoadOptions{
		OutcomeCount: r.cfg.Engine.OutcomeCount,
		DateColumn:   r.cfg.Engine.DateColumn,
		Frequency:    r.cfg.Engine.Frequency,
	}
	datasets, err := dataset.LoadLaggedDir(dir, horizons, opts)
	if err != nil {
		return nil, contracts.WindowSpec{}, nil, err
	}

	indexing := contracts.IndexRow
	if r.cfg.Engine.DateColumn != "" {
		indexing = contracts.IndexDate
	}
	spec, err := dataset.LoadWindows(filepath.Join(dir, WindowFile), indexing, "")
	if err != nil {
		return nil, contracts.WindowSpec{}, nil, err
	}

	r.log.WithFields(map[string]interface{}{
		"dir":      dir,
		"horizons": horizons,
		"windows":  len(spec.Windows),
	}).Info("Inputs loaded")

	return datasets, spec, horizons, nil
}

// train fits the named built-in model across the grid
func (r *Runner) train(
	ctx context.Context,
	modelName string,
	datasets []contracts.LaggedDataset,
	spec contracts.WindowSpec,
) (*contracts.ModelCollection, contracts.PredictFunc, error) {
	modelFn, predictFn, err := models.ByName(modelName)
	if err != nil {
		return nil, nil, err
	}

	trainer := engine.NewTrainer(r.cfg.Engine.Workers, r.log.Zerolog())
	coll, err := trainer.Train(ctx, modelName, datasets, spec, modelFn)
	if err != nil {
		return nil, nil, err
	}
	return coll, predictFn, nil
}

// persist saves the result when a store is attached and refreshes the
// latest-run cache entries
func (r *Runner) persist(ctx context.Context, modelName string, res *contracts.PredictionResult) (int64, error) {
	if r.repo == nil {
		return 0, nil
	}

	runID, err := r.repo.SaveResult(ctx, res)
	if err != nil {
		return 0, fmt.Errorf("persist run: %w", err)
	}

	r.log.WithRun(runID).WithModel(modelName).WithFields(map[string]interface{}{
		"mode": string(res.Mode),
		"rows": len(res.Rows),
	}).Info("Run persisted")

	if r.cache != nil {
		// 캐시는 best effort: 실패해도 실행 결과에는 영향 없음
		key := redis.LatestRunKey(modelName, string(res.Mode))
		if err := r.cache.Delete(ctx, key); err != nil {
			r.log.WithError(err).Warn("Failed to invalidate latest-run cache")
		}
	}
	return runID, nil
}
