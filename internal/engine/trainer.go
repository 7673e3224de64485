package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/gridcast/internal/contracts"
)

// Trainer fits one user-supplied model function across the horizon × window
// grid and collects the artifacts into a ModelCollection.
// ⭐ SSOT: 모델 학습 오케스트레이션은 여기서만
type Trainer struct {
	workers int
	log     zerolog.Logger
}

// NewTrainer creates a trainer. workers bounds the number of concurrent
// model_fn invocations; values < 1 mean sequential.
func NewTrainer(workers int, log zerolog.Logger) *Trainer {
	if workers < 1 {
		workers = 1
	}
	return &Trainer{
		workers: workers,
		log:     log.With().Str("component", "engine.trainer").Logger(),
	}
}

// trainUnit is one independent (horizon, window) unit of work
type trainUnit struct {
	dataset *contracts.LaggedDataset
	split   Split
}

// Train fits fn once per (horizon, window) and returns the full collection.
// A failure inside fn is not caught here: the first error cancels the
// remaining units and propagates to the caller, and no partial collection is
// returned (all-or-nothing per run).
func (t *Trainer) Train(
	ctx context.Context,
	name string,
	datasets []contracts.LaggedDataset,
	spec contracts.WindowSpec,
	fn contracts.ModelFunc,
) (*contracts.ModelCollection, error) {
	if err := validateTrainInputs(name, datasets, spec, fn); err != nil {
		return nil, err
	}

	// 학습 시작 전에 모든 단위를 먼저 해석 (fail fast)
	var units []trainUnit
	for i := range datasets {
		ds := &datasets[i]
		splits, err := ResolveAll(ds, spec)
		if err != nil {
			return nil, err
		}
		for _, s := range splits {
			units = append(units, trainUnit{dataset: ds, split: s})
		}
	}

	t.log.Info().
		Str("model", name).
		Int("horizons", len(datasets)).
		Int("windows", len(spec.Windows)).
		Int("units", len(units)).
		Int("workers", t.workers).
		Msg("training started")

	trained := make([]*contracts.TrainedModel, len(units))
	unitCh := make(chan int)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for w := 0; w < t.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range unitCh {
				u := units[i]
				tm, err := t.trainOne(runCtx, u.dataset, u.split, fn)
				if err != nil {
					errOnce.Do(func() {
						firstErr = fmt.Errorf("train horizon %d window %d: %w",
							u.dataset.Horizon, u.split.Number, err)
						cancel()
					})
					return
				}
				trained[i] = tm
			}
		}()
	}

dispatch:
	for i := range units {
		select {
		case unitCh <- i:
		case <-runCtx.Done():
			break dispatch
		}
	}
	close(unitCh)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	models := make(map[contracts.ModelKey]*contracts.TrainedModel, len(trained))
	for _, tm := range trained {
		models[contracts.ModelKey{Horizon: tm.Horizon, Window: tm.WindowNumber}] = tm
	}

	t.log.Info().
		Str("model", name).
		Int("trained", len(models)).
		Msg("training completed")

	return &contracts.ModelCollection{
		Meta:   buildMetadata(name, datasets),
		Models: models,
	}, nil
}

// trainOne fits one (horizon, window) unit
func (t *Trainer) trainOne(
	ctx context.Context,
	ds *contracts.LaggedDataset,
	split Split,
	fn contracts.ModelFunc,
) (*contracts.TrainedModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcomes, features := partitionRows(ds, split.TrainRows)
	train := contracts.TrainingData{
		Horizon:        ds.Horizon,
		Columns:        ds.Columns,
		OutcomeColumns: ds.OutcomeColumns(),
		Outcomes:       outcomes,
		Features:       features,
		RowIndex:       indexValues(ds.RowIndex, split.TrainRows),
		DateIndex:      dateValues(ds.DateIndex, split.TrainRows),
	}

	model, err := fn(ctx, train)
	if err != nil {
		return nil, err
	}

	valOutcomes, valFeatures := partitionRows(ds, split.ValRows)

	t.log.Debug().
		Int("horizon", ds.Horizon).
		Int("window", split.Number).
		Int("train_rows", len(split.TrainRows)).
		Int("val_rows", len(split.ValRows)).
		Msg("window trained")

	return &contracts.TrainedModel{
		Horizon:        ds.Horizon,
		WindowNumber:   split.Number,
		WindowLength:   split.Window.Length,
		Model:          model,
		FeatureColumns: ds.FeatureColumns(),
		ValFeatures:    valFeatures,
		ValOutcomes:    valOutcomes,
		ValRowIndex:    split.ValRowIndex,
		ValDateIndex:   split.ValDateIndex,
	}, nil
}

// validateTrainInputs checks the input contract before any work begins
func validateTrainInputs(
	name string,
	datasets []contracts.LaggedDataset,
	spec contracts.WindowSpec,
	fn contracts.ModelFunc,
) error {
	if name == "" {
		return fmt.Errorf("train: model name is required")
	}
	if fn == nil {
		return fmt.Errorf("train: model function is required")
	}
	if len(datasets) == 0 {
		return fmt.Errorf("train: no horizon datasets")
	}
	if err := spec.Validate(); err != nil {
		return err
	}

	seen := make(map[int]struct{}, len(datasets))
	first := &datasets[0]
	for i := range datasets {
		ds := &datasets[i]
		if err := ds.Validate(); err != nil {
			return err
		}
		if _, dup := seen[ds.Horizon]; dup {
			return fmt.Errorf("train: duplicate horizon %d", ds.Horizon)
		}
		seen[ds.Horizon] = struct{}{}
		if ds.IndexMode() != first.IndexMode() {
			return fmt.Errorf("train: horizon %d uses %s indexing but horizon %d uses %s",
				ds.Horizon, ds.IndexMode(), first.Horizon, first.IndexMode())
		}
		if fmt.Sprint(ds.OutcomeColumns()) != fmt.Sprint(first.OutcomeColumns()) {
			return fmt.Errorf("train: horizon %d outcome columns differ from horizon %d", ds.Horizon, first.Horizon)
		}
	}
	return nil
}

// buildMetadata snapshots the dataset-level metadata for the collection.
// All horizons share the originating data's index sequence, so the first
// dataset is authoritative.
func buildMetadata(name string, datasets []contracts.LaggedDataset) contracts.Metadata {
	first := &datasets[0]
	horizons := make([]int, len(datasets))
	for i := range datasets {
		horizons[i] = datasets[i].Horizon
	}

	lastRow := first.RowIndex[0]
	for _, idx := range first.RowIndex {
		if idx > lastRow {
			lastRow = idx
		}
	}

	meta := contracts.Metadata{
		ModelName:      name,
		Horizons:       horizons,
		OutcomeColumns: first.OutcomeColumns(),
		GroupColumns:   first.GroupColumns,
		Indexing:       first.IndexMode(),
		RowIndex:       first.RowIndex,
		LastRowIndex:   lastRow,
	}
	if first.IndexMode() == contracts.IndexDate {
		meta.DateIndex = first.DateIndex
		meta.Frequency = first.Frequency
		meta.LastDate = first.DateIndex[len(first.DateIndex)-1]
	}
	return meta
}

// partitionRows splits the selected rows into leading outcome columns and
// trailing feature columns
func partitionRows(ds *contracts.LaggedDataset, rows []int) (outcomes, features [][]float64) {
	outcomes = make([][]float64, len(rows))
	features = make([][]float64, len(rows))
	for i, pos := range rows {
		row := ds.Rows[pos]
		outcomes[i] = row[:ds.OutcomeCount]
		features[i] = row[ds.OutcomeCount:]
	}
	return outcomes, features
}

func indexValues(index []int, rows []int) []int {
	out := make([]int, len(rows))
	for i, pos := range rows {
		out[i] = index[pos]
	}
	return out
}

func dateValues(dates []time.Time, rows []int) []time.Time {
	if len(dates) == 0 {
		return nil
	}
	out := make([]time.Time, len(rows))
	for i, pos := range rows {
		out[i] = dates[pos]
	}
	return out
}
