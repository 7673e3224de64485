package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wonny/gridcast/internal/contracts"
)

// Predictor runs prediction callables against trained model collections and
// produces the flat result table for either mode.
// ⭐ SSOT: 백테스트/예측 실행은 여기서만
type Predictor struct {
	log zerolog.Logger
}

// NewPredictor creates a predictor
func NewPredictor(log zerolog.Logger) *Predictor {
	return &Predictor{log: log.With().Str("component", "engine.predictor").Logger()}
}

// Backtest predicts every model's validation windows against historical
// truth (forecast data absent).
func (p *Predictor) Backtest(
	ctx context.Context,
	collections []*contracts.ModelCollection,
	fns []contracts.PredictFunc,
) (*contracts.PredictionResult, error) {
	return p.Predict(ctx, collections, fns, nil)
}

// Forecast predicts past the end of the observed data using the supplied
// future feature sets.
func (p *Predictor) Forecast(
	ctx context.Context,
	collections []*contracts.ModelCollection,
	fns []contracts.PredictFunc,
	forecastData *contracts.ForecastData,
) (*contracts.PredictionResult, error) {
	if forecastData == nil {
		return nil, fmt.Errorf("predict: forecast mode requires forecast data")
	}
	return p.Predict(ctx, collections, fns, forecastData)
}

// Predict is the single code path behind both modes: backtest when
// forecastData is nil, forecast otherwise. Collections pair positionally
// with prediction functions; a length mismatch is a usage error reported
// before any prediction work begins.
func (p *Predictor) Predict(
	ctx context.Context,
	collections []*contracts.ModelCollection,
	fns []contracts.PredictFunc,
	forecastData *contracts.ForecastData,
) (*contracts.PredictionResult, error) {
	if err := validatePredictInputs(collections, fns, forecastData); err != nil {
		return nil, err
	}

	mode := contracts.ModeBacktest
	if forecastData != nil {
		mode = contracts.ModeForecast
	}

	var rows []contracts.ResultRow
	metas := make([]contracts.Metadata, 0, len(collections))

	for ci, coll := range collections {
		metas = append(metas, coll.Meta)
		fn := fns[ci]

		collRows, err := p.predictCollection(ctx, coll, fn, forecastData)
		if err != nil {
			return nil, err
		}
		if mode == contracts.ModeForecast {
			if err := extendPeriods(coll.Meta, collRows); err != nil {
				return nil, err
			}
		}
		rows = append(rows, collRows...)
	}

	result, err := assemble(mode, metas, rows)
	if err != nil {
		return nil, err
	}

	p.log.Info().
		Str("mode", string(mode)).
		Int("models", len(collections)).
		Int("rows", len(result.Rows)).
		Msg("prediction completed")

	return result, nil
}

// predictCollection emits result rows for every (horizon, window) of one
// collection, in ascending horizon then window order.
func (p *Predictor) predictCollection(
	ctx context.Context,
	coll *contracts.ModelCollection,
	fn contracts.PredictFunc,
	forecastData *contracts.ForecastData,
) ([]contracts.ResultRow, error) {
	var rows []contracts.ResultRow
	for _, key := range coll.Keys() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tm := coll.Models[key]

		var (
			unitRows []contracts.ResultRow
			err      error
		)
		if forecastData == nil {
			unitRows, err = p.backtestUnit(ctx, coll.Meta, tm, fn)
		} else {
			unitRows, err = p.forecastUnit(ctx, coll.Meta, tm, fn, forecastData)
		}
		if err != nil {
			return nil, fmt.Errorf("predict model %s horizon %d window %d: %w",
				coll.Meta.ModelName, key.Horizon, key.Window, err)
		}
		rows = append(rows, unitRows...)
	}
	return rows, nil
}

// backtestUnit aligns predicted outcomes 1:1 with the stored validation
// partition of one trained model
func (p *Predictor) backtestUnit(
	ctx context.Context,
	meta contracts.Metadata,
	tm *contracts.TrainedModel,
	fn contracts.PredictFunc,
) ([]contracts.ResultRow, error) {
	if len(tm.ValFeatures) == 0 {
		// 빈 검증 윈도우: 결과 0행 (오류 아님)
		return nil, nil
	}

	preds, err := fn(ctx, tm.Model, tm.ValFeatures)
	if err != nil {
		return nil, err
	}
	if len(preds) != len(tm.ValFeatures) {
		return nil, fmt.Errorf("prediction function returned %d rows for %d feature rows",
			len(preds), len(tm.ValFeatures))
	}

	groupPos := groupPositions(tm.FeatureColumns, meta.GroupColumns)
	rows := make([]contracts.ResultRow, 0, len(preds))
	for i, pred := range preds {
		r := contracts.ResultRow{
			ModelName:    meta.ModelName,
			Horizon:      tm.Horizon,
			WindowLength: tm.WindowLength,
			WindowNumber: tm.WindowNumber,
			RowIndex:     tm.ValRowIndex[i],
			Groups:       groupValues(groupPos, tm.ValFeatures[i]),
			Actual:       tm.ValOutcomes[i],
			Predicted:    pred,
		}
		if len(tm.ValDateIndex) > 0 {
			r.Date = tm.ValDateIndex[i]
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// forecastUnit predicts the future feature set matching this model's
// horizon, reattaching the stripped step tag as the step-ahead multiplier
func (p *Predictor) forecastUnit(
	ctx context.Context,
	meta contracts.Metadata,
	tm *contracts.TrainedModel,
	fn contracts.PredictFunc,
	forecastData *contracts.ForecastData,
) ([]contracts.ResultRow, error) {
	set, ok := forecastData.ForHorizon(tm.Horizon)
	if !ok {
		return nil, fmt.Errorf("no future feature set for horizon %d", tm.Horizon)
	}
	if len(set.Rows) == 0 {
		return nil, nil
	}

	preds, err := fn(ctx, tm.Model, set.Rows)
	if err != nil {
		return nil, err
	}
	if len(preds) != len(set.Rows) {
		return nil, fmt.Errorf("prediction function returned %d rows for %d feature rows",
			len(preds), len(set.Rows))
	}

	groupPos := groupPositions(set.Columns, meta.GroupColumns)
	rows := make([]contracts.ResultRow, 0, len(preds))
	for i, pred := range preds {
		rows = append(rows, contracts.ResultRow{
			ModelName:    meta.ModelName,
			Horizon:      tm.Horizon,
			WindowLength: tm.WindowLength,
			WindowNumber: tm.WindowNumber,
			Groups:       groupValues(groupPos, set.Rows[i]),
			Predicted:    pred,
			ForecastStep: set.Steps[i],
		})
	}
	return rows, nil
}

// validatePredictInputs enforces the input contract before any work begins
func validatePredictInputs(
	collections []*contracts.ModelCollection,
	fns []contracts.PredictFunc,
	forecastData *contracts.ForecastData,
) error {
	if len(collections) == 0 {
		return fmt.Errorf("predict: no model collections")
	}
	if len(collections) != len(fns) {
		return fmt.Errorf("predict: %d model collections paired with %d prediction functions",
			len(collections), len(fns))
	}
	seen := make(map[string]struct{}, len(collections))
	for i, coll := range collections {
		if coll == nil || len(coll.Models) == 0 {
			return fmt.Errorf("predict: model collection %d is empty", i)
		}
		if fns[i] == nil {
			return fmt.Errorf("predict: prediction function %d is nil", i)
		}
		// 모델 이름이 출력 정렬 키이므로 중복은 순서를 망가뜨림
		if _, dup := seen[coll.Meta.ModelName]; dup {
			return fmt.Errorf("predict: duplicate model name %q", coll.Meta.ModelName)
		}
		seen[coll.Meta.ModelName] = struct{}{}
	}
	if forecastData != nil {
		if err := forecastData.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// groupPositions maps group column names to their feature column positions
func groupPositions(featureColumns, groupColumns []string) map[string]int {
	if len(groupColumns) == 0 {
		return nil
	}
	pos := make(map[string]int, len(groupColumns))
	for _, g := range groupColumns {
		for i, f := range featureColumns {
			if f == g {
				pos[g] = i
				break
			}
		}
	}
	return pos
}

func groupValues(pos map[string]int, row []float64) map[string]float64 {
	if len(pos) == 0 {
		return nil
	}
	out := make(map[string]float64, len(pos))
	for name, i := range pos {
		if i < len(row) {
			out[name] = row[i]
		}
	}
	return out
}
