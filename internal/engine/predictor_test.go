package engine

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/gridcast/internal/contracts"
)

// echoPredict predicts half the first feature of each row, giving outputs
// that are easy to check against the synthetic datasets (x1 = 2*row index)
func echoPredict(ctx context.Context, model any, features [][]float64) ([][]float64, error) {
	preds := make([][]float64, len(features))
	for i, f := range features {
		preds[i] = []float64{f[0] / 2}
	}
	return preds, nil
}

func trainGrid(t *testing.T, datasets []contracts.LaggedDataset, spec contracts.WindowSpec) *contracts.ModelCollection {
	t.Helper()
	coll, err := NewTrainer(2, zerolog.Nop()).Train(context.Background(), "echo", datasets, spec, countingFn)
	require.NoError(t, err)
	return coll
}

func forecastDataFor(horizons []int) *contracts.ForecastData {
	fd := &contracts.ForecastData{}
	for _, h := range horizons {
		set := contracts.ForecastDataset{Horizon: h, Columns: []string{"x1", "x2"}}
		for s := 1; s <= h; s++ {
			set.Steps = append(set.Steps, s)
			set.Rows = append(set.Rows, []float64{float64(200 + s), float64(300 + s)})
		}
		fd.Sets = append(fd.Sets, set)
	}
	return fd
}

func TestBacktestRows(t *testing.T) {
	datasets := []contracts.LaggedDataset{*rowDataset(1, 100), *rowDataset(3, 100)}
	coll := trainGrid(t, datasets, twoWindowSpec())

	res, err := NewPredictor(zerolog.Nop()).Backtest(context.Background(),
		[]*contracts.ModelCollection{coll}, []contracts.PredictFunc{echoPredict})
	require.NoError(t, err)

	assert.Equal(t, contracts.ModeBacktest, res.Mode)
	// 2 horizons × 2 windows × 20 validation rows
	require.Len(t, res.Rows, 80)

	for _, row := range res.Rows {
		assert.Equal(t, "echo", row.ModelName)
		assert.Len(t, row.Actual, 1)
		assert.Len(t, row.Predicted, 1)
		// echoPredict returns x1/2 = 행 인덱스 = 실측값
		assert.Equal(t, row.Actual[0], row.Predicted[0])
		assert.Zero(t, row.ForecastStep)
	}
}

func TestBacktestOrdering(t *testing.T) {
	datasets := []contracts.LaggedDataset{*rowDataset(3, 100), *rowDataset(1, 100)}
	coll := trainGrid(t, datasets, twoWindowSpec())

	res, err := NewPredictor(zerolog.Nop()).Backtest(context.Background(),
		[]*contracts.ModelCollection{coll}, []contracts.PredictFunc{echoPredict})
	require.NoError(t, err)

	// horizon 오름차순 → window 오름차순 → 행 인덱스 오름차순
	isSorted := sort.SliceIsSorted(res.Rows, func(i, j int) bool {
		a, b := res.Rows[i], res.Rows[j]
		if a.Horizon != b.Horizon {
			return a.Horizon < b.Horizon
		}
		if a.WindowNumber != b.WindowNumber {
			return a.WindowNumber < b.WindowNumber
		}
		return a.RowIndex < b.RowIndex
	})
	assert.True(t, isSorted)
	assert.Equal(t, 1, res.Rows[0].Horizon)
	assert.Equal(t, 3, res.Rows[len(res.Rows)-1].Horizon)
	assert.Equal(t, 100, res.Rows[len(res.Rows)-1].RowIndex)
}

func TestBacktestEmptyWindowYieldsNoRows(t *testing.T) {
	datasets := []contracts.LaggedDataset{*rowDataset(1, 50)}
	spec := contracts.WindowSpec{
		Indexing: contracts.IndexRow,
		Windows: []contracts.Window{
			{Length: 10, StartRow: 41, StopRow: 50},
			{Length: 10, StartRow: 900, StopRow: 950}, // 데이터 밖
		},
	}
	coll := trainGrid(t, datasets, spec)

	res, err := NewPredictor(zerolog.Nop()).Backtest(context.Background(),
		[]*contracts.ModelCollection{coll}, []contracts.PredictFunc{echoPredict})
	require.NoError(t, err)

	require.Len(t, res.Rows, 10)
	for _, row := range res.Rows {
		assert.Equal(t, 1, row.WindowNumber)
	}
}

func TestBacktestIdempotent(t *testing.T) {
	datasets := []contracts.LaggedDataset{*rowDataset(1, 100), *rowDataset(3, 100)}
	coll := trainGrid(t, datasets, twoWindowSpec())
	p := NewPredictor(zerolog.Nop())

	first, err := p.Backtest(context.Background(),
		[]*contracts.ModelCollection{coll}, []contracts.PredictFunc{echoPredict})
	require.NoError(t, err)
	second, err := p.Backtest(context.Background(),
		[]*contracts.ModelCollection{coll}, []contracts.PredictFunc{echoPredict})
	require.NoError(t, err)

	// 결정적 callable로 재실행하면 결과 테이블이 완전히 동일
	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, first.Models, second.Models)
	assert.Equal(t, first.Mode, second.Mode)
}

func TestPredictDuplicateModelNames(t *testing.T) {
	datasets := []contracts.LaggedDataset{*rowDataset(1, 100)}
	collA := trainGrid(t, datasets, twoWindowSpec())
	collB := trainGrid(t, datasets, twoWindowSpec())

	_, err := NewPredictor(zerolog.Nop()).Backtest(context.Background(),
		[]*contracts.ModelCollection{collA, collB},
		[]contracts.PredictFunc{echoPredict, echoPredict})
	require.Error(t, err)
	assert.ErrorContains(t, err, `duplicate model name "echo"`)
}

func TestPredictPairingMismatch(t *testing.T) {
	datasets := []contracts.LaggedDataset{*rowDataset(1, 100)}
	coll := trainGrid(t, datasets, twoWindowSpec())

	var called bool
	fn := func(ctx context.Context, model any, features [][]float64) ([][]float64, error) {
		called = true
		return echoPredict(ctx, model, features)
	}

	_, err := NewPredictor(zerolog.Nop()).Backtest(context.Background(),
		[]*contracts.ModelCollection{coll, coll}, []contracts.PredictFunc{fn})
	require.Error(t, err)
	assert.ErrorContains(t, err, "2 model collections paired with 1 prediction functions")
	assert.False(t, called, "no prediction work before input validation")
}

func TestPredictUserErrorPropagates(t *testing.T) {
	datasets := []contracts.LaggedDataset{*rowDataset(1, 100)}
	coll := trainGrid(t, datasets, twoWindowSpec())

	sentinel := errors.New("model deserialization failed")
	failing := func(ctx context.Context, model any, features [][]float64) ([][]float64, error) {
		return nil, sentinel
	}

	res, err := NewPredictor(zerolog.Nop()).Backtest(context.Background(),
		[]*contracts.ModelCollection{coll}, []contracts.PredictFunc{failing})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.ErrorContains(t, err, "horizon 1 window 1")
	assert.Nil(t, res)
}

func TestPredictRowCountMismatch(t *testing.T) {
	datasets := []contracts.LaggedDataset{*rowDataset(1, 100)}
	coll := trainGrid(t, datasets, twoWindowSpec())

	short := func(ctx context.Context, model any, features [][]float64) ([][]float64, error) {
		return [][]float64{{1}}, nil
	}

	_, err := NewPredictor(zerolog.Nop()).Backtest(context.Background(),
		[]*contracts.ModelCollection{coll}, []contracts.PredictFunc{short})
	require.Error(t, err)
	assert.ErrorContains(t, err, "returned 1 rows for 20 feature rows")
}

func TestForecastRows(t *testing.T) {
	datasets := []contracts.LaggedDataset{*rowDataset(1, 100), *rowDataset(3, 100)}
	coll := trainGrid(t, datasets, twoWindowSpec())

	res, err := NewPredictor(zerolog.Nop()).Forecast(context.Background(),
		[]*contracts.ModelCollection{coll}, []contracts.PredictFunc{echoPredict},
		forecastDataFor([]int{1, 3}))
	require.NoError(t, err)

	assert.Equal(t, contracts.ModeForecast, res.Mode)
	// horizon 1: 1 step, horizon 3: 3 steps, × 2 windows each
	require.Len(t, res.Rows, 8)

	for _, row := range res.Rows {
		assert.GreaterOrEqual(t, row.ForecastStep, 1)
		assert.LessOrEqual(t, row.ForecastStep, row.Horizon)
		assert.Empty(t, row.Actual)
		// 행 인덱스 연장: 마지막 관측 100 + step
		assert.Equal(t, 100+row.ForecastStep, row.ForecastRow)
	}
}

func TestForecastDateExtension(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	datasets := []contracts.LaggedDataset{*dateDataset(3, 10, start)}
	spec := contracts.WindowSpec{
		Indexing: contracts.IndexDate,
		Windows: []contracts.Window{
			{Length: 3, StartDate: start.AddDate(0, 0, 7), StopDate: start.AddDate(0, 0, 9)},
		},
	}
	coll := trainGrid(t, datasets, spec)

	res, err := NewPredictor(zerolog.Nop()).Forecast(context.Background(),
		[]*contracts.ModelCollection{coll}, []contracts.PredictFunc{echoPredict},
		forecastDataFor([]int{3}))
	require.NoError(t, err)

	// 마지막 관측 2024-01-10, 일 단위 → 01-11, 01-12, 01-13
	require.Len(t, res.Rows, 3)
	last := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	for _, row := range res.Rows {
		assert.Equal(t, last.AddDate(0, 0, row.ForecastStep), row.ForecastDate)
		assert.Zero(t, row.ForecastRow)
	}
}

func TestForecastMissingHorizonSet(t *testing.T) {
	datasets := []contracts.LaggedDataset{*rowDataset(1, 100), *rowDataset(3, 100)}
	coll := trainGrid(t, datasets, twoWindowSpec())

	_, err := NewPredictor(zerolog.Nop()).Forecast(context.Background(),
		[]*contracts.ModelCollection{coll}, []contracts.PredictFunc{echoPredict},
		forecastDataFor([]int{1}))
	require.Error(t, err)
	assert.ErrorContains(t, err, "no future feature set for horizon 3")
}

func TestForecastRequiresData(t *testing.T) {
	datasets := []contracts.LaggedDataset{*rowDataset(1, 100)}
	coll := trainGrid(t, datasets, twoWindowSpec())

	_, err := NewPredictor(zerolog.Nop()).Forecast(context.Background(),
		[]*contracts.ModelCollection{coll}, []contracts.PredictFunc{echoPredict}, nil)
	assert.Error(t, err)
}

func TestBacktestGroupColumns(t *testing.T) {
	ds := rowDataset(1, 20)
	ds.GroupColumns = []string{"x2"}
	spec := contracts.WindowSpec{
		Indexing: contracts.IndexRow,
		Windows:  []contracts.Window{{Length: 5, StartRow: 16, StopRow: 20}},
	}
	coll := trainGrid(t, []contracts.LaggedDataset{*ds}, spec)

	res, err := NewPredictor(zerolog.Nop()).Backtest(context.Background(),
		[]*contracts.ModelCollection{coll}, []contracts.PredictFunc{echoPredict})
	require.NoError(t, err)

	require.Len(t, res.Rows, 5)
	for _, row := range res.Rows {
		// x2 = 3×행 인덱스 (합성 데이터)
		assert.Equal(t, float64(row.RowIndex)*3, row.Groups["x2"])
	}
}

func TestPredictTwoCollections(t *testing.T) {
	datasets := []contracts.LaggedDataset{*rowDataset(1, 100)}
	spec := twoWindowSpec()

	collA, err := NewTrainer(2, zerolog.Nop()).Train(context.Background(), "alpha", datasets, spec, countingFn)
	require.NoError(t, err)
	collB, err := NewTrainer(2, zerolog.Nop()).Train(context.Background(), "beta", datasets, spec, countingFn)
	require.NoError(t, err)

	res, err := NewPredictor(zerolog.Nop()).Backtest(context.Background(),
		[]*contracts.ModelCollection{collB, collA},
		[]contracts.PredictFunc{echoPredict, echoPredict})
	require.NoError(t, err)

	// 모델 입력 순서가 결과 순서를 지배
	require.Len(t, res.Rows, 80)
	assert.Equal(t, []string{"beta", "alpha"}, res.ModelNames())
	assert.Equal(t, "beta", res.Rows[0].ModelName)
	assert.Equal(t, "alpha", res.Rows[79].ModelName)
}
