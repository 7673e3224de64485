package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/gridcast/internal/contracts"
)

// countingModel records how many training rows it saw
type countingModel struct {
	trainRows int
	horizon   int
}

func countingFn(ctx context.Context, train contracts.TrainingData) (any, error) {
	return &countingModel{trainRows: len(train.Outcomes), horizon: train.Horizon}, nil
}

func twoWindowSpec() contracts.WindowSpec {
	return contracts.WindowSpec{
		Indexing: contracts.IndexRow,
		Windows: []contracts.Window{
			{Length: 20, StartRow: 61, StopRow: 80},
			{Length: 20, StartRow: 81, StopRow: 100},
		},
	}
}

func TestTrainerGridComplete(t *testing.T) {
	datasets := []contracts.LaggedDataset{*rowDataset(1, 100), *rowDataset(3, 100)}
	trainer := NewTrainer(4, zerolog.Nop())

	coll, err := trainer.Train(context.Background(), "counting", datasets, twoWindowSpec(), countingFn)
	require.NoError(t, err)

	// horizon × window 전체 그리드
	require.Len(t, coll.Models, 4)
	for _, h := range []int{1, 3} {
		for _, w := range []int{1, 2} {
			tm, ok := coll.Get(h, w)
			require.True(t, ok, "missing model h=%d w=%d", h, w)
			assert.Equal(t, h, tm.Horizon)
			assert.Equal(t, w, tm.WindowNumber)
			assert.Equal(t, 20, tm.WindowLength)
			assert.Len(t, tm.ValFeatures, 20)
			assert.Len(t, tm.ValOutcomes, 20)
			assert.Equal(t, []string{"x1", "x2"}, tm.FeatureColumns)
			assert.Equal(t, 80, tm.Model.(*countingModel).trainRows)
		}
	}

	assert.Equal(t, "counting", coll.Meta.ModelName)
	assert.Equal(t, []int{1, 3}, coll.Meta.Horizons)
	assert.Equal(t, []string{"y"}, coll.Meta.OutcomeColumns)
	assert.Equal(t, contracts.IndexRow, coll.Meta.Indexing)
	assert.Equal(t, 100, coll.Meta.LastRowIndex)
}

func TestTrainerZeroLengthTrainsOnAll(t *testing.T) {
	datasets := []contracts.LaggedDataset{*rowDataset(1, 100)}
	spec := contracts.WindowSpec{
		Indexing: contracts.IndexRow,
		Windows: []contracts.Window{
			{Length: 0, StartRow: 81, StopRow: 100},
			{Length: 20, StartRow: 81, StopRow: 100},
		},
	}
	trainer := NewTrainer(1, zerolog.Nop())

	coll, err := trainer.Train(context.Background(), "counting", datasets, spec, countingFn)
	require.NoError(t, err)

	full, _ := coll.Get(1, 1)
	held, _ := coll.Get(1, 2)
	assert.Equal(t, 100, full.Model.(*countingModel).trainRows)
	assert.Equal(t, 80, held.Model.(*countingModel).trainRows)
	// 두 윈도우 모두 같은 검증 구간을 보고
	assert.Equal(t, full.ValRowIndex, held.ValRowIndex)
}

func TestTrainerUserErrorPropagates(t *testing.T) {
	sentinel := errors.New("bad hyperparameters")
	failing := func(ctx context.Context, train contracts.TrainingData) (any, error) {
		if train.Horizon == 3 {
			return nil, sentinel
		}
		return &countingModel{}, nil
	}

	datasets := []contracts.LaggedDataset{*rowDataset(1, 100), *rowDataset(3, 100)}
	trainer := NewTrainer(2, zerolog.Nop())

	coll, err := trainer.Train(context.Background(), "failing", datasets, twoWindowSpec(), failing)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.ErrorContains(t, err, "horizon 3")
	assert.Nil(t, coll, "no partial collection on failure")
}

func TestTrainerFirstErrorCancelsRemaining(t *testing.T) {
	var calls atomic.Int32
	failing := func(ctx context.Context, train contracts.TrainingData) (any, error) {
		calls.Add(1)
		return nil, errors.New("boom")
	}

	var datasets []contracts.LaggedDataset
	for h := 1; h <= 8; h++ {
		datasets = append(datasets, *rowDataset(h, 50))
	}
	trainer := NewTrainer(1, zerolog.Nop())

	_, err := trainer.Train(context.Background(), "failing", datasets, twoWindowSpec(), failing)
	require.Error(t, err)
	// 순차 실행에서 첫 실패 후 나머지 단위는 시작되지 않음
	assert.Equal(t, int32(1), calls.Load())
}

func TestTrainerContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	datasets := []contracts.LaggedDataset{*rowDataset(1, 100)}
	trainer := NewTrainer(2, zerolog.Nop())

	_, err := trainer.Train(ctx, "counting", datasets, twoWindowSpec(), countingFn)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrainerInputValidation(t *testing.T) {
	good := []contracts.LaggedDataset{*rowDataset(1, 100)}
	spec := twoWindowSpec()

	tests := []struct {
		name     string
		model    string
		datasets []contracts.LaggedDataset
		spec     contracts.WindowSpec
		fn       contracts.ModelFunc
		wantErr  string
	}{
		{
			name:     "missing name",
			model:    "",
			datasets: good,
			spec:     spec,
			fn:       countingFn,
			wantErr:  "name",
		},
		{
			name:     "nil model function",
			model:    "m",
			datasets: good,
			spec:     spec,
			fn:       nil,
			wantErr:  "function",
		},
		{
			name:     "no datasets",
			model:    "m",
			datasets: nil,
			spec:     spec,
			fn:       countingFn,
			wantErr:  "no horizon datasets",
		},
		{
			name:     "duplicate horizon",
			model:    "m",
			datasets: []contracts.LaggedDataset{*rowDataset(2, 50), *rowDataset(2, 50)},
			spec:     spec,
			fn:       countingFn,
			wantErr:  "duplicate horizon",
		},
		{
			name:  "mixed index modes",
			model: "m",
			datasets: []contracts.LaggedDataset{
				*rowDataset(1, 50),
				*dateDataset(2, 50, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			},
			spec:    spec,
			fn:      countingFn,
			wantErr: "indexing",
		},
		{
			name:     "empty window table",
			model:    "m",
			datasets: good,
			spec:     contracts.WindowSpec{Indexing: contracts.IndexRow},
			fn:       countingFn,
			wantErr:  "window table",
		},
	}

	trainer := NewTrainer(2, zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := trainer.Train(context.Background(), tt.model, tt.datasets, tt.spec, tt.fn)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestTrainerDeterministic(t *testing.T) {
	datasets := []contracts.LaggedDataset{*rowDataset(1, 100), *rowDataset(3, 100)}
	spec := twoWindowSpec()

	first, err := NewTrainer(4, zerolog.Nop()).Train(context.Background(), "counting", datasets, spec, countingFn)
	require.NoError(t, err)
	second, err := NewTrainer(1, zerolog.Nop()).Train(context.Background(), "counting", datasets, spec, countingFn)
	require.NoError(t, err)

	// 워커 수와 무관하게 같은 그리드, 같은 검증 분할
	require.Equal(t, first.Keys(), second.Keys())
	for _, key := range first.Keys() {
		a := first.Models[key]
		b := second.Models[key]
		assert.Equal(t, a.ValRowIndex, b.ValRowIndex)
		assert.Equal(t, a.ValOutcomes, b.ValOutcomes)
	}
}

func TestTrainerDateMetadata(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	datasets := []contracts.LaggedDataset{*dateDataset(1, 10, start)}
	spec := contracts.WindowSpec{
		Indexing: contracts.IndexDate,
		Windows: []contracts.Window{
			{Length: 3, StartDate: start.AddDate(0, 0, 7), StopDate: start.AddDate(0, 0, 9)},
		},
	}

	coll, err := NewTrainer(2, zerolog.Nop()).Train(context.Background(), "counting", datasets, spec, countingFn)
	require.NoError(t, err)

	assert.Equal(t, contracts.IndexDate, coll.Meta.Indexing)
	assert.Equal(t, 24*time.Hour, coll.Meta.Frequency)
	assert.Equal(t, start.AddDate(0, 0, 9), coll.Meta.LastDate)
}
