package contracts

import (
	"context"
	"sort"
	"time"
)

// TrainingData is the training partition handed to a user-supplied model
// function. Outcomes and Features are row-aligned with RowIndex (and
// DateIndex when present).
type TrainingData struct {
	Horizon        int
	Columns        []string
	OutcomeColumns []string
	Outcomes       [][]float64
	Features       [][]float64
	RowIndex       []int
	DateIndex      []time.Time
}

// ModelFunc trains an opaque model on one training partition.
// 엔진은 반환된 모델을 해석하지 않음 (PredictFunc로만 전달)
type ModelFunc func(ctx context.Context, train TrainingData) (any, error)

// PredictFunc produces one predicted-outcome row per input feature row, in
// input row order, using the training data's outcome column convention.
type PredictFunc func(ctx context.Context, model any, features [][]float64) ([][]float64, error)

// TrainedModel is the per-(horizon, window) training artifact.
// Immutable after creation; consumed only by the prediction engine.
type TrainedModel struct {
	Horizon      int
	WindowNumber int
	WindowLength int
	Model        any
	// FeatureColumns names the columns of ValFeatures. Lag construction
	// differs per horizon, so this is per-model, not collection-wide.
	FeatureColumns []string
	ValFeatures  [][]float64
	ValOutcomes  [][]float64
	ValRowIndex  []int
	ValDateIndex []time.Time
}

// ModelKey addresses a TrainedModel inside a collection.
// 중첩 리스트 대신 (horizon, window) 복합 키의 평탄한 맵을 사용
type ModelKey struct {
	Horizon int
	Window  int
}

// ModelCollection is the full nested training result: every TrainedModel
// produced for one model name across the horizon × window grid, plus the
// process-wide metadata of the originating training data.
// ⭐ SSOT: 학습 산출물은 이 컬렉션으로만 전달 (생성 후 읽기 전용)
type ModelCollection struct {
	Meta   Metadata
	Models map[ModelKey]*TrainedModel
}

// Get returns the trained model for a (horizon, window) pair
func (c *ModelCollection) Get(horizon, window int) (*TrainedModel, bool) {
	m, ok := c.Models[ModelKey{Horizon: horizon, Window: window}]
	return m, ok
}

// Keys returns all model keys ordered by ascending horizon, then window
func (c *ModelCollection) Keys() []ModelKey {
	keys := make([]ModelKey, 0, len(c.Models))
	for k := range c.Models {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Horizon != keys[j].Horizon {
			return keys[i].Horizon < keys[j].Horizon
		}
		return keys[i].Window < keys[j].Window
	})
	return keys
}
