package contracts

import (
	"fmt"
	"time"
)

// ResultMode tags a PredictionResult as backtest or forecast output.
// 런타임 타입 검사 대신 명시적 태그 (생성 시점에 형태 검증)
type ResultMode string

const (
	// ModeBacktest prediction against historical validation windows
	ModeBacktest ResultMode = "backtest"
	// ModeForecast prediction past the end of the observed data
	ModeForecast ResultMode = "forecast"
)

// ResultRow is one flat output row. Provenance columns are always present;
// the trailing columns differ by mode: Actual is backtest-only, the
// ForecastStep/ForecastRow/ForecastDate triple is forecast-only.
type ResultRow struct {
	ModelName    string             `json:"model_name"`
	Horizon      int                `json:"horizon"`
	WindowLength int                `json:"window_length"`
	WindowNumber int                `json:"window_number"`
	RowIndex     int                `json:"row_index,omitempty"`
	Date         time.Time          `json:"date,omitempty"`
	Groups       map[string]float64 `json:"groups,omitempty"`
	Actual       []float64          `json:"actual,omitempty"`
	Predicted    []float64          `json:"predicted"`
	ForecastStep int                `json:"forecast_step,omitempty"`
	ForecastRow  int                `json:"forecast_period_row,omitempty"`
	ForecastDate time.Time          `json:"forecast_period_date,omitempty"`
}

// PredictionResult is the terminal artifact of a prediction run: one flat
// table plus per-model table-level metadata. Immutable once assembled.
// ⭐ SSOT: 백테스트/예측 결과는 이 테이블로만 소비
type PredictionResult struct {
	Mode   ResultMode  `json:"mode"`
	Models []Metadata  `json:"models"`
	Rows   []ResultRow `json:"rows"`
}

// NewPredictionResult validates the variant shape and assembles the table.
// Backtest rows must carry actual outcomes and no forecast step; forecast
// rows must carry a forecast step and no actual outcomes.
func NewPredictionResult(mode ResultMode, models []Metadata, rows []ResultRow) (*PredictionResult, error) {
	if mode != ModeBacktest && mode != ModeForecast {
		return nil, fmt.Errorf("result: unknown mode %q", mode)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("result: no model metadata")
	}
	for i, r := range rows {
		if len(r.Predicted) == 0 {
			return nil, fmt.Errorf("result: row %d has no predicted outcomes", i)
		}
		switch mode {
		case ModeBacktest:
			if len(r.Actual) != len(r.Predicted) {
				return nil, fmt.Errorf("result: backtest row %d has %d actuals for %d predictions", i, len(r.Actual), len(r.Predicted))
			}
			if r.ForecastStep != 0 {
				return nil, fmt.Errorf("result: backtest row %d carries a forecast step", i)
			}
		case ModeForecast:
			if r.ForecastStep < 1 {
				return nil, fmt.Errorf("result: forecast row %d is missing its step number", i)
			}
			if len(r.Actual) != 0 {
				return nil, fmt.Errorf("result: forecast row %d carries actual outcomes", i)
			}
		}
	}
	return &PredictionResult{Mode: mode, Models: models, Rows: rows}, nil
}

// RowCount returns the number of output rows
func (r *PredictionResult) RowCount() int {
	return len(r.Rows)
}

// ModelNames returns the model names in input order
func (r *PredictionResult) ModelNames() []string {
	names := make([]string, 0, len(r.Models))
	for _, m := range r.Models {
		names = append(names, m.ModelName)
	}
	return names
}
