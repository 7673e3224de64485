package engine

import (
	"fmt"
	"time"

	"github.com/wonny/gridcast/internal/contracts"
)

// ExtendRowIndex continues a row-index sequence past the last observed
// index: step s maps to last + s.
func ExtendRowIndex(last, steps int) []int {
	out := make([]int, steps)
	for s := 1; s <= steps; s++ {
		out[s-1] = last + s
	}
	return out
}

// ExtendDateIndex generates the date continuation: a sequence of length
// steps starting one frequency step past the last observed date. The
// frequency is a fixed duration step; calendar-aware gaps (weekends,
// holidays) are not handled.
func ExtendDateIndex(last time.Time, freq time.Duration, steps int) ([]time.Time, error) {
	if freq <= 0 {
		return nil, fmt.Errorf("extend: frequency must be positive, got %s", freq)
	}
	out := make([]time.Time, steps)
	for s := 1; s <= steps; s++ {
		out[s-1] = last.Add(time.Duration(s) * freq)
	}
	return out, nil
}

// extendPeriods fills the forecast_period columns of forecast-mode rows in
// place, joining the extended index to each row by its step number.
func extendPeriods(meta contracts.Metadata, rows []contracts.ResultRow) error {
	maxStep := 0
	for _, r := range rows {
		if r.ForecastStep > maxStep {
			maxStep = r.ForecastStep
		}
	}
	if maxStep == 0 {
		return nil
	}

	switch meta.Indexing {
	case contracts.IndexRow:
		periods := ExtendRowIndex(meta.LastRowIndex, maxStep)
		for i := range rows {
			rows[i].ForecastRow = periods[rows[i].ForecastStep-1]
		}
	case contracts.IndexDate:
		periods, err := ExtendDateIndex(meta.LastDate, meta.Frequency, maxStep)
		if err != nil {
			return fmt.Errorf("model %s: %w", meta.ModelName, err)
		}
		for i := range rows {
			rows[i].ForecastDate = periods[rows[i].ForecastStep-1]
		}
	default:
		return fmt.Errorf("model %s: unknown indexing mode %q", meta.ModelName, meta.Indexing)
	}
	return nil
}
