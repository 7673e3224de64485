package engine

import (
	"sort"

	"github.com/wonny/gridcast/internal/contracts"
)

// assemble flattens the per-model row groups into one ordered table and
// validates the variant shape at construction.
//
// Ordering rule: input model order, then ascending horizon, window number,
// then ascending validation row / forecast step. The sort is restored here
// post-hoc so concurrent execution upstream cannot perturb the output.
func assemble(
	mode contracts.ResultMode,
	metas []contracts.Metadata,
	rows []contracts.ResultRow,
) (*contracts.PredictionResult, error) {
	modelOrder := make(map[string]int, len(metas))
	for i, m := range metas {
		modelOrder[m.ModelName] = i
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if modelOrder[a.ModelName] != modelOrder[b.ModelName] {
			return modelOrder[a.ModelName] < modelOrder[b.ModelName]
		}
		if a.Horizon != b.Horizon {
			return a.Horizon < b.Horizon
		}
		if a.WindowNumber != b.WindowNumber {
			return a.WindowNumber < b.WindowNumber
		}
		if mode == contracts.ModeForecast {
			return a.ForecastStep < b.ForecastStep
		}
		return a.RowIndex < b.RowIndex
	})

	return contracts.NewPredictionResult(mode, metas, rows)
}
