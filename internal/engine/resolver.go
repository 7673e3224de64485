// Package engine orchestrates training and prediction of user-supplied
// forecasting models across the horizon × validation-window grid and
// reconciles the outputs into one flat result table.
package engine

import (
	"fmt"
	"time"

	"github.com/wonny/gridcast/internal/contracts"
)

// Split is the resolved train/validation partition for one window of one
// horizon dataset. Row slices hold positions into the dataset's rows;
// ValRowIndex/ValDateIndex hold the corresponding index values retained for
// reconciliation.
type Split struct {
	Window       contracts.Window
	Number       int
	TrainRows    []int
	ValRows      []int
	ValRowIndex  []int
	ValDateIndex []time.Time
}

// ValSize returns the number of validation rows (0 is valid: an empty
// window produces zero result rows downstream, not an error)
func (s Split) ValSize() int {
	return len(s.ValRows)
}

// ResolveWindow computes the validation and training index sets for one
// window. Validation is the closed range [start, stop] over row index
// values, or the closed date interval in date mode. Training is the full
// dataset for length-0 windows, otherwise the complement of the validation
// set.
func ResolveWindow(ds *contracts.LaggedDataset, w contracts.Window, number int) (Split, error) {
	if number < 1 {
		return Split{}, fmt.Errorf("resolve: window number must be >= 1, got %d", number)
	}

	split := Split{Window: w, Number: number}

	switch ds.IndexMode() {
	case contracts.IndexRow:
		for pos, idx := range ds.RowIndex {
			if idx >= w.StartRow && idx <= w.StopRow {
				split.ValRows = append(split.ValRows, pos)
				split.ValRowIndex = append(split.ValRowIndex, idx)
			}
		}
	case contracts.IndexDate:
		if w.StartDate.IsZero() || w.StopDate.IsZero() {
			return Split{}, fmt.Errorf("resolve: window %d has row bounds but dataset is date indexed", number)
		}
		for pos, d := range ds.DateIndex {
			if !d.Before(w.StartDate) && !d.After(w.StopDate) {
				split.ValRows = append(split.ValRows, pos)
				split.ValRowIndex = append(split.ValRowIndex, ds.RowIndex[pos])
				split.ValDateIndex = append(split.ValDateIndex, d)
			}
		}
	}

	if w.Length == 0 {
		// 길이 0 = 중첩 교차검증 없음: 전체 데이터로 학습
		split.TrainRows = make([]int, len(ds.Rows))
		for pos := range ds.Rows {
			split.TrainRows[pos] = pos
		}
		return split, nil
	}

	inVal := make(map[int]struct{}, len(split.ValRows))
	for _, pos := range split.ValRows {
		inVal[pos] = struct{}{}
	}
	for pos := range ds.Rows {
		if _, held := inVal[pos]; !held {
			split.TrainRows = append(split.TrainRows, pos)
		}
	}
	return split, nil
}

// ResolveAll resolves every window of the spec against one horizon dataset,
// preserving the spec's window order (window numbers are 1-based spec row
// positions).
func ResolveAll(ds *contracts.LaggedDataset, spec contracts.WindowSpec) ([]Split, error) {
	if spec.Indexing != ds.IndexMode() {
		return nil, fmt.Errorf("resolve: window spec uses %s indexing but horizon %d dataset uses %s",
			spec.Indexing, ds.Horizon, ds.IndexMode())
	}
	splits := make([]Split, 0, len(spec.Windows))
	for i, w := range spec.Windows {
		s, err := ResolveWindow(ds, w, i+1)
		if err != nil {
			return nil, err
		}
		splits = append(splits, s)
	}
	return splits, nil
}
