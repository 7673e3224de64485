package contracts

import (
	"fmt"
	"time"
)

// IndexMode 데이터셋 인덱싱 방식 (행 번호 또는 날짜)
type IndexMode string

const (
	// IndexRow plain integer row indexing
	IndexRow IndexMode = "row"
	// IndexDate date indexing (requires a regular frequency)
	IndexDate IndexMode = "date"
)

// LaggedDataset is one horizon's worth of lagged training data.
// ⭐ SSOT: 데이터셋 불변 조건은 Validate()에서만 검사
//
// Outcome columns occupy the leading OutcomeCount positions of Columns and
// of every row in Rows. The remaining columns are features. Grouping columns
// (panel/multi-series keys) are ordinary feature columns named in
// GroupColumns.
type LaggedDataset struct {
	Horizon      int             `json:"horizon"`
	Columns      []string        `json:"columns"`
	OutcomeCount int             `json:"outcome_count"`
	Rows         [][]float64     `json:"rows"`
	RowIndex     []int           `json:"row_index"`
	DateIndex    []time.Time     `json:"date_index,omitempty"`
	Frequency    time.Duration   `json:"frequency,omitempty"`
	GroupColumns []string        `json:"group_columns,omitempty"`
}

// IndexMode returns how this dataset is indexed
func (d *LaggedDataset) IndexMode() IndexMode {
	if len(d.DateIndex) > 0 {
		return IndexDate
	}
	return IndexRow
}

// OutcomeColumns returns the names of the leading outcome columns
func (d *LaggedDataset) OutcomeColumns() []string {
	return d.Columns[:d.OutcomeCount]
}

// FeatureColumns returns the names of the non-outcome columns
func (d *LaggedDataset) FeatureColumns() []string {
	return d.Columns[d.OutcomeCount:]
}

// Validate checks the dataset invariants
func (d *LaggedDataset) Validate() error {
	if d.Horizon < 1 {
		return fmt.Errorf("dataset: horizon must be >= 1, got %d", d.Horizon)
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("dataset: no columns")
	}
	if d.OutcomeCount < 1 || d.OutcomeCount >= len(d.Columns) {
		return fmt.Errorf("dataset: outcome count %d out of range for %d columns", d.OutcomeCount, len(d.Columns))
	}
	if len(d.RowIndex) != len(d.Rows) {
		return fmt.Errorf("dataset: row index length %d != row count %d", len(d.RowIndex), len(d.Rows))
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return fmt.Errorf("dataset: row %d has %d values, want %d", i, len(row), len(d.Columns))
		}
	}
	if len(d.DateIndex) > 0 {
		if len(d.DateIndex) != len(d.RowIndex) {
			return fmt.Errorf("dataset: date index length %d != row index length %d", len(d.DateIndex), len(d.RowIndex))
		}
		if d.Frequency <= 0 {
			return fmt.Errorf("dataset: date indexing requires a positive frequency")
		}
		// 날짜 인덱스는 단조 증가해야 함
		for i := 1; i < len(d.DateIndex); i++ {
			if d.DateIndex[i].Before(d.DateIndex[i-1]) {
				return fmt.Errorf("dataset: date index not monotonic at position %d", i)
			}
		}
	}
	features := d.FeatureColumns()
	for _, g := range d.GroupColumns {
		found := false
		for _, f := range features {
			if f == g {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("dataset: group column %q is not a feature column", g)
		}
	}
	return nil
}

// Metadata carries process-wide annotations alongside trained models and
// result tables. It is created once by the trainer and never mutated.
// ⭐ SSOT: 결과 테이블 레벨 메타데이터는 이 구조체로만 전달
type Metadata struct {
	ModelName      string        `json:"model_name"`
	Horizons       []int         `json:"horizons"`
	OutcomeColumns []string      `json:"outcome_columns"`
	GroupColumns   []string      `json:"group_columns,omitempty"`
	Indexing       IndexMode     `json:"indexing"`
	RowIndex       []int         `json:"row_index"`
	DateIndex      []time.Time   `json:"date_index,omitempty"`
	Frequency      time.Duration `json:"frequency,omitempty"`
	LastRowIndex   int           `json:"last_row_index"`
	LastDate       time.Time     `json:"last_date,omitempty"`
}
