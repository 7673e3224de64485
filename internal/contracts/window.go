package contracts

import (
	"fmt"
	"time"
)

// Window is one candidate validation window.
//
// Length 0 is the "no nested cross-validation" sentinel: the model trains on
// the full dataset and the window bounds only select the rows reported as
// its (in-sample) validation slice. Bounds are closed on both ends and use
// either the row fields or the date fields, matching the WindowSpec's
// indexing mode.
type Window struct {
	Length    int       `json:"length"`
	StartRow  int       `json:"start_row,omitempty"`
	StopRow   int       `json:"stop_row,omitempty"`
	StartDate time.Time `json:"start_date,omitempty"`
	StopDate  time.Time `json:"stop_date,omitempty"`
}

// WindowSpec is the ordered table of candidate validation windows.
// ⭐ SSOT: 윈도우 정의는 이 테이블로만 전달
type WindowSpec struct {
	Indexing IndexMode `json:"indexing"`
	Windows  []Window  `json:"windows"`
}

// Validate checks bound consistency with the indexing mode
func (s WindowSpec) Validate() error {
	if s.Indexing != IndexRow && s.Indexing != IndexDate {
		return fmt.Errorf("windows: unknown indexing mode %q", s.Indexing)
	}
	if len(s.Windows) == 0 {
		return fmt.Errorf("windows: empty window table")
	}
	for i, w := range s.Windows {
		if w.Length < 0 {
			return fmt.Errorf("windows: window %d has negative length %d", i+1, w.Length)
		}
		switch s.Indexing {
		case IndexRow:
			if w.StopRow < w.StartRow {
				return fmt.Errorf("windows: window %d stop row %d before start row %d", i+1, w.StopRow, w.StartRow)
			}
		case IndexDate:
			if w.StartDate.IsZero() || w.StopDate.IsZero() {
				return fmt.Errorf("windows: window %d is missing date bounds", i+1)
			}
			if w.StopDate.Before(w.StartDate) {
				return fmt.Errorf("windows: window %d stop date before start date", i+1)
			}
		}
	}
	return nil
}
