package contracts

import "fmt"

// ForecastDataset holds the future feature rows for one model horizon. The
// provider's horizon-step tag column is already stripped into Steps; Columns
// and Rows carry features only.
type ForecastDataset struct {
	Horizon int         `json:"horizon"`
	Steps   []int       `json:"steps"`
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// Validate checks step/row alignment and ascending step order
func (f ForecastDataset) Validate() error {
	if f.Horizon < 1 {
		return fmt.Errorf("forecast data: horizon must be >= 1, got %d", f.Horizon)
	}
	if len(f.Steps) != len(f.Rows) {
		return fmt.Errorf("forecast data: horizon %d has %d steps but %d rows", f.Horizon, len(f.Steps), len(f.Rows))
	}
	for i, s := range f.Steps {
		if s < 1 {
			return fmt.Errorf("forecast data: horizon %d step %d must be >= 1", f.Horizon, s)
		}
		if i > 0 && s <= f.Steps[i-1] {
			return fmt.Errorf("forecast data: horizon %d steps not ascending at position %d", f.Horizon, i)
		}
	}
	for i, row := range f.Rows {
		if len(row) != len(f.Columns) {
			return fmt.Errorf("forecast data: horizon %d row %d has %d values, want %d", f.Horizon, i, len(row), len(f.Columns))
		}
	}
	return nil
}

// ForecastData is the forecast-mode input: one future feature set per model
// horizon, in ascending step order.
type ForecastData struct {
	Sets []ForecastDataset `json:"sets"`
}

// ForHorizon returns the future feature set for a model horizon
func (f *ForecastData) ForHorizon(horizon int) (*ForecastDataset, bool) {
	for i := range f.Sets {
		if f.Sets[i].Horizon == horizon {
			return &f.Sets[i], true
		}
	}
	return nil, false
}

// Validate validates every set
func (f *ForecastData) Validate() error {
	if len(f.Sets) == 0 {
		return fmt.Errorf("forecast data: no future feature sets")
	}
	for _, s := range f.Sets {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
