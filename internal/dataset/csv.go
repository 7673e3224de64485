// Package dataset provides CSV-backed providers for the engine's external
// collaborators: lagged horizon datasets, window tables, and future feature
// sets. Lag construction itself happens upstream; this package only parses
// already-lagged tables.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/wonny/gridcast/internal/contracts"
)

// DefaultDateFormat CSV 날짜 컬럼 기본 포맷
const DefaultDateFormat = "2006-01-02"

// LoadOptions configures lagged CSV parsing
type LoadOptions struct {
	OutcomeCount int
	IndexColumn  string // explicit row-index column; "" = 1..N in file order
	DateColumn   string // date-index column; "" = row indexing
	DateFormat   string // defaults to DefaultDateFormat
	Frequency    time.Duration
	GroupColumns []string
}

// LoadLagged reads one horizon's lagged dataset from a CSV file. Outcome
// columns must occupy the leading value columns, after the optional index
// and date columns are removed.
func LoadLagged(path string, horizon int, opts LoadOptions) (*contracts.LaggedDataset, error) {
	header, records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	dateFormat := opts.DateFormat
	if dateFormat == "" {
		dateFormat = DefaultDateFormat
	}

	idxPos, datePos := -1, -1
	var columns []string
	var valuePos []int
	for i, name := range header {
		switch {
		case opts.IndexColumn != "" && name == opts.IndexColumn:
			idxPos = i
		case opts.DateColumn != "" && name == opts.DateColumn:
			datePos = i
		default:
			columns = append(columns, name)
			valuePos = append(valuePos, i)
		}
	}
	if opts.IndexColumn != "" && idxPos < 0 {
		return nil, fmt.Errorf("dataset csv %s: index column %q not found", path, opts.IndexColumn)
	}
	if opts.DateColumn != "" && datePos < 0 {
		return nil, fmt.Errorf("dataset csv %s: date column %q not found", path, opts.DateColumn)
	}

	ds := &contracts.LaggedDataset{
		Horizon:      horizon,
		Columns:      columns,
		OutcomeCount: opts.OutcomeCount,
		GroupColumns: opts.GroupColumns,
	}
	if datePos >= 0 {
		ds.Frequency = opts.Frequency
	}

	for rowNum, rec := range records {
		row := make([]float64, len(valuePos))
		for j, pos := range valuePos {
			v, err := strconv.ParseFloat(rec[pos], 64)
			if err != nil {
				return nil, fmt.Errorf("dataset csv %s: row %d column %q: %w", path, rowNum+2, columns[j], err)
			}
			row[j] = v
		}
		ds.Rows = append(ds.Rows, row)

		if idxPos >= 0 {
			idx, err := strconv.Atoi(rec[idxPos])
			if err != nil {
				return nil, fmt.Errorf("dataset csv %s: row %d index: %w", path, rowNum+2, err)
			}
			ds.RowIndex = append(ds.RowIndex, idx)
		} else {
			ds.RowIndex = append(ds.RowIndex, rowNum+1)
		}

		if datePos >= 0 {
			d, err := time.Parse(dateFormat, rec[datePos])
			if err != nil {
				return nil, fmt.Errorf("dataset csv %s: row %d date: %w", path, rowNum+2, err)
			}
			ds.DateIndex = append(ds.DateIndex, d)
		}
	}

	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("dataset csv %s: %w", path, err)
	}
	return ds, nil
}

// LoadLaggedDir loads lagged_h<horizon>.csv for every requested horizon
func LoadLaggedDir(dir string, horizons []int, opts LoadOptions) ([]contracts.LaggedDataset, error) {
	if len(horizons) == 0 {
		return nil, fmt.Errorf("dataset: no horizons requested")
	}
	out := make([]contracts.LaggedDataset, 0, len(horizons))
	for _, h := range horizons {
		path := filepath.Join(dir, fmt.Sprintf("lagged_h%d.csv", h))
		ds, err := LoadLagged(path, h, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, *ds)
	}
	return out, nil
}

// DiscoverHorizons scans a directory for lagged_h<horizon>.csv files and
// returns the horizons found, ascending
func DiscoverHorizons(dir string) ([]int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "lagged_h*.csv"))
	if err != nil {
		return nil, fmt.Errorf("dataset: scan %s: %w", dir, err)
	}
	var horizons []int
	for _, m := range matches {
		var h int
		if _, err := fmt.Sscanf(filepath.Base(m), "lagged_h%d.csv", &h); err == nil && h >= 1 {
			horizons = append(horizons, h)
		}
	}
	if len(horizons) == 0 {
		return nil, fmt.Errorf("dataset: no lagged_h*.csv files in %s", dir)
	}
	sort.Ints(horizons)
	return horizons, nil
}

// LoadWindows reads the window table. Expected columns: length, start, stop.
// In date mode start/stop are parsed with the date format, otherwise as row
// indices.
func LoadWindows(path string, indexing contracts.IndexMode, dateFormat string) (contracts.WindowSpec, error) {
	header, records, err := readCSV(path)
	if err != nil {
		return contracts.WindowSpec{}, err
	}
	if dateFormat == "" {
		dateFormat = DefaultDateFormat
	}

	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		return -1
	}
	lenPos, startPos, stopPos := col("length"), col("start"), col("stop")
	if lenPos < 0 || startPos < 0 || stopPos < 0 {
		return contracts.WindowSpec{}, fmt.Errorf("windows csv %s: need length, start, stop columns", path)
	}

	spec := contracts.WindowSpec{Indexing: indexing}
	for rowNum, rec := range records {
		length, err := strconv.Atoi(rec[lenPos])
		if err != nil {
			return contracts.WindowSpec{}, fmt.Errorf("windows csv %s: row %d length: %w", path, rowNum+2, err)
		}
		w := contracts.Window{Length: length}
		switch indexing {
		case contracts.IndexRow:
			if w.StartRow, err = strconv.Atoi(rec[startPos]); err != nil {
				return contracts.WindowSpec{}, fmt.Errorf("windows csv %s: row %d start: %w", path, rowNum+2, err)
			}
			if w.StopRow, err = strconv.Atoi(rec[stopPos]); err != nil {
				return contracts.WindowSpec{}, fmt.Errorf("windows csv %s: row %d stop: %w", path, rowNum+2, err)
			}
		case contracts.IndexDate:
			if w.StartDate, err = time.Parse(dateFormat, rec[startPos]); err != nil {
				return contracts.WindowSpec{}, fmt.Errorf("windows csv %s: row %d start: %w", path, rowNum+2, err)
			}
			if w.StopDate, err = time.Parse(dateFormat, rec[stopPos]); err != nil {
				return contracts.WindowSpec{}, fmt.Errorf("windows csv %s: row %d stop: %w", path, rowNum+2, err)
			}
		}
		spec.Windows = append(spec.Windows, w)
	}

	if err := spec.Validate(); err != nil {
		return contracts.WindowSpec{}, fmt.Errorf("windows csv %s: %w", path, err)
	}
	return spec, nil
}

// TagColumn is the horizon-step tag column of forecast CSV files
const TagColumn = "horizon"

// LoadForecastSet reads one model horizon's future feature rows. The step
// tag column is stripped into Steps; the remaining columns are features.
func LoadForecastSet(path string, horizon int) (contracts.ForecastDataset, error) {
	header, records, err := readCSV(path)
	if err != nil {
		return contracts.ForecastDataset{}, err
	}

	tagPos := -1
	var columns []string
	var valuePos []int
	for i, name := range header {
		if name == TagColumn {
			tagPos = i
			continue
		}
		columns = append(columns, name)
		valuePos = append(valuePos, i)
	}
	if tagPos < 0 {
		return contracts.ForecastDataset{}, fmt.Errorf("forecast csv %s: tag column %q not found", path, TagColumn)
	}

	set := contracts.ForecastDataset{Horizon: horizon, Columns: columns}
	for rowNum, rec := range records {
		step, err := strconv.Atoi(rec[tagPos])
		if err != nil {
			return contracts.ForecastDataset{}, fmt.Errorf("forecast csv %s: row %d step tag: %w", path, rowNum+2, err)
		}
		row := make([]float64, len(valuePos))
		for j, pos := range valuePos {
			v, err := strconv.ParseFloat(rec[pos], 64)
			if err != nil {
				return contracts.ForecastDataset{}, fmt.Errorf("forecast csv %s: row %d column %q: %w", path, rowNum+2, columns[j], err)
			}
			row[j] = v
		}
		set.Steps = append(set.Steps, step)
		set.Rows = append(set.Rows, row)
	}

	if err := set.Validate(); err != nil {
		return contracts.ForecastDataset{}, fmt.Errorf("forecast csv %s: %w", path, err)
	}
	return set, nil
}

// LoadForecastDir loads forecast_h<horizon>.csv for every requested horizon
func LoadForecastDir(dir string, horizons []int) (*contracts.ForecastData, error) {
	fd := &contracts.ForecastData{}
	for _, h := range horizons {
		path := filepath.Join(dir, fmt.Sprintf("forecast_h%d.csv", h))
		set, err := LoadForecastSet(path, h)
		if err != nil {
			return nil, err
		}
		fd.Sets = append(fd.Sets, set)
	}
	return fd, nil
}

// readCSV reads a CSV file into a header and data records
func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(all) < 1 {
		return nil, nil, fmt.Errorf("read csv %s: empty file", path)
	}
	return all[0], all[1:], nil
}
