// Package store persists prediction runs in PostgreSQL. The engine never
// touches the store; the CLI, API, and scheduler are its callers.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/gridcast/internal/contracts"
)

// Run is one persisted prediction run (one PredictionResult)
type Run struct {
	ID        int64                `json:"id"`
	Mode      contracts.ResultMode `json:"mode"`
	Models    []string             `json:"models"`
	RowCount  int                  `json:"row_count"`
	Meta      []contracts.Metadata `json:"meta"`
	CreatedAt time.Time            `json:"created_at"`
}

// Repository 예측 실행 결과 저장소
// ⭐ SSOT: 실행 결과 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository 새 저장소 생성
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveResult persists one result table and returns the run id
func (r *Repository) SaveResult(ctx context.Context, res *contracts.PredictionResult) (int64, error) {
	if res == nil {
		return 0, fmt.Errorf("store: nil result")
	}

	metaJSON, err := json.Marshal(res.Models)
	if err != nil {
		return 0, fmt.Errorf("store: marshal metadata: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var runID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO gridcast.runs (mode, models, row_count, meta)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		string(res.Mode), res.ModelNames(), len(res.Rows), metaJSON,
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("store: insert run: %w", err)
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO gridcast.prediction_rows
			(run_id, model_name, horizon, window_length, window_number,
			 row_index, val_date, groups, actual, predicted,
			 forecast_step, forecast_row, forecast_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	for _, row := range res.Rows {
		groupsJSON, err := json.Marshal(row.Groups)
		if err != nil {
			return 0, fmt.Errorf("store: marshal groups: %w", err)
		}
		batch.Queue(query,
			runID, row.ModelName, row.Horizon, row.WindowLength, row.WindowNumber,
			row.RowIndex, nullTime(row.Date), groupsJSON, row.Actual, row.Predicted,
			row.ForecastStep, row.ForecastRow, nullTime(row.ForecastDate))
	}

	br := tx.SendBatch(ctx, batch)
	for range res.Rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("store: insert rows: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("store: close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return runID, nil
}

// GetRun 실행 조회
func (r *Repository) GetRun(ctx context.Context, id int64) (*Run, error) {
	query := `
		SELECT id, mode, models, row_count, meta, created_at
		FROM gridcast.runs
		WHERE id = $1`

	var (
		run      Run
		mode     string
		metaJSON []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &mode, &run.Models, &run.RowCount, &metaJSON, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Mode = contracts.ResultMode(mode)
	if err := json.Unmarshal(metaJSON, &run.Meta); err != nil {
		return nil, fmt.Errorf("store: unmarshal metadata: %w", err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, mode, models, row_count, meta, created_at
		FROM gridcast.runs
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			mode     string
			metaJSON []byte
		)
		if err := rows.Scan(&run.ID, &mode, &run.Models, &run.RowCount, &metaJSON, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.Mode = contracts.ResultMode(mode)
		if err := json.Unmarshal(metaJSON, &run.Meta); err != nil {
			return nil, fmt.Errorf("store: unmarshal metadata: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRows returns one run's result rows in stored (assembled) order
func (r *Repository) GetRows(ctx context.Context, runID int64, limit, offset int) ([]contracts.ResultRow, error) {
	if limit <= 0 {
		limit = 1000
	}
	query := `
		SELECT model_name, horizon, window_length, window_number,
			   row_index, val_date, groups, actual, predicted,
			   forecast_step, forecast_row, forecast_date
		FROM gridcast.prediction_rows
		WHERE run_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, runID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contracts.ResultRow
	for rows.Next() {
		var (
			row          contracts.ResultRow
			valDate      *time.Time
			forecastDate *time.Time
			groupsJSON   []byte
		)
		err := rows.Scan(
			&row.ModelName, &row.Horizon, &row.WindowLength, &row.WindowNumber,
			&row.RowIndex, &valDate, &groupsJSON, &row.Actual, &row.Predicted,
			&row.ForecastStep, &row.ForecastRow, &forecastDate,
		)
		if err != nil {
			return nil, err
		}
		if valDate != nil {
			row.Date = *valDate
		}
		if forecastDate != nil {
			row.ForecastDate = *forecastDate
		}
		if len(groupsJSON) > 0 {
			if err := json.Unmarshal(groupsJSON, &row.Groups); err != nil {
				return nil, fmt.Errorf("store: unmarshal groups: %w", err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// LatestRun returns the newest run for a model name and mode
func (r *Repository) LatestRun(ctx context.Context, modelName string, mode contracts.ResultMode) (*Run, error) {
	query := `
		SELECT id, mode, models, row_count, meta, created_at
		FROM gridcast.runs
		WHERE $1 = ANY(models) AND mode = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var (
		run      Run
		modeStr  string
		metaJSON []byte
	)
	err := r.pool.QueryRow(ctx, query, modelName, string(mode)).Scan(
		&run.ID, &modeStr, &run.Models, &run.RowCount, &metaJSON, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Mode = contracts.ResultMode(modeStr)
	if err := json.Unmarshal(metaJSON, &run.Meta); err != nil {
		return nil, fmt.Errorf("store: unmarshal metadata: %w", err)
	}
	return &run, nil
}

// nullTime maps the zero time to NULL
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
