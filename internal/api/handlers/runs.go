package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"github.com/wonny/gridcast/internal/contracts"
	"github.com/wonny/gridcast/internal/store"
	"github.com/wonny/gridcast/pkg/logger"
	"github.com/wonny/gridcast/pkg/redis"
)

// RunsHandler handles prediction run API endpoints
// ⭐ SSOT: Run API 핸들러는 이 구조체에서만
type RunsHandler struct {
	repo   *store.Repository
	cache  *redis.Cache
	logger *logger.Logger
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(repo *store.Repository, cache *redis.Cache, log *logger.Logger) *RunsHandler {
	return &RunsHandler{
		repo:   repo,
		cache:  cache,
		logger: log,
	}
}

// ListRuns returns recent prediction runs
// GET /api/runs?limit=50
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := queryInt(r, "limit", 50)
	runs, err := h.repo.ListRuns(ctx, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun returns one run's summary
// GET /api/runs/:id
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	// 완료된 실행 요약은 캐시 우선
	var run store.Run
	found, err := h.cache.Get(ctx, redis.RunSummaryKey(id), &run)
	if err == nil && found {
		respondJSON(w, http.StatusOK, &run)
		return
	}

	got, err := h.repo.GetRun(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			respondError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.WithError(err).WithRun(id).Error("Failed to get run")
		respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	if err := h.cache.Set(ctx, redis.RunSummaryKey(id), got, redis.TTLMedium); err != nil {
		h.logger.WithError(err).Warn("Failed to cache run summary")
	}
	respondJSON(w, http.StatusOK, got)
}

// GetRunRows returns one run's result rows, paginated in stored order
// GET /api/runs/:id/rows?limit=1000&offset=0
func (h *RunsHandler) GetRunRows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	limit := queryInt(r, "limit", 1000)
	offset := queryInt(r, "offset", 0)

	rows, err := h.repo.GetRows(ctx, id, limit, offset)
	if err != nil {
		h.logger.WithError(err).WithRun(id).Error("Failed to get run rows")
		respondError(w, http.StatusInternalServerError, "failed to get run rows")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": id,
		"rows":   rows,
		"count":  len(rows),
		"offset": offset,
	})
}

// GetLatestRun returns the newest run for a model and mode
// GET /api/runs/latest/:model?mode=forecast
func (h *RunsHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	model := mux.Vars(r)["model"]

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = string(contracts.ModeForecast)
	}
	if mode != string(contracts.ModeForecast) && mode != string(contracts.ModeBacktest) {
		respondError(w, http.StatusBadRequest, "mode must be forecast or backtest")
		return
	}

	var run store.Run
	found, err := h.cache.Get(ctx, redis.LatestRunKey(model, mode), &run)
	if err == nil && found {
		respondJSON(w, http.StatusOK, &run)
		return
	}

	got, err := h.repo.LatestRun(ctx, model, contracts.ResultMode(mode))
	if err != nil {
		if err == pgx.ErrNoRows {
			respondError(w, http.StatusNotFound, "no run for model")
			return
		}
		h.logger.WithError(err).WithModel(model).Error("Failed to get latest run")
		respondError(w, http.StatusInternalServerError, "failed to get latest run")
		return
	}

	if err := h.cache.Set(ctx, redis.LatestRunKey(model, mode), got, redis.TTLShort); err != nil {
		h.logger.WithError(err).Warn("Failed to cache latest run")
	}
	respondJSON(w, http.StatusOK, got)
}

// Helper functions

func queryInt(r *http.Request, name string, def int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
