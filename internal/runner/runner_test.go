package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/gridcast/internal/contracts"
	"github.com/wonny/gridcast/pkg/config"
	"github.com/wonny/gridcast/pkg/logger"
)

// writeDataDir lays out a complete input directory: two horizons, a window
// table, and matching future feature sets
func writeDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	for _, h := range []int{1, 2} {
		lagged := "y,x1\n"
		for i := 1; i <= 30; i++ {
			lagged += fmt.Sprintf("%d,%d\n", i, i*2)
		}
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, fmt.Sprintf("lagged_h%d.csv", h)), []byte(lagged), 0o644))

		forecast := "horizon,x1\n"
		for s := 1; s <= h; s++ {
			forecast += fmt.Sprintf("%d,%d\n", s, 100+s)
		}
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, fmt.Sprintf("forecast_h%d.csv", h)), []byte(forecast), 0o644))
	}

	windows := "length,start,stop\n10,21,30\n0,21,30\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, WindowFile), []byte(windows), 0o644))
	return dir
}

func testRunner(t *testing.T, dir string) *Runner {
	t.Helper()
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "error",
		LogFormat: "console",
		Engine: config.EngineConfig{
			Workers:      2,
			DataDir:      dir,
			ModelName:    "mean",
			OutcomeCount: 1,
		},
	}
	return New(cfg, logger.New(cfg), nil, nil)
}

func TestRunnerBacktest(t *testing.T) {
	r := testRunner(t, writeDataDir(t))

	res, runID, err := r.Backtest(context.Background(), "mean")
	require.NoError(t, err)

	assert.Equal(t, contracts.ModeBacktest, res.Mode)
	assert.Zero(t, runID, "no store attached")
	// 2 horizons × 2 windows × 10 validation rows
	assert.Len(t, res.Rows, 40)
	assert.Equal(t, []string{"mean"}, res.ModelNames())
}

func TestRunnerForecast(t *testing.T) {
	r := testRunner(t, writeDataDir(t))

	res, _, err := r.Forecast(context.Background(), "mean")
	require.NoError(t, err)

	assert.Equal(t, contracts.ModeForecast, res.Mode)
	// (h1: 1 step + h2: 2 steps) × 2 windows
	require.Len(t, res.Rows, 6)
	for _, row := range res.Rows {
		// 마지막 관측 행 30에서 연장
		assert.Equal(t, 30+row.ForecastStep, row.ForecastRow)
		assert.Empty(t, row.Actual)
	}
}

func TestRunnerUnknownModel(t *testing.T) {
	r := testRunner(t, writeDataDir(t))

	_, _, err := r.Backtest(context.Background(), "prophet")
	assert.ErrorContains(t, err, "unknown built-in model")
}

func TestRunnerMissingInputs(t *testing.T) {
	r := testRunner(t, t.TempDir())

	_, _, err := r.Backtest(context.Background(), "mean")
	assert.ErrorContains(t, err, "no lagged_h")
}
