package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/gridcast/internal/contracts"
	"github.com/wonny/gridcast/internal/runner"
	"github.com/wonny/gridcast/internal/store"
	"github.com/wonny/gridcast/pkg/config"
	"github.com/wonny/gridcast/pkg/database"
	"github.com/wonny/gridcast/pkg/logger"
	"github.com/wonny/gridcast/pkg/redis"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "백테스트 실행 - 검증 윈도우 예측 vs 실측",
	Long: `윈도우 그리드 전체에 모델을 학습하고 각 검증 윈도우를 예측합니다.

각 (horizon, window) 조합마다 모델을 하나씩 학습한 뒤, 해당 윈도우의
검증 구간을 예측하여 실측값과 나란히 반환합니다.

Example:
  go run ./cmd/gridcast backtest --model ols
  go run ./cmd/gridcast backtest --model mean --data-dir ./data --save`,
	RunE: runBacktest,
}

var (
	runModel   string
	runDataDir string
	runSave    bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&runModel, "model", "", "모델 이름 (mean|ols, 기본: 설정값)")
	backtestCmd.Flags().StringVar(&runDataDir, "data-dir", "", "입력 CSV 디렉터리 (기본: 설정값)")
	backtestCmd.Flags().BoolVar(&runSave, "save", false, "결과를 DB에 저장")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Gridcast Backtest ===")

	ctx := cmd.Context()

	r, modelName, cleanup, err := initRunner()
	if err != nil {
		return err
	}
	defer cleanup()

	res, runID, err := r.Backtest(ctx, modelName)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	printResult(res, runID)
	return nil
}

// initRunner builds a runner from config and flags. The returned cleanup
// closes whatever connections were opened.
func initRunner() (*runner.Runner, string, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, "", nil, fmt.Errorf("load config: %w", err)
	}
	if runDataDir != "" {
		cfg.Engine.DataDir = runDataDir
	}

	modelName := cfg.Engine.ModelName
	if runModel != "" {
		modelName = runModel
	}

	log := logger.New(cfg)

	cleanup := func() {}
	var repo *store.Repository
	var cache *redis.Cache

	// --save 없이는 DB/Redis 연결 자체를 열지 않음
	if runSave {
		db, err := database.New(cfg)
		if err != nil {
			return nil, "", nil, fmt.Errorf("connect to database: %w", err)
		}
		repo = store.NewRepository(db.Pool)

		rdb, err := redis.New(cfg)
		if err != nil {
			db.Close()
			return nil, "", nil, fmt.Errorf("connect to redis: %w", err)
		}
		cache = redis.NewCache(rdb, "gridcast")

		cleanup = func() {
			rdb.Close()
			db.Close()
		}
	}

	return runner.New(cfg, log, repo, cache), modelName, cleanup, nil
}

// printResult prints a short run summary to stdout
func printResult(res *contracts.PredictionResult, runID int64) {
	fmt.Printf("\n✅ Run completed: mode=%s models=%v rows=%d\n",
		res.Mode, res.ModelNames(), len(res.Rows))
	if runID > 0 {
		fmt.Printf("   Saved as run #%d\n", runID)
	}

	// 처음 몇 행만 미리보기
	preview := 10
	if len(res.Rows) < preview {
		preview = len(res.Rows)
	}
	if preview == 0 {
		return
	}

	fmt.Println("\nPreview:")
	for _, row := range res.Rows[:preview] {
		switch res.Mode {
		case contracts.ModeBacktest:
			fmt.Printf("  %-10s h=%-3d w=%-2d row=%-5d actual=%v predicted=%v\n",
				row.ModelName, row.Horizon, row.WindowNumber, row.RowIndex,
				row.Actual, row.Predicted)
		case contracts.ModeForecast:
			fmt.Printf("  %-10s h=%-3d w=%-2d step=%-3d period=%d predicted=%v\n",
				row.ModelName, row.Horizon, row.WindowNumber, row.ForecastStep,
				row.ForecastRow, row.Predicted)
		}
	}
	if len(res.Rows) > preview {
		fmt.Printf("  ... %d more rows\n", len(res.Rows)-preview)
	}
}
