package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "예측 실행 - 관측 구간 이후 미래 구간 예측",
	Long: `윈도우 그리드 전체에 모델을 학습하고 관측 데이터 이후를 예측합니다.

각 horizon의 forecast_h<horizon>.csv 미래 피처셋을 입력으로, 그리드의
모든 모델이 1..horizon 단계 앞을 예측합니다. 예측 구간(period)은 마지막
관측 행/날짜에서 자동으로 연장됩니다.

Example:
  go run ./cmd/gridcast forecast --model mean
  go run ./cmd/gridcast forecast --model ols --save`,
	RunE: runForecast,
}

func init() {
	rootCmd.AddCommand(forecastCmd)

	forecastCmd.Flags().StringVar(&runModel, "model", "", "모델 이름 (mean|ols, 기본: 설정값)")
	forecastCmd.Flags().StringVar(&runDataDir, "data-dir", "", "입력 CSV 디렉터리 (기본: 설정값)")
	forecastCmd.Flags().BoolVar(&runSave, "save", false, "결과를 DB에 저장")
}

func runForecast(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Gridcast Forecast ===")

	ctx := cmd.Context()

	r, modelName, cleanup, err := initRunner()
	if err != nil {
		return err
	}
	defer cleanup()

	res, runID, err := r.Forecast(ctx, modelName)
	if err != nil {
		return fmt.Errorf("forecast: %w", err)
	}

	printResult(res, runID)
	return nil
}
