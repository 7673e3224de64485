package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gridcast",
	Short: "Gridcast - 수평선×윈도우 그리드 예측 엔진",
	Long: `Gridcast CLI

수평선(horizon)별 시차 데이터셋과 중첩 교차검증 윈도우 그리드 위에서
모델을 학습하고 백테스트/예측을 실행합니다.

Usage:
  go run ./cmd/gridcast [command]

Examples:
  go run ./cmd/gridcast backtest --model ols
  go run ./cmd/gridcast forecast --model mean --save
  go run ./cmd/gridcast api
  go run ./cmd/gridcast scheduler start`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
