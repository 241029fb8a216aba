package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/macrofactor/internal/modelconfig"
	"github.com/wonny/macrofactor/internal/pipeline"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <model.yaml>",
	Short: "모델 실행 (수집 → 정렬 → 회귀 → 진단)",
	Long: `모델 파일을 읽어 전체 파이프라인을 실행합니다.

단계:
  1. target 수집 및 변환 (거래일 인덱스 결정)
  2. factor 수집, 변환, 인덱스 정렬 (일간: forward fill, 월간/주간: 분배)
  3. OLS 적합
  4. 진단 (VIF, RESET, Durbin-Watson, Jarque-Bera, Q-Q)

Example:
  go run ./cmd/macro run configs/models/petr4_macro.yaml
  go run ./cmd/macro run configs/models/petr4_macro.yaml --qq-plot out/qq.png`,
	Args: cobra.ExactArgs(1),
	RunE: runModel,
}

var (
	// Run flags
	runQQPlot string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runQQPlot, "qq-plot", "", "write the residual Q-Q plot here (overrides the model file)")
}

func runModel(cmd *cobra.Command, args []string) error {
	model, err := modelconfig.Load(args[0])
	if err != nil {
		return err
	}
	if runQQPlot != "" {
		model.Regression.QQPlot = runQQPlot
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, model.Providers())
	if err != nil {
		return err
	}
	defer a.Close()

	runner := pipeline.NewRunner(a.registry, a.log)
	report, err := runner.Run(ctx, model)
	if err != nil {
		if len(report.CompletedStages) > 0 {
			PrintInfo(fmt.Sprintf("Completed stages: %s", strings.Join(report.CompletedStages, " → ")))
		}
		return err
	}

	PrintReport(report)
	return nil
}
