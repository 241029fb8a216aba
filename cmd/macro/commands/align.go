package commands

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/macrofactor/internal/align"
	"github.com/wonny/macrofactor/internal/calendar"
	"github.com/wonny/macrofactor/internal/modelconfig"
	"github.com/wonny/macrofactor/internal/pipeline"
	"github.com/wonny/macrofactor/internal/series"
)

// verifyTolerance is the largest accepted |recomposed - input| per period
const verifyTolerance = 1e-9

// alignCmd represents the align command
var alignCmd = &cobra.Command{
	Use:   "align <provider> <series>",
	Short: "월간/주간 지표를 거래일 인덱스로 분배",
	Long: `월간 또는 주간 비율 시계열을 거래일 인덱스 위의 일간 환산값으로 분배합니다.

인덱스는 target 시계열의 날짜(--target-provider, --target-series)
또는 거래소 캘린더(--calendar MIC, --start, --end 필수)에서 가져옵니다.

  simple: 일간값 = (1+r)^(1/n) - 1
  log:    일간값 = r/n
  n = 해당 기간에 속한 인덱스 날짜 수

--verify 는 일간값을 다시 기간별로 합성해 입력값과 비교합니다.

Example:
  go run ./cmd/macro align sgs 433 --scale 0.01 --calendar bvmf --start 2024-01-01 --end 2024-06-30 --verify
  go run ./cmd/macro align sgs 433 --scale 0.01 --target-provider localfile --target-series data/petr4.csv --release-lag shift_one`,
	Args: cobra.ExactArgs(2),
	RunE: runAlign,
}

var (
	// Align flags
	alignTargetProvider string
	alignTargetSeries   string
	alignCalendar       string
	alignStart          string
	alignEnd            string
	alignFrequency      string
	alignReturnType     string
	alignReleaseLag     string
	alignWeekAnchor     string
	alignScale          float64
	alignTransform      string
	alignVerify         bool
	alignLimit          int
)

func init() {
	rootCmd.AddCommand(alignCmd)

	alignCmd.Flags().StringVar(&alignTargetProvider, "target-provider", "", "provider of the series whose dates form the index")
	alignCmd.Flags().StringVar(&alignTargetSeries, "target-series", "", "series whose dates form the index")
	alignCmd.Flags().StringVar(&alignCalendar, "calendar", "", "exchange MIC whose trading days form the index (e.g. xnys, bvmf)")
	alignCmd.Flags().StringVar(&alignStart, "start", "", "start date YYYY-MM-DD")
	alignCmd.Flags().StringVar(&alignEnd, "end", "", "end date YYYY-MM-DD")
	alignCmd.Flags().StringVar(&alignFrequency, "frequency", string(align.Monthly), "monthly | weekly")
	alignCmd.Flags().StringVar(&alignReturnType, "return-type", string(align.Simple), "simple | log")
	alignCmd.Flags().StringVar(&alignReleaseLag, "release-lag", string(align.NoLag), "none | shift_one")
	alignCmd.Flags().StringVar(&alignWeekAnchor, "week-anchor", "sun", "weekday that closes a weekly period")
	alignCmd.Flags().Float64Var(&alignScale, "scale", 1, "multiply the periodic values first (0.01 for percent)")
	alignCmd.Flags().StringVar(&alignTransform, "transform", modelconfig.TransformNone, "transform applied to the periodic series")
	alignCmd.Flags().BoolVar(&alignVerify, "verify", false, "recompose the daily values and compare with the input")
	alignCmd.Flags().IntVar(&alignLimit, "limit", 30, "print only the last N points (0 = all)")

	alignCmd.MarkFlagsMutuallyExclusive("calendar", "target-series")
	alignCmd.MarkFlagsRequiredTogether("target-provider", "target-series")
}

func runAlign(cmd *cobra.Command, args []string) error {
	// 설정 오류는 데이터 수집 전에 보고
	opts, err := alignOptions()
	if err != nil {
		return err
	}
	rng, err := parseRange(alignStart, alignEnd)
	if err != nil {
		return err
	}
	if alignCalendar == "" && alignTargetSeries == "" {
		return errors.New("an index is required: --calendar or --target-provider/--target-series")
	}

	name := strings.ToLower(args[0])
	providers := []string{name}
	if alignTargetProvider != "" {
		providers = append(providers, strings.ToLower(alignTargetProvider))
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, providers)
	if err != nil {
		return err
	}
	defer a.Close()
	runner := pipeline.NewRunner(a.registry, a.log)

	// 1. Index
	var index series.Index
	if alignCalendar != "" {
		cal := calendar.New(alignCalendar)
		if cal.Fallback() {
			PrintWarning(fmt.Sprintf("unknown exchange %q, using Monday-Friday", alignCalendar))
		}
		if index, err = cal.TradingDays(rng.Start, rng.End); err != nil {
			return err
		}
	} else {
		target, _, err := runner.LoadSeries(ctx, modelconfig.SeriesSpec{
			Provider: strings.ToLower(alignTargetProvider), Series: alignTargetSeries,
		}, rng)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		index = series.NewIndex(target.Dates())
	}

	// 2. Periodic series
	scale := alignScale
	periodic, _, err := runner.LoadSeries(ctx, modelconfig.SeriesSpec{
		Provider: name, Series: args[1], Scale: &scale, Transform: alignTransform,
	}, rng)
	if err != nil {
		return err
	}
	periodic = periodic.DropMissing()

	// 3. Distribute
	aligned, err := align.Distribute(periodic, index, args[1], opts)
	if err != nil {
		return err
	}

	PrintHeader(fmt.Sprintf("Align %s / %s", name, args[1]))
	PrintKeyValue("Frequency", string(opts.Frequency), 12)
	PrintKeyValue("Return type", string(opts.ReturnType), 12)
	PrintKeyValue("Release lag", string(opts.ReleaseLag), 12)
	if opts.Frequency == align.Weekly {
		PrintKeyValue("Week anchor", opts.WeekAnchor.String(), 12)
	}
	PrintKeyValue("Periods", fmt.Sprint(periodic.Len()), 12)
	PrintKeyValue("Index dates", fmt.Sprint(len(index)), 12)
	PrintSeparator()
	PrintSeries(aligned, alignLimit)

	if alignVerify {
		return verifyAlignment(periodic, aligned, opts)
	}
	return nil
}

func alignOptions() (align.Options, error) {
	freq, err := align.ParseFrequency(alignFrequency)
	if err != nil {
		return align.Options{}, err
	}
	rt, err := align.ParseReturnType(alignReturnType)
	if err != nil {
		return align.Options{}, err
	}
	lag, err := align.ParseReleaseLag(alignReleaseLag)
	if err != nil {
		return align.Options{}, err
	}
	anchor, err := align.ParseWeekday(alignWeekAnchor)
	if err != nil {
		return align.Options{}, err
	}
	return align.Options{ReturnType: rt, Frequency: freq, ReleaseLag: lag, WeekAnchor: anchor}, nil
}

// verifyAlignment recomposes the daily values per period and compares them
// with the periodic input the period received
func verifyAlignment(periodic, aligned *series.Series, opts align.Options) error {
	recomposed, err := align.Recompose(aligned.DropMissing(), opts.Frequency, opts.ReturnType, opts.WeekAnchor)
	if err != nil {
		return err
	}

	input := make(map[time.Time]float64, periodic.Len())
	for _, p := range periodic.Points {
		input[align.PeriodKey(p.Date, opts.Frequency, opts.WeekAnchor)] = p.Value
	}

	PrintHeader("Verify: recomposed vs input")
	widths := []int{12, 16, 16, 12}
	PrintTableHeader([]string{"Period", "Input", "Recomposed", "Diff"}, widths)

	worst := 0.0
	for _, p := range recomposed.Points {
		want, ok := input[sourcePeriod(p.Date, opts)]
		if !ok {
			continue
		}
		diff := math.Abs(p.Value - want)
		worst = math.Max(worst, diff)
		PrintTableRow([]string{p.Date.Format(dateLayout), formatFloat(want), formatFloat(p.Value), fmt.Sprintf("%.2e", diff)}, widths)
	}

	if worst > verifyTolerance {
		return fmt.Errorf("verification failed: max |diff| %.3e exceeds %.0e", worst, verifyTolerance)
	}
	PrintSuccess(fmt.Sprintf("Recomposition matches input (max |diff| %.2e)", worst))
	return nil
}

// sourcePeriod is the period whose rate was applied to key
func sourcePeriod(key time.Time, opts align.Options) time.Time {
	if opts.ReleaseLag != align.ShiftOne {
		return key
	}
	if opts.Frequency == align.Weekly {
		return key.AddDate(0, 0, -7)
	}
	return key.AddDate(0, -1, 0)
}

