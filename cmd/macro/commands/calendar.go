package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/macrofactor/internal/calendar"
)

// calendarCmd represents the calendar command
var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "거래소 거래일 출력",
	Long: `거래소 캘린더(MIC)의 거래일을 출력합니다. align --calendar 의 인덱스와 같습니다.
알 수 없는 MIC는 월~금 캘린더로 대체됩니다.

Example:
  go run ./cmd/macro calendar --mic xnys --start 2024-01-01 --end 2024-01-31
  go run ./cmd/macro calendar --mic bvmf --start 2024-01-01 --end 2024-12-31 --count`,
	Args: cobra.NoArgs,
	RunE: runCalendar,
}

var (
	// Calendar flags
	calendarMIC   string
	calendarStart string
	calendarEnd   string
	calendarCount bool
)

func init() {
	rootCmd.AddCommand(calendarCmd)

	calendarCmd.Flags().StringVar(&calendarMIC, "mic", calendar.DefaultMIC, "exchange MIC (xnys, bvmf, xlon, ...)")
	calendarCmd.Flags().StringVar(&calendarStart, "start", "", "start date YYYY-MM-DD")
	calendarCmd.Flags().StringVar(&calendarEnd, "end", "", "end date YYYY-MM-DD")
	calendarCmd.Flags().BoolVar(&calendarCount, "count", false, "print only the number of trading days")
}

func runCalendar(cmd *cobra.Command, args []string) error {
	if calendarStart == "" || calendarEnd == "" {
		return errors.New("--start and --end are required")
	}
	rng, err := parseRange(calendarStart, calendarEnd)
	if err != nil {
		return err
	}

	cal := calendar.New(calendarMIC)
	days, err := cal.TradingDays(rng.Start, rng.End)
	if err != nil {
		return err
	}

	PrintHeader("Trading days: " + cal.MIC())
	if cal.Fallback() {
		PrintWarning(fmt.Sprintf("unknown exchange %q, using Monday-Friday", calendarMIC))
	}
	PrintKeyValue("Range", rng.String(), 8)
	PrintKeyValue("Days", fmt.Sprint(len(days)), 8)
	if calendarCount {
		return nil
	}
	PrintSeparator()
	for _, d := range days {
		fmt.Fprintf(out, "   %s  %s\n", d.Format(dateLayout), d.Weekday().String()[:3])
	}
	return nil
}
