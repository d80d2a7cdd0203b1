package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jask/slipbook/internal/service"
	"github.com/jask/slipbook/internal/slip"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "list <incentive|salary|profits>",
		Short:     "List the slips of one collection",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"incentive", "salary", "profits"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := slip.ParseKind(args[0])
			if err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			return run(cmd, rootOpts, true, func(ctx context.Context, a *app, out *OutputFormatter) error {
				snap := a.eng.Snapshot()
				switch kind {
				case slip.KindIncentive:
					return out.Success(snap.Incentives, func(w io.Writer) { renderItems(w, snap.Incentives, incentiveLine) })
				case slip.KindSalary:
					return out.Success(snap.Salaries, func(w io.Writer) { renderItems(w, snap.Salaries, salaryLine) })
				default:
					return out.Success(snap.Profits, func(w io.Writer) { renderItems(w, snap.Profits, profitsLine) })
				}
			})
		},
	}
}

func renderItems[T slip.Data](w io.Writer, items []service.Item[T], line func(T) string) {
	if len(items) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no slips"))
		return
	}
	for _, it := range items {
		renderItem(w, it, line)
	}
}

func renderItem[T slip.Data](w io.Writer, it service.Item[T], line func(T) string) {
	fmt.Fprintf(w, "%3d  %s  %s\n", it.Index, line(it.Slip), badge(it.Pending))
}

func incentiveLine(s slip.Incentive) string {
	return fmt.Sprintf("%s  %12s  rewards %10s  points %s  %s  leave %d/%d",
		s.Month, formatAmount(s.TotalIncentiveAmount), formatAmount(s.RewardsAmount),
		s.Points.String(), s.Rating, s.RegularLeaveDays, s.SickLeaveDays)
}

func salaryLine(s slip.Salary) string {
	return fmt.Sprintf("%s  %12s  bonus %10s", s.Month, formatAmount(s.TotalSalaryAmount), formatAmount(s.BonusAmount))
}

func profitsLine(s slip.Profits) string {
	return fmt.Sprintf("%04d %s  %12s  points %s  %s", s.Year, s.Period, formatAmount(s.TotalProfitsAmount), s.Points.String(), s.Rating)
}
