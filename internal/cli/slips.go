package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jask/slipbook/internal/service"
	"github.com/jask/slipbook/internal/slip"
)

// slipFlags are the field flags shared by add and update. Values stay
// strings so update can tell which ones were given.
type slipFlags struct {
	month   string
	points  string
	rating  string
	regular string
	sick    string
	rewards string
	total   string
	bonus   string
	year    int
	period  string
}

func (f *slipFlags) register(cmd *cobra.Command, kinds ...slip.Kind) {
	fs := cmd.Flags()
	for _, k := range kinds {
		switch k {
		case slip.KindIncentive:
			fs.StringVar(&f.month, "month", "", "slip month as MM/YYYY")
			fs.StringVar(&f.points, "points", "", "appraisal points")
			fs.StringVar(&f.rating, "rating", "", "appraisal rating, e.g. \"Meets Expectations\"")
			fs.StringVar(&f.regular, "regular-leave", "", "regular leave days used")
			fs.StringVar(&f.sick, "sick-leave", "", "sick leave days used")
			fs.StringVar(&f.rewards, "rewards", "", "rewards amount")
			fs.StringVar(&f.total, "total", "", "total amount")
		case slip.KindSalary:
			if fs.Lookup("month") == nil {
				fs.StringVar(&f.month, "month", "", "slip month as MM/YYYY")
				fs.StringVar(&f.total, "total", "", "total amount")
			}
			fs.StringVar(&f.bonus, "bonus", "", "bonus amount")
		case slip.KindProfits:
			fs.IntVar(&f.year, "year", 0, "profit-share year")
			fs.StringVar(&f.period, "period", "", "half year, H1 or H2")
			if fs.Lookup("points") == nil {
				fs.StringVar(&f.points, "points", "", "appraisal points")
				fs.StringVar(&f.rating, "rating", "", "appraisal rating, e.g. \"Meets Expectations\"")
			}
			if fs.Lookup("total") == nil {
				fs.StringVar(&f.total, "total", "", "total amount")
			}
		}
	}
}

// fieldErrors collects flag parse failures as a validation error.
type fieldErrors map[string]string

func (e fieldErrors) err() error {
	if len(e) == 0 {
		return nil
	}
	return &slip.ValidationError{Fields: e}
}

func (f *slipFlags) amount(cmd *cobra.Command, name, raw string, dst *decimal.Decimal, errs fieldErrors) {
	if !cmd.Flags().Changed(name) {
		return
	}
	d, err := slip.ParseAmount(raw)
	if err != nil {
		errs[name] = "amount"
		return
	}
	*dst = d
}

func (f *slipFlags) days(cmd *cobra.Command, name, raw string, dst *int, errs fieldErrors) {
	if !cmd.Flags().Changed(name) {
		return
	}
	n, err := slip.ParseDays(raw)
	if err != nil {
		errs[name] = "days"
		return
	}
	*dst = n
}

func (f *slipFlags) parseRating(cmd *cobra.Command, dst *slip.Rating, errs fieldErrors) {
	if !cmd.Flags().Changed("rating") {
		return
	}
	r, err := slip.ParseRating(f.rating)
	if err != nil {
		errs["rating"] = "rating"
		return
	}
	*dst = r
}

// incentive applies the given flags on top of base.
func (f *slipFlags) incentive(cmd *cobra.Command, base slip.Incentive) (slip.Incentive, error) {
	errs := fieldErrors{}
	if cmd.Flags().Changed("month") {
		base.Month = f.month
	}
	f.amount(cmd, "points", f.points, &base.Points, errs)
	f.amount(cmd, "rewards", f.rewards, &base.RewardsAmount, errs)
	f.amount(cmd, "total", f.total, &base.TotalIncentiveAmount, errs)
	f.days(cmd, "regular-leave", f.regular, &base.RegularLeaveDays, errs)
	f.days(cmd, "sick-leave", f.sick, &base.SickLeaveDays, errs)
	f.parseRating(cmd, &base.Rating, errs)
	return base, errs.err()
}

func (f *slipFlags) salary(cmd *cobra.Command, base slip.Salary) (slip.Salary, error) {
	errs := fieldErrors{}
	if cmd.Flags().Changed("month") {
		base.Month = f.month
	}
	f.amount(cmd, "total", f.total, &base.TotalSalaryAmount, errs)
	f.amount(cmd, "bonus", f.bonus, &base.BonusAmount, errs)
	return base, errs.err()
}

func (f *slipFlags) profits(cmd *cobra.Command, base slip.Profits) (slip.Profits, error) {
	errs := fieldErrors{}
	if cmd.Flags().Changed("year") {
		base.Year = f.year
	}
	if cmd.Flags().Changed("period") {
		p, err := slip.ParsePeriod(f.period)
		if err != nil {
			errs["period"] = "period"
		} else {
			base.Period = p
		}
	}
	f.amount(cmd, "points", f.points, &base.Points, errs)
	f.amount(cmd, "total", f.total, &base.TotalProfitsAmount, errs)
	f.parseRating(cmd, &base.Rating, errs)
	return base, errs.err()
}

// NewAddCommand creates the add command with one subcommand per collection.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a slip",
	}
	cmd.AddCommand(newAddKindCommand(rootOpts, slip.KindIncentive))
	cmd.AddCommand(newAddKindCommand(rootOpts, slip.KindSalary))
	cmd.AddCommand(newAddKindCommand(rootOpts, slip.KindProfits))
	return cmd
}

func newAddKindCommand(rootOpts *RootOptions, kind slip.Kind) *cobra.Command {
	f := &slipFlags{}
	cmd := &cobra.Command{
		Use:   string(kind),
		Short: fmt.Sprintf("Add a %s slip", kind),
		Args:  cobra.NoArgs,
		Example: map[slip.Kind]string{
			slip.KindIncentive: `  slipbook add incentive --month 03/2024 --points 92 --rating "Exceeds Expectations" --total 1200 --rewards 50`,
			slip.KindSalary:    `  slipbook add salary --month 03/2024 --total 5000 --bonus 250`,
			slip.KindProfits:   `  slipbook add profits --year 2024 --period H1 --points 88 --rating Outstanding --total 3000`,
		}[kind],
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, false, func(ctx context.Context, a *app, out *OutputFormatter) error {
				switch kind {
				case slip.KindIncentive:
					data, err := f.incentive(cmd, slip.Incentive{})
					if err != nil {
						return out.Fail(err)
					}
					entry, err := a.eng.AddIncentive(ctx, data)
					return report(out, "added", len(a.eng.Incentives())-1, entry, err, incentiveLine)
				case slip.KindSalary:
					data, err := f.salary(cmd, slip.Salary{})
					if err != nil {
						return out.Fail(err)
					}
					entry, err := a.eng.AddSalary(ctx, data)
					return report(out, "added", len(a.eng.Salaries())-1, entry, err, salaryLine)
				default:
					data, err := f.profits(cmd, slip.Profits{})
					if err != nil {
						return out.Fail(err)
					}
					entry, err := a.eng.AddProfits(ctx, data)
					return report(out, "added", len(a.eng.Profits())-1, entry, err, profitsLine)
				}
			})
		},
	}
	f.register(cmd, kind)
	return cmd
}

// NewUpdateCommand creates the update command. Only the given flags change.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	f := &slipFlags{}
	cmd := &cobra.Command{
		Use:   "update <incentive|salary|profits> <index>",
		Short: "Change fields of an existing slip",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, index, err := kindAndIndex(args)
			if err != nil {
				return err
			}
			return run(cmd, rootOpts, false, func(ctx context.Context, a *app, out *OutputFormatter) error {
				switch kind {
				case slip.KindIncentive:
					base, err := at(a.eng.Incentives(), index)
					if err != nil {
						return out.Fail(err)
					}
					data, err := f.incentive(cmd, base)
					if err != nil {
						return out.Fail(err)
					}
					entry, err := a.eng.UpdateIncentive(ctx, index, data)
					return report(out, "updated", index, entry, err, incentiveLine)
				case slip.KindSalary:
					base, err := at(a.eng.Salaries(), index)
					if err != nil {
						return out.Fail(err)
					}
					data, err := f.salary(cmd, base)
					if err != nil {
						return out.Fail(err)
					}
					entry, err := a.eng.UpdateSalary(ctx, index, data)
					return report(out, "updated", index, entry, err, salaryLine)
				default:
					base, err := at(a.eng.Profits(), index)
					if err != nil {
						return out.Fail(err)
					}
					data, err := f.profits(cmd, base)
					if err != nil {
						return out.Fail(err)
					}
					entry, err := a.eng.UpdateProfits(ctx, index, data)
					return report(out, "updated", index, entry, err, profitsLine)
				}
			})
		},
	}
	f.register(cmd, slip.KindIncentive, slip.KindSalary, slip.KindProfits)
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <incentive|salary|profits> <index>",
		Short: "Delete a slip",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, index, err := kindAndIndex(args)
			if err != nil {
				return err
			}
			return run(cmd, rootOpts, false, func(ctx context.Context, a *app, out *OutputFormatter) error {
				switch kind {
				case slip.KindIncentive:
					err = a.eng.DeleteIncentive(ctx, index)
				case slip.KindSalary:
					err = a.eng.DeleteSalary(ctx, index)
				default:
					err = a.eng.DeleteProfits(ctx, index)
				}
				res := map[string]any{"kind": kind, "index": index}
				if err != nil && !service.IsSyncError(err) {
					return out.Fail(err)
				}
				if perr := out.Success(res, func(w io.Writer) {
					fmt.Fprintf(w, "deleted %s %d\n", kind, index)
				}); perr != nil {
					return perr
				}
				if err != nil {
					out.Warn("%v", err)
					return WrapExitError(ExitFailure, "not_synced", err)
				}
				return nil
			})
		},
	}
}

func kindAndIndex(args []string) (slip.Kind, int, error) {
	kind, err := slip.ParseKind(args[0])
	if err != nil {
		return "", 0, NewExitError(ExitCommandError, err.Error())
	}
	index, err := strconv.Atoi(args[1])
	if err != nil {
		return "", 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid index %q", args[1]))
	}
	return kind, index, nil
}

func at[T slip.Data](entries []slip.Entry[T], index int) (T, error) {
	var zero T
	if index < 0 || index >= len(entries) {
		return zero, fmt.Errorf("slip %d: %w", index, service.ErrIndexOutOfRange)
	}
	return entries[index].Slip(), nil
}

// report prints the outcome of an add or update. A sync failure still
// prints the entry since it was kept on this device.
func report[T slip.Data](out *OutputFormatter, verb string, index int, entry slip.Entry[T], err error, line func(T) string) error {
	if err != nil && (entry == nil || !service.IsSyncError(err)) {
		return out.Fail(err)
	}
	id, synced := slip.RemoteID(entry)
	it := service.Item[T]{Index: index, Key: entry.LocalKey(), ID: id, Pending: !synced, Slip: entry.Slip()}
	if perr := out.Success(it, func(w io.Writer) {
		fmt.Fprintf(w, "%s  %s  %s\n", verb, line(it.Slip), badge(it.Pending))
	}); perr != nil {
		return perr
	}
	if err != nil {
		out.Warn("%v", err)
		return WrapExitError(ExitFailure, "not_synced", err)
	}
	return nil
}
