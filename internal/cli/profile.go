package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jask/slipbook/internal/service"
	"github.com/jask/slipbook/internal/slip"
)

const dateLayout = time.DateOnly

// NewRecalcCommand creates the recalc command.
func NewRecalcCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc",
		Short: "Rebuild totals from the stored slips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, true, func(ctx context.Context, a *app, out *OutputFormatter) error {
				d, err := a.eng.Recalculate(ctx)
				if err != nil && !service.IsSyncError(err) {
					return out.Fail(err)
				}
				if perr := out.Success(d, func(w io.Writer) { renderDerived(w, d) }); perr != nil {
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

func renderDerived(w io.Writer, d slip.Derived) {
	fmt.Fprintln(w, row("Incentive", formatAmount(d.TotalIncentive)))
	fmt.Fprintln(w, row("Salary", formatAmount(d.TotalSalary)))
	fmt.Fprintln(w, row("Profits", formatAmount(d.TotalProfits)))
	fmt.Fprintln(w, row("Rewards", formatAmount(d.TotalRewards)))
	fmt.Fprintln(w, row("Regular leave", formatCount(d.RegularLeaveBalance)))
	fmt.Fprintln(w, row("Sick leave", formatCount(d.SickLeaveBalance)))
}

type settingsFlags struct {
	name           string
	grade          int
	stage          int
	regularBonus   int
	sickBonus      int
	nextRegular    string
	nextSick       string
	serviceStart   string
	rewardsReset   string
	courses        []string
	completed      []string
	regularBalance int
	sickBalance    int
}

var settingsFlagNames = []string{
	"name", "grade", "stage", "regular-bonus", "sick-bonus", "next-regular-leave",
	"next-sick-leave", "service-start", "rewards-reset", "course", "completed",
}

func (f *settingsFlags) date(cmd *cobra.Command, name, raw string, dst *time.Time, errs fieldErrors) {
	if !cmd.Flags().Changed(name) {
		return
	}
	if strings.TrimSpace(raw) == "" {
		*dst = time.Time{}
		return
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		errs[name] = "date"
		return
	}
	*dst = t
}

// apply overlays the given flags on s.
func (f *settingsFlags) apply(cmd *cobra.Command, s slip.Settings) (slip.Settings, error) {
	fs := cmd.Flags()
	errs := fieldErrors{}
	if fs.Changed("name") {
		s.DisplayName = strings.TrimSpace(f.name)
	}
	if fs.Changed("grade") {
		s.Grade = f.grade
	}
	if fs.Changed("stage") {
		s.Stage = f.stage
	}
	if fs.Changed("regular-bonus") {
		s.RegularLeaveBonus = f.regularBonus
	}
	if fs.Changed("sick-bonus") {
		s.SickLeaveBonus = f.sickBonus
	}
	f.date(cmd, "next-regular-leave", f.nextRegular, &s.NextRegularLeave, errs)
	f.date(cmd, "next-sick-leave", f.nextSick, &s.NextSickLeave, errs)
	f.date(cmd, "service-start", f.serviceStart, &s.ServiceStart, errs)
	f.date(cmd, "rewards-reset", f.rewardsReset, &s.LastRewardsReset, errs)

	if fs.Changed("course") {
		s.CoursesNames = append([]string{}, f.courses...)
		s.CoursesCompleted = make([]bool, len(f.courses))
	}
	if fs.Changed("completed") {
		for _, name := range f.completed {
			i := slices.Index(s.CoursesNames, name)
			if i < 0 {
				errs["completed"] = "unknown_course"
				continue
			}
			s.CoursesCompleted[i] = true
		}
	}
	return s, errs.err()
}

// NewSettingsCommand creates the settings command. Without flags it prints
// the current settings.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	f := &settingsFlags{}
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change profile settings and leave balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, true, func(ctx context.Context, a *app, out *OutputFormatter) error {
				fs := cmd.Flags()
				var syncErr error
				if slices.ContainsFunc(settingsFlagNames, fs.Changed) {
					s, err := f.apply(cmd, a.eng.Profile().Settings)
					if err != nil {
						return out.Fail(err)
					}
					if err := a.eng.UpdateSettings(ctx, s); err != nil {
						if !service.IsSyncError(err) {
							return out.Fail(err)
						}
						syncErr = err
					}
				}
				if fs.Changed("regular-balance") || fs.Changed("sick-balance") {
					d := a.eng.Profile().Derived
					regular, sick := d.RegularLeaveBalance, d.SickLeaveBalance
					if fs.Changed("regular-balance") {
						regular = f.regularBalance
					}
					if fs.Changed("sick-balance") {
						sick = f.sickBalance
					}
					if err := a.eng.SetLeaveBalances(ctx, regular, sick); err != nil {
						if !service.IsSyncError(err) {
							return out.Fail(err)
						}
						syncErr = err
					}
				}

				p := a.eng.Profile()
				if perr := out.Success(p, func(w io.Writer) { renderSettings(w, p) }); perr != nil {
					return perr
				}
				if syncErr != nil {
					out.Warn("%v", syncErr)
					return WrapExitError(ExitFailure, "not_synced", syncErr)
				}
				return nil
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.name, "name", "", "display name")
	fs.IntVar(&f.grade, "grade", 0, fmt.Sprintf("grade (%d-%d)", slip.MinGrade, slip.MaxGrade))
	fs.IntVar(&f.stage, "stage", 0, fmt.Sprintf("stage (%d-%d)", slip.MinStage, slip.MaxStage))
	fs.IntVar(&f.regularBonus, "regular-bonus", 0, "regular leave days earned per incentive slip")
	fs.IntVar(&f.sickBonus, "sick-bonus", 0, "sick leave days earned per incentive slip")
	fs.StringVar(&f.nextRegular, "next-regular-leave", "", "next regular leave date (YYYY-MM-DD)")
	fs.StringVar(&f.nextSick, "next-sick-leave", "", "next sick leave date (YYYY-MM-DD)")
	fs.StringVar(&f.serviceStart, "service-start", "", "service start date (YYYY-MM-DD)")
	fs.StringVar(&f.rewardsReset, "rewards-reset", "", "last rewards reset date (YYYY-MM-DD)")
	fs.StringArrayVar(&f.courses, "course", nil, "course name; repeat to replace the course list")
	fs.StringArrayVar(&f.completed, "completed", nil, "mark a listed course completed; repeatable")
	fs.IntVar(&f.regularBalance, "regular-balance", 0, "set the regular leave balance")
	fs.IntVar(&f.sickBalance, "sick-balance", 0, "set the sick leave balance")
	return cmd
}

func renderSettings(w io.Writer, p slip.Profile) {
	s := p.Settings
	fmt.Fprintln(w, titleStyle.Render("Settings"))
	fmt.Fprintln(w, row("Name", s.DisplayName))
	fmt.Fprintln(w, row("Grade / stage", fmt.Sprintf("%d / %d", s.Grade, s.Stage)))
	fmt.Fprintln(w, row("Leave bonus", fmt.Sprintf("regular %d, sick %d", s.RegularLeaveBonus, s.SickLeaveBonus)))
	fmt.Fprintln(w, row("Next regular leave", formatDate(s.NextRegularLeave)))
	fmt.Fprintln(w, row("Next sick leave", formatDate(s.NextSickLeave)))
	fmt.Fprintln(w, row("Service start", formatDate(s.ServiceStart)))
	fmt.Fprintln(w, row("Rewards reset", formatDate(s.LastRewardsReset)))
	for i, c := range s.CoursesNames {
		mark := mutedStyle.Render("[ ]")
		if i < len(s.CoursesCompleted) && s.CoursesCompleted[i] {
			mark = okStyle.Render("[x]")
		}
		fmt.Fprintln(w, row("Course", mark+" "+c))
	}
	fmt.Fprintln(w, row("Leave balance", fmt.Sprintf("regular %d, sick %d", p.Derived.RegularLeaveBalance, p.Derived.SickLeaveBalance)))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return mutedStyle.Render("-")
	}
	return t.Format(dateLayout)
}
