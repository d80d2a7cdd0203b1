package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jask/slipbook/internal/service"
	"github.com/jask/slipbook/internal/slip"
)

type counts struct {
	Incentives int `json:"incentives" yaml:"incentives"`
	Salaries   int `json:"salaries" yaml:"salaries"`
	Profits    int `json:"profits" yaml:"profits"`
}

type runView struct {
	AccountKey string    `json:"account_key" yaml:"account_key"`
	Groups     int       `json:"groups" yaml:"groups"`
	Removed    int       `json:"removed" yaml:"removed"`
	Failed     int       `json:"failed" yaml:"failed"`
	At         time.Time `json:"at" yaml:"at"`
}

type statusView struct {
	Remote        string          `json:"remote" yaml:"remote"`
	Session       service.Session `json:"session" yaml:"session"`
	Profile       slip.Profile    `json:"profile" yaml:"profile"`
	Counts        counts          `json:"counts" yaml:"counts"`
	Pending       int             `json:"pending" yaml:"pending"`
	LastReconcile *runView        `json:"last_reconcile,omitempty" yaml:"last_reconcile,omitempty"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the profile, link state and collection sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, true, showStatus)
		},
	}
}

func showStatus(ctx context.Context, a *app, out *OutputFormatter) error {
	snap := a.eng.Snapshot()
	v := statusView{
		Remote:  "none",
		Session: snap.Session,
		Profile: snap.Profile,
		Counts: counts{
			Incentives: len(snap.Incentives),
			Salaries:   len(snap.Salaries),
			Profits:    len(snap.Profits),
		},
		Pending: snap.Pending(),
	}
	if a.gw != nil {
		v.Remote = a.cfg.Remote.Driver
	}
	if a.runs != nil {
		last, err := a.runs.Latest(ctx)
		if err != nil {
			out.VerboseLog("reconcile history: %v", err)
		} else if last != nil {
			v.LastReconcile = &runView{
				AccountKey: last.AccountKey,
				Groups:     last.GroupsFound,
				Removed:    last.Removed,
				Failed:     last.Failed,
				At:         last.CreatedAt,
			}
		}
	}
	return out.Success(v, func(w io.Writer) { renderStatus(w, v) })
}

func renderStatus(w io.Writer, v statusView) {
	p := v.Profile
	fmt.Fprintln(w, titleStyle.Render("slipbook"))
	account := mutedStyle.Render("not linked")
	if v.Session.State == service.StateLinked {
		account = infoStyle.Render(v.Session.AccountKey)
	}
	fmt.Fprintln(w, row("Account", account))
	fmt.Fprintln(w, row("Remote", v.Remote))
	if p.Settings.DisplayName != "" {
		fmt.Fprintln(w, row("Name", p.Settings.DisplayName))
	}
	fmt.Fprintln(w, row("Grade / stage", fmt.Sprintf("%d / %d", p.Settings.Grade, p.Settings.Stage)))
	fmt.Fprintln(w)

	fmt.Fprintln(w, titleStyle.Render("Totals"))
	fmt.Fprintln(w, row("Incentive", formatAmount(p.Derived.TotalIncentive)))
	fmt.Fprintln(w, row("Salary", formatAmount(p.Derived.TotalSalary)))
	fmt.Fprintln(w, row("Profits", formatAmount(p.Derived.TotalProfits)))
	fmt.Fprintln(w, row("Rewards", formatAmount(p.Derived.TotalRewards)))
	fmt.Fprintln(w, row("Regular leave", formatCount(p.Derived.RegularLeaveBalance)))
	fmt.Fprintln(w, row("Sick leave", formatCount(p.Derived.SickLeaveBalance)))
	fmt.Fprintln(w)

	fmt.Fprintln(w, titleStyle.Render("Slips"))
	fmt.Fprintln(w, row("Incentives", formatCount(v.Counts.Incentives)))
	fmt.Fprintln(w, row("Salaries", formatCount(v.Counts.Salaries)))
	fmt.Fprintln(w, row("Profits", formatCount(v.Counts.Profits)))
	if v.Pending > 0 {
		fmt.Fprintln(w, row("Not synced", warnStyle.Render(formatCount(v.Pending))))
	}
	if r := v.LastReconcile; r != nil {
		fmt.Fprintln(w, row("Last cleanup", fmt.Sprintf("%s, %d removed", r.At.Local().Format(time.DateTime), r.Removed)))
	}
}
