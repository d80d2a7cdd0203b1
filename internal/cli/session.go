package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jask/slipbook/internal/service"
)

// NewLinkCommand creates the link command.
func NewLinkCommand(rootOpts *RootOptions) *cobra.Command {
	var account, pin string
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link this device to an account, creating it if needed",
		Long: `Link this device to an account.

An existing account must accept the PIN and replaces the slips on this device.
An unknown account key creates a new account from this device's profile and
uploads its slips.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, false, func(ctx context.Context, a *app, out *OutputFormatter) error {
				err := a.eng.AttemptLink(ctx, account, pin)
				if err != nil && !service.IsSyncError(err) {
					return out.Fail(err)
				}
				sess := a.eng.Session()
				if perr := out.Success(sess, func(w io.Writer) {
					fmt.Fprintf(w, "linked to %s\n", infoStyle.Render(sess.AccountKey))
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
	cmd.Flags().StringVar(&account, "account", "", "account key")
	cmd.Flags().StringVar(&pin, "pin", "", "four digit PIN")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("pin")
	return cmd
}

// NewUnlinkCommand creates the unlink command.
func NewUnlinkCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink",
		Short: "Forget the linked account and clear this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, false, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if err := a.eng.Unlink(ctx); err != nil {
					return out.Fail(err)
				}
				return out.Success(a.eng.Session(), func(w io.Writer) {
					fmt.Fprintln(w, "unlinked; local data cleared")
				})
			})
		},
	}
}

type refreshView struct {
	Groups  int                    `json:"groups" yaml:"groups"`
	Removed int                    `json:"removed" yaml:"removed"`
	Failed  int                    `json:"failed" yaml:"failed"`
	Results []service.DedupeResult `json:"results" yaml:"results"`
}

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Push pending slips, then reload everything from the linked account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, false, func(ctx context.Context, a *app, out *OutputFormatter) error {
				rep, err := a.eng.Dedupe(ctx)
				if err != nil {
					return out.Fail(err)
				}
				v := refreshView{Groups: rep.Groups(), Removed: rep.Removed(), Failed: rep.Failed(), Results: rep.Results}
				return out.Success(v, func(w io.Writer) {
					fmt.Fprintln(w, okStyle.Render("refreshed"))
					for _, r := range rep.Results {
						if r.Groups == 0 {
							continue
						}
						line := fmt.Sprintf("%s: %d duplicate groups, %d removed", r.Kind, r.Groups, r.Removed)
						if r.Failed > 0 {
							line += errStyle.Render(fmt.Sprintf(", %d failed", r.Failed))
						}
						fmt.Fprintln(w, line)
					}
				})
			})
		},
	}
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Retry pushing slips that are not yet on the linked account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, rootOpts, false, func(ctx context.Context, a *app, out *OutputFormatter) error {
				n, err := a.eng.SyncPending(ctx)
				if err != nil && !service.IsSyncError(err) {
					return out.Fail(err)
				}
				left := a.eng.Snapshot().Pending()
				res := map[string]int{"pushed": n, "pending": left}
				if perr := out.Success(res, func(w io.Writer) {
					fmt.Fprintf(w, "pushed %s, %s still pending\n", formatCount(n), formatCount(left))
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
