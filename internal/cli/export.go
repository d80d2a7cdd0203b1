package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jask/slipbook/internal/prefs"
)

type exportView struct {
	Path    string       `json:"path" yaml:"path"`
	Format  prefs.Format `json:"format" yaml:"format"`
	Entries int          `json:"entries" yaml:"entries"`
	Pending int          `json:"pending" yaml:"pending"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var path, as string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the profile and all slips to a JSON or YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := prefs.ParseFormat(as, path)
			if err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			return run(cmd, rootOpts, true, func(ctx context.Context, a *app, out *OutputFormatter) error {
				snap := a.eng.Snapshot()
				if err := prefs.SaveSnapshot(path, snap, format); err != nil {
					return out.Fail(fmt.Errorf("export %s: %w", path, err))
				}
				v := exportView{
					Path:    path,
					Format:  format,
					Entries: len(snap.Incentives) + len(snap.Salaries) + len(snap.Profits),
					Pending: snap.Pending(),
				}
				return out.Success(v, func(w io.Writer) {
					fmt.Fprintf(w, "exported %s slips to %s\n", formatCount(v.Entries), v.Path)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&path, "out", "o", "", "output file")
	cmd.Flags().StringVar(&as, "as", "", "file format (json|yaml); defaults to the file extension")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
