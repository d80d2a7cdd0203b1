package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/jask/slipbook/internal/config"
)

type configView struct {
	Path          string `json:"path" yaml:"path"`
	CacheDriver   string `json:"cache_driver" yaml:"cache_driver"`
	RemoteDriver  string `json:"remote_driver" yaml:"remote_driver"`
	RemoteEnabled bool   `json:"remote_enabled" yaml:"remote_enabled"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCommand(rootOpts))
	return cmd
}

func newConfigInitCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file holding the defaults and SLIPBOOK_ overrides",
		Long: `Write a config file to --config (or ~/.config/slipbook/config.toml).
With --force an existing file is rewritten with its own values kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}
			path := rootOpts.ConfigPath
			if path == "" {
				path = config.DefaultPath()
			}

			_, err := os.Stat(path)
			exists := err == nil
			switch {
			case err != nil && !errors.Is(err, fs.ErrNotExist):
				return out.Fail(WrapExitError(ExitCommandError, "config", err))
			case exists && !force:
				return out.Fail(NewExitError(ExitCommandError, fmt.Sprintf("%s already exists, use --force to rewrite it", path)))
			}

			var cfg config.Config
			if exists {
				cfg, err = config.LoadFile(path)
			} else {
				cfg, err = config.Defaults()
			}
			if err != nil {
				return out.Fail(WrapExitError(ExitCommandError, "config", err))
			}
			if err := config.Save(path, cfg); err != nil {
				return out.Fail(err)
			}
			out.VerboseLog("wrote %s", path)

			v := configView{
				Path:          path,
				CacheDriver:   cfg.Cache.Driver,
				RemoteDriver:  cfg.Remote.Driver,
				RemoteEnabled: cfg.Remote.Enabled(),
			}
			return out.Success(v, func(w io.Writer) {
				fmt.Fprintf(w, "wrote %s\n", v.Path)
				fmt.Fprintln(w, row("cache", v.CacheDriver))
				fmt.Fprintln(w, row("remote", v.RemoteDriver))
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "rewrite an existing config file")
	return cmd
}
