package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/httpoutline/internal/config"
	"github.com/unkn0wn-root/httpoutline/internal/errdef"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the settings file",
	}
	cmd.AddCommand(a.configShowCmd(), a.configInitCmd())
	return cmd
}

func (a *app) configShowCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings, flags applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := config.SettingsFormatTOML
			if asJSON {
				format = config.SettingsFormatJSON
			}
			data, err := config.EncodeSettings(a.settings, format)
			if err != nil {
				return errdef.Wrap(errdef.CodeConfig, err, "encode settings")
			}
			if !asJSON {
				fmt.Fprintf(a.stdout, "# %s\n", a.handle.Path)
			}
			_, err = a.stdout.Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of TOML")
	return cmd
}

func (a *app) configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings.toml with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := a.configDir
			if dir == "" {
				dir = config.Dir()
			}
			path := filepath.Join(dir, "settings.toml")
			if _, err := os.Stat(path); err == nil && !force {
				return errdef.New(errdef.CodeConfig, "%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return errdef.Wrap(errdef.CodeFilesystem, err, "stat %s", path)
			}
			handle := config.SettingsHandle{Path: path, Format: config.SettingsFormatTOML}
			if err := config.SaveSettings(config.DefaultSettings(), handle); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
