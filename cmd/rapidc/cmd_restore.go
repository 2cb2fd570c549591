package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dhamidi/rapidc/project"
)

func newRestoreCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <path>",
		Short: "Put back the original files saved as <file>.old",
		Args:  pathArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *cfgFile, args[0])
			if err != nil {
				return err
			}

			d := project.NewDriver(cfg.DriverOptions()...)
			restored, err := d.Restore(args[0])
			for _, p := range restored {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			color.New(color.FgGreen, color.Bold).Fprintf(cmd.ErrOrStderr(), "restored %d files\n", len(restored))
			return err
		},
	}
}
