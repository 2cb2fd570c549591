package main

import (
	"github.com/spf13/cobra"

	"github.com/dhamidi/rapidc/lsp"
)

func newLSPCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *cfgFile, "")
			if err != nil {
				return err
			}
			server := lsp.NewServer(version, cfg.OffloadRuntime())
			return server.RunStdio()
		},
	}
}
