package main

import (
	"github.com/spf13/cobra"

	"github.com/lolovespi/reolink-livestream-youtube/internal/config"
	"github.com/lolovespi/reolink-livestream-youtube/internal/youtube"
)

func newAuthCommand(configFlag *string) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "OAuth credential utilities",
	}

	authCmd.AddCommand(&cobra.Command{
		Use:   "login",
		Short: "Authorize against the broadcast platform and store a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			return youtube.Authorize(cmd.Context(), cfg.Google.ClientSecrets, cfg.Google.TokenFile, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	})

	return authCmd
}
