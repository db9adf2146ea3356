package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lolovespi/reolink-livestream-youtube/internal/api"
	"github.com/lolovespi/reolink-livestream-youtube/internal/config"
	"github.com/lolovespi/reolink-livestream-youtube/internal/ffmpeg"
	"github.com/lolovespi/reolink-livestream-youtube/internal/journal"
	"github.com/lolovespi/reolink-livestream-youtube/internal/lockfile"
	"github.com/lolovespi/reolink-livestream-youtube/internal/logging"
	"github.com/lolovespi/reolink-livestream-youtube/internal/orchestrator"
	"github.com/lolovespi/reolink-livestream-youtube/internal/schedule"
	"github.com/lolovespi/reolink-livestream-youtube/internal/supervise"
	"github.com/lolovespi/reolink-livestream-youtube/internal/youtube"
)

func newRunCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the orchestrator until stopped",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			if err != nil {
				return err
			}

			// Held until process exit; a second instance fails fast.
			guard, err := lockfile.Acquire(cfg.LockPath())
			if err != nil {
				return err
			}
			defer func() { _ = guard.Release() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			key, err := youtube.ReadStreamKey(cfg.Ingest.StreamKeyFile)
			if err != nil {
				return err
			}
			service, err := youtube.New(ctx, youtube.Options{
				ClientSecrets: cfg.Google.ClientSecrets,
				TokenFile:     cfg.Google.TokenFile,
				Privacy:       cfg.Broadcast.Privacy,
			})
			if err != nil {
				return err
			}

			planner, err := schedule.FromConfig(cfg)
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return fmt.Errorf("load timezone: %w", err)
			}

			store, err := journal.Open(cfg.JournalPath())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			supervisor := supervise.New(cfg.Paths.LogDir, "ffmpeg", logger)
			argv := ffmpeg.BuildArgs(cfg, ffmpeg.Destination(cfg.Ingest.RTMPBase, key))

			orch := orchestrator.New(orchestrator.Options{
				Config:  cfg,
				Service: service,
				Planner: planner,
				Start: func(argv []string) (orchestrator.Process, error) {
					return supervisor.Start(argv)
				},
				Argv:      argv,
				StreamKey: key,
				Location:  loc,
				Journal:   store,
				Logger:    logger,
			})

			group, groupCtx := errgroup.WithContext(ctx)
			if cfg.API.Bind != "" {
				server := api.New(cfg.API.Bind, orch.Snapshot, logger)
				group.Go(func() error { return server.Run(groupCtx) })
			}
			group.Go(func() error { return orch.Run(groupCtx) })

			if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
