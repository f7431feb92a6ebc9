package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ckshop/shopflow/internal/ai"
	"github.com/ckshop/shopflow/internal/broadcast"
	"github.com/ckshop/shopflow/internal/calendar"
	"github.com/ckshop/shopflow/internal/dashboard"
	"github.com/ckshop/shopflow/internal/db"
	"github.com/ckshop/shopflow/internal/reconcile"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Shopflow board server",
		Long:  "Runs the board API, change watcher, broadcast channel, and calendar sweep.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "shopflow.yaml", "path to Shopflow config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	if err := db.SeedBays(gormDB); err != nil {
		return err
	}

	rec := reconcile.New(db.NewStore(gormDB))
	if err := rec.Refetch(); err != nil {
		return fmt.Errorf("initial fetch: %w", err)
	}

	var notifiers []broadcast.Notifier
	if cfg.Broadcast.SlackToken != "" {
		notifiers = append(notifiers, broadcast.NewSlackNotifier(cfg.Broadcast.SlackToken, cfg.Broadcast.SlackChannel))
		fmt.Fprintf(out, "Broadcast mirror: Slack channel %s\n", cfg.Broadcast.SlackChannel)
	}
	if cfg.Broadcast.DiscordToken != "" {
		dn, err := broadcast.NewDiscordNotifier(cfg.Broadcast.DiscordToken, cfg.Broadcast.DiscordChannel)
		if err != nil {
			return fmt.Errorf("discord notifier: %w", err)
		}
		notifiers = append(notifiers, dn)
		fmt.Fprintf(out, "Broadcast mirror: Discord channel %s\n", cfg.Broadcast.DiscordChannel)
	}
	hub := broadcast.NewHub(notifiers...)

	aiClient := ai.New(cfg.AI.BaseURL, cfg.AI.APIKey)
	if aiClient.Enabled() {
		fmt.Fprintf(out, "AI assistant: %s\n", cfg.AI.BaseURL)
	}

	feed := dashboard.NewChangeFeed()
	rec.OnChange(feed.Notify)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	watcher := db.NewWatcher(gormDB, db.DefaultWatchInterval)
	go watcher.Run(ctx)
	go rec.Run(ctx, watcher.Notify())
	go calendar.NewScheduler(rec, cfg.Calendar.SyncCron).Run(ctx)

	if port <= 0 {
		port = cfg.Server.Port
	}
	return dashboard.Start(ctx, dashboard.StartOpts{
		Deps: dashboard.Deps{
			Rec:  rec,
			Hub:  hub,
			AI:   aiClient,
			Cfg:  cfg,
			Feed: feed,
		},
		Port: port,
		Out:  out,
	})
}
