package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kinderscout/internal/alive"
	"kinderscout/internal/analysis"
	"kinderscout/internal/bot"
	"kinderscout/internal/crawler"
	"kinderscout/internal/fetcher"
	"kinderscout/internal/geo"
	"kinderscout/internal/pipeline"
	"kinderscout/internal/search"
	"kinderscout/internal/store"
)

// searchCmd creates the "search" subcommand: URL discovery via SERP,
// merged into the registry.
func searchCmd() *cobra.Command {
	var variations int

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Discover candidate activity URLs via Google search and merge them into the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			results, err := search.NewClient(cfg, logger).Discover(cmd.Context(), variations)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			fmt.Printf("Found %d results\n", len(results))

			registry, err := store.NewRegistry(cfg.Store.DataDir)
			if err != nil {
				return err
			}
			entries, err := registry.Load()
			if err != nil {
				return err
			}
			entries, added := search.Merge(entries, results)
			if err := registry.Save(entries); err != nil {
				return err
			}
			fmt.Printf("Added %d new URLs, registry now holds %d\n", added, len(entries))
			return nil
		},
	}

	cmd.Flags().IntVar(&variations, "variations", 3, "number of randomized queries besides the base query")
	return cmd
}

// pipelineCmd creates the "pipeline" subcommand: the full weekly ingestion
// run (search, merge, check, analyse).
func pipelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pipeline",
		Short: "Run the full ingestion pipeline: search, merge, check, analyse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			f := fetcher.New(cfg, logger)
			defer f.Close()

			registry, err := store.NewRegistry(cfg.Store.DataDir)
			if err != nil {
				return err
			}
			activities, err := store.Open(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer activities.Close(ctx)

			analyser := analysis.NewAnalyser(
				crawler.New(cfg, f, logger),
				analysis.NewLLMClient(cfg, logger),
				geo.NewRouter(cfg, logger),
				logger,
			)

			p := pipeline.New(cfg,
				search.NewClient(cfg, logger),
				alive.NewChecker(cfg, f, logger),
				analyser,
				registry, activities, logger,
			)

			stats, err := p.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Pipeline complete: %d discovered, %d added, %d analysed, %d saved, %d failed\n",
				stats.Discovered, stats.Added, stats.Analysed, stats.Saved, stats.Failed)
			return nil
		},
	}
}

// botCmd creates the "bot" subcommand: the Telegram front end.
func botCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			f := fetcher.New(cfg, logger)
			defer f.Close()

			registry, err := store.NewRegistry(cfg.Store.DataDir)
			if err != nil {
				return err
			}
			activities, err := store.Open(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer activities.Close(ctx)

			analyser := analysis.NewAnalyser(
				crawler.New(cfg, f, logger),
				analysis.NewLLMClient(cfg, logger),
				geo.NewRouter(cfg, logger),
				logger,
			)

			b, err := bot.New(cfg, analyser, alive.NewChecker(cfg, f, logger), registry, activities, logger)
			if err != nil {
				return fmt.Errorf("start bot: %w", err)
			}

			if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("bot stopped")
			return nil
		},
	}
}
