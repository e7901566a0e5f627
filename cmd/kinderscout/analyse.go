package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"kinderscout/internal/alive"
	"kinderscout/internal/analysis"
	"kinderscout/internal/bot"
	"kinderscout/internal/config"
	"kinderscout/internal/crawler"
	"kinderscout/internal/fetcher"
	"kinderscout/internal/geo"
	"kinderscout/internal/store"
	"kinderscout/internal/types"
)

// analyseCmd creates the "analyse" subcommand: the full single-URL pipeline.
func analyseCmd() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "analyse [url]",
		Short: "Crawl a site, extract activity info with the LLM, and estimate travel time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := config.ValidateURL(args[0]); err != nil {
				return fmt.Errorf("invalid URL %q: %w", args[0], err)
			}
			logger := setupLogger(cfg)

			f := fetcher.New(cfg, logger)
			defer f.Close()

			analyser := analysis.NewAnalyser(
				crawler.New(cfg, f, logger),
				analysis.NewLLMClient(cfg, logger),
				geo.NewRouter(cfg, logger),
				logger,
			)

			result := analyser.AnalyseURL(cmd.Context(), args[0])

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))

			if !save {
				return nil
			}
			activities, err := store.Open(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer activities.Close(cmd.Context())

			updated, err := activities.Upsert(cmd.Context(), types.ActivityFromResult(result, bot.HostShortName(args[0])))
			if err != nil {
				return fmt.Errorf("save activity: %w", err)
			}
			if updated {
				fmt.Println("Updated existing catalogue entry.")
			} else {
				fmt.Println("Added new catalogue entry.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "save the result to the activity store")
	return cmd
}

// checkCmd creates the "check" subcommand: bulk liveness check over the
// URL registry.
func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check liveness and content type of every URL in the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			registry, err := store.NewRegistry(cfg.Store.DataDir)
			if err != nil {
				return err
			}
			entries, err := registry.Load()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("Registry is empty, nothing to check.")
				return nil
			}

			f := fetcher.New(cfg, logger)
			defer f.Close()

			entries = alive.NewChecker(cfg, f, logger).CheckAll(cmd.Context(), entries)
			if err := registry.Save(entries); err != nil {
				return err
			}

			aliveCount := 0
			typeCounts := make(map[string]int)
			for _, e := range entries {
				if e.Alive != nil && *e.Alive {
					aliveCount++
				}
				label := e.ContentType
				if label == "" {
					label = "unknown"
				}
				typeCounts[label]++
			}
			fmt.Printf("Checked %d URLs: %d alive, %d dead\n", len(entries), aliveCount, len(entries)-aliveCount)
			for label, n := range typeCounts {
				fmt.Printf("  %s: %d\n", label, n)
			}
			return nil
		},
	}
}
