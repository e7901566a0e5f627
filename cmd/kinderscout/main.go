package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"kinderscout/internal/config"
	"kinderscout/internal/crawler"
	"kinderscout/internal/fetcher"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kinderscout",
		Short: "KinderScout — kids' activities catalogue for the Munich area",
		Long: `KinderScout discovers, crawls, and catalogues websites of kids'
activities around Munich.

Features:
  • Bounded one-hop site crawling with keyword link prioritization
  • LLM extraction of category, hours, address, prices, and services
  • Travel time estimation from home (Nominatim + OSRM)
  • URL discovery via Google search (SerpAPI)
  • Bulk liveness checking of the URL registry
  • Google Sheets, MongoDB, or JSON file catalogue backends
  • Telegram bot for submitting and analysing single URLs`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(analyseCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(pipelineCmd())
	rootCmd.AddCommand(botCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogger builds the process logger; --verbose forces debug level.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// crawlCmd creates the "crawl" subcommand: raw crawl output for debugging,
// no LLM involved.
func crawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl [url]",
		Short: "Crawl a single site and print the raw extraction result",
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

			outcome := crawler.New(cfg, f, logger).Crawl(cmd.Context(), args[0])

			out, err := json.MarshalIndent(outcome, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("KinderScout %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Crawler:\n")
			fmt.Printf("  Page Budget:        %d\n", cfg.Crawler.PageBudget)
			fmt.Printf("  Min Content Length: %d chars\n", cfg.Crawler.MinContentLength)
			fmt.Printf("  Respect robots.txt: %v\n", cfg.Crawler.RespectRobots)
			fmt.Printf("  Crawl Deadline:     %s\n", cfg.Crawler.CrawlDeadline)
			fmt.Printf("  Priority Keywords:  %d configured\n", len(cfg.Crawler.PriorityKeywords))
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Request Timeout:    %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  User Agent:         %s\n", cfg.Fetcher.UserAgent)
			fmt.Printf("  Max Body Size:      %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("\nAnalysis:\n")
			fmt.Printf("  Model:              %s\n", cfg.Analysis.Model)
			fmt.Printf("  Endpoint:           %s\n", cfg.Analysis.Endpoint)
			fmt.Printf("  API Key:            %s\n", maskSecret(cfg.Analysis.APIKey))
			fmt.Printf("\nGeo:\n")
			fmt.Printf("  Home Address:       %s\n", cfg.Geo.HomeAddress)
			fmt.Printf("\nStore:\n")
			fmt.Printf("  Backend:            %s\n", cfg.Store.Backend)
			fmt.Printf("  Data Dir:           %s\n", cfg.Store.DataDir)
			fmt.Printf("\nBot:\n")
			fmt.Printf("  Token:              %s\n", maskSecret(cfg.Bot.Token))
			return nil
		},
	}
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	return "(set)"
}
