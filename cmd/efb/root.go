package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/efb-avv-checker/internal/adapter/nominatim"
	"github.com/couchcryptid/efb-avv-checker/internal/config"
	"github.com/couchcryptid/efb-avv-checker/internal/domain"
	"github.com/couchcryptid/efb-avv-checker/internal/observability"
	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFormat string
	dbPath    string

	// Populated by PersistentPreRunE and shared with all subcommands.
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "efb",
	Short: "EfB AVV checker: certificate catalog and waste-code lookups",
	Long: `efb builds a catalog of certified sites and their accepted AVV waste codes
from an EfB certificate (PDF or extracted text) and answers whether a code is
listed for a given site, on the command line or over HTTP.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, text); overrides LOG_FORMAT")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "catalog database path; overrides DB_PATH")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		// Flags take precedence over the environment.
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = logFormat
		}
		if cmd.Flags().Changed("db") {
			cfg.DBPath = dbPath
		}

		logger = observability.NewLogger(cfg)
		metrics = observability.NewMetrics()
		return nil
	}

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(sitesCmd)
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newGeocoder builds the cached Nominatim geocoder, or nil when disabled.
func newGeocoder(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) domain.Geocoder {
	if !cfg.GeocoderEnabled {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("geocoding disabled")
		return nil
	}
	metrics.GeocodeEnabled.Set(1)
	client := nominatim.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderUserAgent, cfg.GeocoderTimeout, metrics, logger)
	logger.Info("nominatim geocoding enabled",
		"base_url", cfg.GeocoderBaseURL,
		"cache_size", cfg.GeocoderCacheSize,
		"cache_ttl", cfg.GeocoderCacheTTL,
		"timeout", cfg.GeocoderTimeout,
	)
	return nominatim.NewCachedGeocoder(client, cfg.GeocoderCacheSize, cfg.GeocoderCacheTTL, nil, metrics)
}
