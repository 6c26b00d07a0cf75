package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/efb-avv-checker/internal/adapter/kafka"
	"github.com/couchcryptid/efb-avv-checker/internal/adapter/pdf"
	"github.com/couchcryptid/efb-avv-checker/internal/adapter/sqlite"
	"github.com/couchcryptid/efb-avv-checker/internal/certificate"
	"github.com/couchcryptid/efb-avv-checker/internal/config"
	"github.com/couchcryptid/efb-avv-checker/internal/domain"
	"github.com/couchcryptid/efb-avv-checker/internal/observability"
	"github.com/couchcryptid/efb-avv-checker/internal/pipeline"
	"github.com/spf13/cobra"
)

type seedOptions struct {
	input      string
	out        string
	sourceName string
	includeAll bool
	geocode    bool
}

var seedOpts seedOptions

var seedCmd = &cobra.Command{
	Use:   "seed --pdf <certificate>",
	Short: "Build the catalog database from an EfB certificate",
	Long: `Extract every annex of the certificate, keep the biogas and digestion
sites (or all sites with --all), and replace the catalog database with them.
Files ending in .pdf are parsed as PDF; anything else is read as extracted
text with pages separated by form feeds.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := seedOpts
		if opts.out == "" {
			opts.out = cfg.DBPath
		}
		return runSeed(cmd.Context(), opts, cfg, logger, metrics, cmd.OutOrStdout())
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOpts.input, "pdf", "", "certificate file (.pdf or text)")
	seedCmd.Flags().StringVar(&seedOpts.out, "out", "", "output database (default DB_PATH)")
	seedCmd.Flags().StringVar(&seedOpts.sourceName, "source", "", "source description stored in meta (default file name)")
	seedCmd.Flags().BoolVar(&seedOpts.includeAll, "all", false, "keep all sites, not only biogas and digestion plants")
	seedCmd.Flags().BoolVar(&seedOpts.geocode, "geocode", false, "resolve site coordinates while seeding")
	_ = seedCmd.MarkFlagRequired("pdf")
}

// newSource picks the document reader by file extension.
func newSource(path string, logger *slog.Logger) certificate.Source {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return pdf.NewFile(path, logger)
	}
	return certificate.TextFile{Path: path}
}

func runSeed(ctx context.Context, opts seedOptions, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, out io.Writer) error {
	if _, err := os.Stat(opts.input); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("certificate not found: %s", opts.input)
		}
		return fmt.Errorf("stat certificate: %w", err)
	}
	if opts.sourceName == "" {
		opts.sourceName = filepath.Base(opts.input)
	}

	store, err := sqlite.Open(ctx, opts.out)
	if err != nil {
		return err
	}
	defer store.Close()

	var geocoder domain.Geocoder
	if opts.geocode {
		geocoder = newGeocoder(cfg, metrics, logger)
	}

	var publishers []pipeline.Publisher
	if cfg.PublishEnabled() {
		w := kafka.NewWriter(cfg, logger)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publishers = append(publishers, w)
	}

	seeder := pipeline.New(
		newSource(opts.input, logger),
		pipeline.NewTransformer(geocoder, opts.includeAll, logger),
		store, logger, metrics, publishers...,
	)
	report, err := seeder.Run(ctx, opts.sourceName)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "OK: %d annexes, %d sites, %d codes -> %s\n", report.Annexes, report.Sites, report.Codes, opts.out)
	return nil
}
