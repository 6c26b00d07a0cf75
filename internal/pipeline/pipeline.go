package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/efb-avv-checker/internal/certificate"
	"github.com/couchcryptid/efb-avv-checker/internal/domain"
	"github.com/couchcryptid/efb-avv-checker/internal/observability"
)

// ErrNoAnnexes is returned when the document has no annex to extract, for
// example a scanned PDF without a text layer.
var ErrNoAnnexes = errors.New("no annexes found in document")

// generatedAtLayout is RFC 3339 in UTC with whole seconds.
const generatedAtLayout = "2006-01-02T15:04:05Z"

// Transformer converts a certificate document into site catalog entries.
type Transformer interface {
	Transform(ctx context.Context, doc certificate.Document) (Batch, error)
}

// Loader replaces the stored catalog and returns the sites with their IDs.
type Loader interface {
	ReplaceCatalog(ctx context.Context, meta domain.Meta, catalog []domain.SiteCatalog) ([]domain.Site, error)
}

// Publisher announces a freshly seeded catalog to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, meta domain.Meta, catalog []domain.SiteCatalog) error
}

// Batch is the transform output for one document.
type Batch struct {
	Annexes int
	Catalog []domain.SiteCatalog
}

// Report summarizes a seed run.
type Report struct {
	Annexes  int
	Sites    int
	Codes    int
	Meta     domain.Meta
	Duration time.Duration
}

// Seeder orchestrates the extract-transform-load run that builds the catalog.
type Seeder struct {
	source      certificate.Source
	transformer Transformer
	loader      Loader
	publishers  []Publisher
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Seeder with the given stages and observability. Publishers
// are optional.
func New(src certificate.Source, t Transformer, l Loader, logger *slog.Logger, metrics *observability.Metrics, publishers ...Publisher) *Seeder {
	return &Seeder{
		source:      src,
		transformer: t,
		loader:      l,
		publishers:  publishers,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run executes one seed: extract the document, transform annexes into sites,
// replace the stored catalog, then publish. sourceName is recorded as the
// catalog's source document.
func (s *Seeder) Run(ctx context.Context, sourceName string) (Report, error) {
	start := time.Now()
	report, err := s.run(ctx, sourceName)
	report.Duration = time.Since(start)
	s.metrics.SeedDuration.Observe(report.Duration.Seconds())
	if err != nil {
		s.metrics.SeedRuns.WithLabelValues("error").Inc()
		return report, err
	}
	s.metrics.SeedRuns.WithLabelValues("success").Inc()
	s.logger.Info("seed complete",
		"source", sourceName,
		"annexes", report.Annexes,
		"sites", report.Sites,
		"codes", report.Codes,
		"duration", report.Duration,
	)
	return report, nil
}

func (s *Seeder) run(ctx context.Context, sourceName string) (Report, error) {
	doc, err := s.source.Load(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("extract: %w", err)
	}
	s.logger.Debug("document loaded", "pages", doc.NumPages())

	batch, err := s.transformer.Transform(ctx, doc)
	if err != nil {
		return Report{}, fmt.Errorf("transform: %w", err)
	}
	s.metrics.AnnexesExtracted.Add(float64(batch.Annexes))
	if batch.Annexes == 0 {
		// The stored catalog is left untouched.
		return Report{}, fmt.Errorf("transform: %s: %w", sourceName, ErrNoAnnexes)
	}

	meta := domain.Meta{
		domain.MetaSourcePDF:   sourceName,
		domain.MetaGeneratedAt: domain.Now().UTC().Format(generatedAtLayout),
	}

	sites, err := s.loader.ReplaceCatalog(ctx, meta, batch.Catalog)
	if err != nil {
		return Report{}, fmt.Errorf("load: %w", err)
	}
	if len(sites) != len(batch.Catalog) {
		return Report{}, errors.New("load: stored site count does not match catalog")
	}
	for i := range batch.Catalog {
		batch.Catalog[i].Site = sites[i]
	}

	report := Report{Annexes: batch.Annexes, Sites: len(sites), Meta: meta}
	for _, entry := range batch.Catalog {
		report.Codes += len(entry.Codes)
	}
	s.metrics.SitesLoaded.Set(float64(report.Sites))
	s.metrics.CodesLoaded.Set(float64(report.Codes))

	s.publish(ctx, meta, batch.Catalog)
	return report, nil
}

// publish fans the catalog out to every publisher. The store is the system
// of record, so failures are logged and counted only.
func (s *Seeder) publish(ctx context.Context, meta domain.Meta, catalog []domain.SiteCatalog) {
	for _, p := range s.publishers {
		if err := p.Publish(ctx, meta, catalog); err != nil {
			s.metrics.PublishErrors.Inc()
			s.logger.Error("publish catalog failed", "error", err, "sites", len(catalog))
		}
	}
}
