package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/efb-avv-checker/internal/certificate"
	"github.com/couchcryptid/efb-avv-checker/internal/domain"
)

// CatalogTransformer implements Transformer using the certificate extractor
// with biogas filtering and optional geocoding enrichment.
type CatalogTransformer struct {
	geocoder   domain.Geocoder
	includeAll bool
	logger     *slog.Logger
}

// NewTransformer creates a CatalogTransformer. Pass a nil geocoder to disable
// geocoding enrichment; includeAll keeps sites that are not digestion plants.
func NewTransformer(geocoder domain.Geocoder, includeAll bool, logger *slog.Logger) *CatalogTransformer {
	return &CatalogTransformer{
		geocoder:   geocoder,
		includeAll: includeAll,
		logger:     logger,
	}
}

func (t *CatalogTransformer) Transform(ctx context.Context, doc certificate.Document) (Batch, error) {
	annexes := certificate.Extract(doc)
	batch := Batch{Annexes: len(annexes), Catalog: make([]domain.SiteCatalog, 0, len(annexes))}

	for _, a := range annexes {
		if err := ctx.Err(); err != nil {
			return Batch{}, err
		}
		site := a.Site()
		if !t.includeAll && !domain.IsBiogasSite(site.Activity) {
			t.logger.Debug("skipping non-biogas site", "annex", a.Number, "activity", site.Activity)
			continue
		}
		site = domain.EnrichWithGeocoding(ctx, site, t.geocoder, t.logger)
		batch.Catalog = append(batch.Catalog, domain.SiteCatalog{Site: site, Codes: a.Codes})
	}
	return batch, nil
}
