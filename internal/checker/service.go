// Package checker answers catalog lookups: site overviews, code lists, AVV
// checks and site locations.
package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/efb-avv-checker/internal/domain"
	"github.com/couchcryptid/efb-avv-checker/internal/observability"
)

// Store is the read side of the catalog plus coordinate write-back.
type Store interface {
	Meta(ctx context.Context) (domain.Meta, error)
	ListSites(ctx context.Context) ([]domain.Site, error)
	GetSite(ctx context.Context, id int64) (domain.Site, error)
	CodesForSite(ctx context.Context, siteID int64) ([]domain.WasteCode, error)
	SetCoordinates(ctx context.Context, siteID int64, lat, lon float64) error
	Ping(ctx context.Context) error
}

// Location sources.
const (
	SourceStored     = "stored"
	SourceGeocoded   = "geocoded"
	SourceUnresolved = "unresolved"
)

// Service implements the lookup operations over a Store. The geocoder is
// optional; without one, sites lacking coordinates resolve to map links.
type Service struct {
	store    Store
	geocoder domain.Geocoder
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewService creates a lookup Service.
func NewService(store Store, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{store: store, geocoder: geocoder, logger: logger, metrics: metrics}
}

// Meta returns the catalog provenance.
func (s *Service) Meta(ctx context.Context) (domain.Meta, error) {
	meta, err := s.store.Meta(ctx)
	s.count("meta", err)
	return meta, err
}

// Sites returns the overview of all sites with code and hint counts.
func (s *Service) Sites(ctx context.Context) ([]domain.SiteSummary, error) {
	sites, err := s.store.ListSites(ctx)
	if err != nil {
		s.count("sites", err)
		return nil, err
	}
	out := make([]domain.SiteSummary, 0, len(sites))
	for _, site := range sites {
		codes, err := s.store.CodesForSite(ctx, site.ID)
		if err != nil {
			s.count("sites", err)
			return nil, fmt.Errorf("codes for site %d: %w", site.ID, err)
		}
		out = append(out, domain.Summarize(site, codes))
	}
	s.count("sites", nil)
	return out, nil
}

// Site returns one site's overview row.
func (s *Service) Site(ctx context.Context, id int64) (domain.SiteSummary, error) {
	site, codes, err := s.siteWithCodes(ctx, id)
	s.count("site", err)
	if err != nil {
		return domain.SiteSummary{}, err
	}
	return domain.Summarize(site, codes), nil
}

// Codes returns a site's accepted codes, optionally filtered by a
// case-insensitive substring of code or text.
func (s *Service) Codes(ctx context.Context, id int64, filter string) ([]domain.WasteCode, error) {
	_, codes, err := s.siteWithCodes(ctx, id)
	s.count("codes", err)
	if err != nil {
		return nil, err
	}
	return domain.FilterCodes(codes, filter), nil
}

// Check looks up an AVV input at a site. Malformed input is a result with
// Valid=false, not an error.
func (s *Service) Check(ctx context.Context, id int64, input string) (domain.CheckResult, error) {
	_, codes, err := s.siteWithCodes(ctx, id)
	if err != nil {
		s.count("check", err)
		return domain.CheckResult{}, err
	}
	res := domain.Check(codes, input)
	switch {
	case !res.Valid:
		s.metrics.Lookups.WithLabelValues("check", "invalid").Inc()
	case res.Positive:
		s.metrics.Lookups.WithLabelValues("check", "positive").Inc()
	default:
		s.metrics.Lookups.WithLabelValues("check", "negative").Inc()
	}
	s.logger.Debug("avv check", "site_id", id, "code", res.Code, "valid", res.Valid, "positive", res.Positive)
	return res, nil
}

// Locate resolves a site's map position: stored coordinates first, then the
// geocoder (persisting a hit), otherwise map search links.
func (s *Service) Locate(ctx context.Context, id int64) (domain.Location, error) {
	site, err := s.store.GetSite(ctx, id)
	if err != nil {
		s.count("locate", err)
		return domain.Location{}, err
	}
	s.count("locate", nil)

	loc := domain.Location{SiteID: site.ID, Address: domain.FullAddress(site)}
	if site.HasCoordinates() {
		loc.Lat, loc.Lon = site.Lat, site.Lon
		loc.Source = SourceStored
		return loc, nil
	}

	if s.geocoder != nil {
		result, err := s.geocoder.ForwardGeocode(ctx, loc.Address)
		switch {
		case err != nil:
			s.logger.Warn("geocoding failed", "site_id", id, "address", loc.Address, "error", err)
		case !result.Empty():
			lat, lon := result.Lat, result.Lon
			loc.Lat, loc.Lon = &lat, &lon
			loc.Source = SourceGeocoded
			if err := s.store.SetCoordinates(ctx, site.ID, lat, lon); err != nil {
				s.logger.Warn("persist coordinates failed", "site_id", id, "error", err)
			}
			return loc, nil
		}
	}

	links := domain.NewMapLinks(loc.Address)
	loc.Source = SourceUnresolved
	loc.Links = &links
	return loc, nil
}

// CheckReadiness reports ready when the store answers and holds at least one site.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("catalog unavailable: %w", err)
	}
	sites, err := s.store.ListSites(ctx)
	if err != nil {
		return fmt.Errorf("catalog unavailable: %w", err)
	}
	if len(sites) == 0 {
		return errors.New("catalog is empty, run seed first")
	}
	return nil
}

func (s *Service) siteWithCodes(ctx context.Context, id int64) (domain.Site, []domain.WasteCode, error) {
	site, err := s.store.GetSite(ctx, id)
	if err != nil {
		return domain.Site{}, nil, err
	}
	codes, err := s.store.CodesForSite(ctx, id)
	if err != nil {
		return domain.Site{}, nil, fmt.Errorf("codes for site %d: %w", id, err)
	}
	return site, codes, nil
}

func (s *Service) count(op string, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	s.metrics.Lookups.WithLabelValues(op, outcome).Inc()
}
