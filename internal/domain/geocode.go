package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding fills in missing site coordinates from its address.
// If geocoder is nil, the site already has coordinates, or the lookup fails,
// the site is returned unchanged (graceful degradation).
func EnrichWithGeocoding(ctx context.Context, site Site, geocoder Geocoder, logger *slog.Logger) Site {
	if geocoder == nil || site.HasCoordinates() {
		return site
	}

	address := FullAddress(site)
	result, err := geocoder.ForwardGeocode(ctx, address)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"annex", site.Annex,
			"address", address,
			"error", err,
		)
		return site
	}
	if result.Empty() {
		logger.Debug("address not found by geocoder", "annex", site.Annex, "address", address)
		return site
	}

	lat, lon := result.Lat, result.Lon
	site.Lat = &lat
	site.Lon = &lon
	return site
}
