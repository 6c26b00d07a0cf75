package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
}

// Empty reports whether the provider found nothing.
func (r GeocodingResult) Empty() bool {
	return r.Lat == 0 && r.Lon == 0
}

// Geocoder resolves a postal address to coordinates.
type Geocoder interface {
	// ForwardGeocode converts a free-form address to coordinates. An address
	// the provider does not know yields an empty result and no error.
	ForwardGeocode(ctx context.Context, address string) (GeocodingResult, error)
}
