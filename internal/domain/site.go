package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Meta keys written alongside every seeded catalog.
const (
	MetaSourcePDF   = "source_pdf"
	MetaGeneratedAt = "generated_at_utc"
)

// ErrNotFound is returned when a site, code or catalog does not exist.
var ErrNotFound = errors.New("not found")

// Country is appended to every site address; all EfB sites are in Germany.
const Country = "Deutschland"

// biogasKeywords select digestion sites from activity descriptions.
var biogasKeywords = []string{
	"biogasanlage",
	"vergärungsanlage",
	"trockenvergärung",
	"nass-",
	"abfallvergärungsanlage",
}

// Site is one certified facility, extracted from a single certificate annex.
type Site struct {
	ID         int64    `json:"id"`
	Annex      int      `json:"annex"`
	PageStart  int      `json:"pages_start"`
	PageEnd    int      `json:"pages_end"`
	Name       string   `json:"name,omitempty"`
	Street     string   `json:"street,omitempty"`
	PostalCode string   `json:"postal_code,omitempty"`
	City       string   `json:"city,omitempty"`
	State      string   `json:"state,omitempty"`
	Activity   string   `json:"activity,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (s Site) HasCoordinates() bool {
	return s.Lat != nil && s.Lon != nil
}

// WasteCode is one accepted waste type at a site.
type WasteCode struct {
	Code      string `json:"code"`
	Hazardous bool   `json:"hazardous,omitempty"`
	Text      string `json:"text,omitempty"`
}

// SiteCatalog bundles a site with its accepted waste codes, the unit written
// by the seed pipeline.
type SiteCatalog struct {
	Site  Site        `json:"site"`
	Codes []WasteCode `json:"codes"`
}

// Meta holds catalog provenance (source document, generation time).
type Meta map[string]string

// SiteSummary is the overview row for a site.
type SiteSummary struct {
	Site      Site   `json:"site"`
	Label     string `json:"label"`
	Address   string `json:"address"`
	CodeCount int    `json:"code_count"`
	HintCount int    `json:"hint_count"`
}

// SiteLabel renders the selector label, e.g. "Musterstadt (NI) • Anlage 3".
func SiteLabel(s Site) string {
	city := s.City
	if city == "" {
		city = "—"
	}
	return fmt.Sprintf("%s (%s) • Anlage %d", city, s.State, s.Annex)
}

// FullAddress joins the non-empty address parts and the country.
func FullAddress(s Site) string {
	var parts []string
	if s.Street != "" {
		parts = append(parts, s.Street)
	}
	var line2 []string
	for _, p := range []string{s.PostalCode, s.City} {
		if p != "" {
			line2 = append(line2, p)
		}
	}
	if len(line2) > 0 {
		parts = append(parts, strings.Join(line2, " "))
	}
	if s.State != "" {
		parts = append(parts, s.State)
	}
	parts = append(parts, Country)
	return strings.Join(parts, ", ")
}

// IsBiogasSite reports whether an activity description names a biogas or
// digestion plant.
func IsBiogasSite(activity string) bool {
	if activity == "" {
		return false
	}
	d := strings.ToLower(activity)
	for _, k := range biogasKeywords {
		if strings.Contains(d, k) {
			return true
		}
	}
	return false
}

// Summarize builds the overview row for a site and its codes.
func Summarize(s Site, codes []WasteCode) SiteSummary {
	return SiteSummary{
		Site:      s,
		Label:     SiteLabel(s),
		Address:   FullAddress(s),
		CodeCount: len(codes),
		HintCount: HintCount(codes),
	}
}

// MapLinks are external map searches for an address, offered when no
// coordinates could be resolved.
type MapLinks struct {
	OpenStreetMap string `json:"openstreetmap"`
	GoogleMaps    string `json:"google_maps"`
}

// NewMapLinks builds search links for an address.
func NewMapLinks(address string) MapLinks {
	q := url.QueryEscape(address)
	return MapLinks{
		OpenStreetMap: "https://www.openstreetmap.org/search?query=" + q,
		GoogleMaps:    "https://www.google.com/maps/search/?api=1&query=" + q,
	}
}

// Location is the resolved map position of a site.
type Location struct {
	SiteID  int64     `json:"site_id"`
	Address string    `json:"address"`
	Lat     *float64  `json:"lat,omitempty"`
	Lon     *float64  `json:"lon,omitempty"`
	Source  string    `json:"source"` // "stored", "geocoded", "unresolved"
	Links   *MapLinks `json:"links,omitempty"`
}
