// Package sqlite persists the waste-code catalog in an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/efb-avv-checker/internal/adapter/sqlite/migrations"
	"github.com/couchcryptid/efb-avv-checker/internal/domain"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrNotFound aliases domain.ErrNotFound so callers need not import this package.
var ErrNotFound = domain.ErrNotFound

const siteColumns = `id, annex, pages_start, pages_end, bezeichnung, strasse, plz, ort, bundesland, taetigkeit, lat, lon`

// Store reads and writes the catalog tables.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenExisting opens a catalog that must already exist on disk.
func OpenExisting(ctx context.Context, path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("catalog %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("stat catalog: %w", err)
	}
	return Open(ctx, path)
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ReplaceCatalog swaps the whole catalog in one transaction and returns the
// sites with their assigned IDs.
func (s *Store) ReplaceCatalog(ctx context.Context, meta domain.Meta, catalog []domain.SiteCatalog) ([]domain.Site, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace catalog: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, stmt := range []string{
		`DELETE FROM avv`,
		`DELETE FROM sites`,
		`DELETE FROM meta`,
		`DELETE FROM sqlite_sequence WHERE name IN ('sites', 'avv')`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("clear catalog: %w", err)
		}
	}

	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (k, v) VALUES (?, ?)`, k, v); err != nil {
			return nil, fmt.Errorf("insert meta %s: %w", k, err)
		}
	}

	siteStmt, err := tx.PrepareContext(ctx, `INSERT INTO sites
		(annex, pages_start, pages_end, bezeichnung, strasse, plz, ort, bundesland, taetigkeit, lat, lon)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare site insert: %w", err)
	}
	defer siteStmt.Close()

	codeStmt, err := tx.PrepareContext(ctx, `INSERT INTO avv (site_id, code, hazardous, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare code insert: %w", err)
	}
	defer codeStmt.Close()

	sites := make([]domain.Site, 0, len(catalog))
	for _, entry := range catalog {
		site := entry.Site
		res, err := siteStmt.ExecContext(ctx,
			site.Annex, site.PageStart, site.PageEnd,
			nullString(site.Name), nullString(site.Street), nullString(site.PostalCode),
			nullString(site.City), nullString(site.State), nullString(site.Activity),
			nullFloat(site.Lat), nullFloat(site.Lon),
		)
		if err != nil {
			return nil, fmt.Errorf("insert site annex %d: %w", site.Annex, err)
		}
		if site.ID, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("site id annex %d: %w", site.Annex, err)
		}
		for _, c := range entry.Codes {
			if _, err := codeStmt.ExecContext(ctx, site.ID, c.Code, boolInt(c.Hazardous), c.Text); err != nil {
				return nil, fmt.Errorf("insert code %s annex %d: %w", c.Code, site.Annex, err)
			}
		}
		sites = append(sites, site)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace catalog: %w", err)
	}
	return sites, nil
}

// Meta returns all catalog provenance entries.
func (s *Store) Meta(ctx context.Context) (domain.Meta, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT k, v FROM meta`)
	if err != nil {
		return nil, fmt.Errorf("query meta: %w", err)
	}
	defer rows.Close()

	meta := domain.Meta{}
	for rows.Next() {
		var k string
		var v sql.NullString
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan meta: %w", err)
		}
		meta[k] = v.String
	}
	return meta, rows.Err()
}

// ListSites returns all sites ordered by city and annex.
func (s *Store) ListSites(ctx context.Context) ([]domain.Site, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY ort, annex`)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()

	var sites []domain.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// GetSite returns one site by ID.
func (s *Store) GetSite(ctx context.Context, id int64) (domain.Site, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = ?`, id)
	site, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Site{}, fmt.Errorf("site %d: %w", id, ErrNotFound)
	}
	return site, err
}

// CodesForSite returns the accepted codes of a site ordered by code.
func (s *Store) CodesForSite(ctx context.Context, siteID int64) ([]domain.WasteCode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, hazardous, text FROM avv WHERE site_id = ? ORDER BY code`, siteID)
	if err != nil {
		return nil, fmt.Errorf("query codes: %w", err)
	}
	defer rows.Close()

	var codes []domain.WasteCode
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// FindCode returns one code entry at a site.
func (s *Store) FindCode(ctx context.Context, siteID int64, code string) (domain.WasteCode, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT code, hazardous, text FROM avv WHERE site_id = ? AND code = ? LIMIT 1`, siteID, code)
	c, err := scanCode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WasteCode{}, fmt.Errorf("code %s at site %d: %w", code, siteID, ErrNotFound)
	}
	return c, err
}

// SetCoordinates stores resolved coordinates for a site.
func (s *Store) SetCoordinates(ctx context.Context, siteID int64, lat, lon float64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sites SET lat = ?, lon = ? WHERE id = ?`, lat, lon, siteID)
	if err != nil {
		return fmt.Errorf("update coordinates: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update coordinates: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("site %d: %w", siteID, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSite(sc scanner) (domain.Site, error) {
	var site domain.Site
	var annex, pageStart, pageEnd sql.NullInt64
	var name, street, postalCode, city, state, activity sql.NullString
	var lat, lon sql.NullFloat64
	if err := sc.Scan(&site.ID, &annex, &pageStart, &pageEnd,
		&name, &street, &postalCode, &city, &state, &activity, &lat, &lon); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Site{}, err
		}
		return domain.Site{}, fmt.Errorf("scan site: %w", err)
	}
	site.Annex = int(annex.Int64)
	site.PageStart = int(pageStart.Int64)
	site.PageEnd = int(pageEnd.Int64)
	site.Name = name.String
	site.Street = street.String
	site.PostalCode = postalCode.String
	site.City = city.String
	site.State = state.String
	site.Activity = activity.String
	if lat.Valid && lon.Valid {
		site.Lat = &lat.Float64
		site.Lon = &lon.Float64
	}
	return site, nil
}

func scanCode(sc scanner) (domain.WasteCode, error) {
	var (
		c         domain.WasteCode
		hazardous int
		text      sql.NullString
	)
	if err := sc.Scan(&c.Code, &hazardous, &text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WasteCode{}, err
		}
		return domain.WasteCode{}, fmt.Errorf("scan code: %w", err)
	}
	c.Hazardous = hazardous != 0
	c.Text = text.String
	return c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
