package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/efb-avv-checker/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "efb_avv.sqlite")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func testCatalog() []domain.SiteCatalog {
	return []domain.SiteCatalog{
		{
			Site: domain.Site{Annex: 3, PageStart: 5, PageEnd: 6, Name: "Trockenvergärung Nordheide", City: "Tostedt", State: "NI"},
			Codes: []domain.WasteCode{
				{Code: "200302", Text: "Marktabfälle"},
				{Code: "200201", Text: "biologisch abbaubare Abfälle"},
			},
		},
		{
			Site: domain.Site{Annex: 1, PageStart: 2, PageEnd: 3, Name: "Biogasanlage Oldenburg", City: "Oldenburg", State: "NI",
				Lat: ptr(53.14), Lon: ptr(8.21)},
			Codes: []domain.WasteCode{
				{Code: "200108", Text: "Küchenabfälle"},
				{Code: "190204", Hazardous: true},
			},
		},
	}
}

func TestReplaceCatalog_AssignsIDs(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	sites, err := s.ReplaceCatalog(ctx, domain.Meta{domain.MetaSourcePDF: "zertifikat.pdf"}, testCatalog())
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, int64(1), sites[0].ID)
	assert.Equal(t, int64(2), sites[1].ID)

	meta, err := s.Meta(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Meta{domain.MetaSourcePDF: "zertifikat.pdf"}, meta)
}

func TestReplaceCatalog_ReplacesPreviousRun(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceCatalog(ctx, domain.Meta{"run": "1"}, testCatalog())
	require.NoError(t, err)
	sites, err := s.ReplaceCatalog(ctx, domain.Meta{"run": "2"}, testCatalog()[:1])
	require.NoError(t, err)
	assert.Equal(t, int64(1), sites[0].ID, "id sequence restarts")

	all, err := s.ListSites(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	meta, err := s.Meta(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Meta{"run": "2"}, meta)
}

func TestListSites_OrderedByCity(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	_, err := s.ReplaceCatalog(ctx, nil, testCatalog())
	require.NoError(t, err)

	sites, err := s.ListSites(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "Oldenburg", sites[0].City)
	assert.Equal(t, "Tostedt", sites[1].City)
	assert.True(t, sites[0].HasCoordinates())
	assert.False(t, sites[1].HasCoordinates())
}

func TestGetSite(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	stored, err := s.ReplaceCatalog(ctx, nil, testCatalog())
	require.NoError(t, err)

	got, err := s.GetSite(ctx, stored[1].ID)
	require.NoError(t, err)
	if diff := cmp.Diff(stored[1], got); diff != "" {
		t.Fatalf("site mismatch (-want +got):\n%s", diff)
	}

	_, err = s.GetSite(ctx, 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCodesForSite_SortedWithHazardFlag(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	stored, err := s.ReplaceCatalog(ctx, nil, testCatalog())
	require.NoError(t, err)

	codes, err := s.CodesForSite(ctx, stored[1].ID)
	require.NoError(t, err)
	want := []domain.WasteCode{
		{Code: "190204", Hazardous: true},
		{Code: "200108", Text: "Küchenabfälle"},
	}
	if diff := cmp.Diff(want, codes); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}

	none, err := s.CodesForSite(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindCode(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	stored, err := s.ReplaceCatalog(ctx, nil, testCatalog())
	require.NoError(t, err)

	c, err := s.FindCode(ctx, stored[0].ID, "200302")
	require.NoError(t, err)
	assert.Equal(t, "Marktabfälle", c.Text)

	_, err = s.FindCode(ctx, stored[0].ID, "200108")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetCoordinates(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	stored, err := s.ReplaceCatalog(ctx, nil, testCatalog())
	require.NoError(t, err)

	require.NoError(t, s.SetCoordinates(ctx, stored[0].ID, 53.3, 9.7))
	got, err := s.GetSite(ctx, stored[0].ID)
	require.NoError(t, err)
	require.True(t, got.HasCoordinates())
	assert.InDelta(t, 53.3, *got.Lat, 1e-9)
	assert.InDelta(t, 9.7, *got.Lon, 1e-9)

	require.ErrorIs(t, s.SetCoordinates(ctx, 42, 1, 1), ErrNotFound)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()
	_, err := s.ReplaceCatalog(ctx, nil, testCatalog())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	again, err := OpenExisting(ctx, path)
	require.NoError(t, err)
	defer again.Close()

	sites, err := again.ListSites(ctx)
	require.NoError(t, err)
	assert.Len(t, sites, 2)
	require.NoError(t, again.Ping(ctx))
}

func TestOpenExisting_Missing(t *testing.T) {
	_, err := OpenExisting(context.Background(), filepath.Join(t.TempDir(), "absent.sqlite"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), " ")
	require.Error(t, err)
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE x (id INTEGER);\n-- +migrate Down\nDROP TABLE x;\n"
	assert.Equal(t, "\nCREATE TABLE x (id INTEGER);\n", extractUpMigration(content))
	assert.Equal(t, "SELECT 1;", extractUpMigration("SELECT 1;"))
}
