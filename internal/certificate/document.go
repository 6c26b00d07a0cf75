// Package certificate extracts site and waste-code records from the text of an
// EfB certificate. The patterns are tailored to one certificate template: a
// cover section followed by one "Anlage N zum Zertifikat" annex per site, each
// with numbered address fields, an activity description (section 3), a waste
// code table (section 4) and an optional remarks sheet ("Beiblatt").
package certificate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidDocument is returned when a document has no pages to extract from.
var ErrInvalidDocument = errors.New("certificate document has no pages")

// Document is the text of a certificate, one entry per page.
type Document struct {
	Pages []string
}

// NumPages returns the page count.
func (d Document) NumPages() int {
	return len(d.Pages)
}

// Page returns the text of page n (1-indexed), or "" when out of range.
func (d Document) Page(n int) string {
	if n < 1 || n > len(d.Pages) {
		return ""
	}
	return d.Pages[n-1]
}

// Text joins pages start..end (inclusive, 1-indexed) with newlines.
func (d Document) Text(start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(d.Pages) {
		end = len(d.Pages)
	}
	if start > end {
		return ""
	}
	return strings.Join(d.Pages[start-1:end], "\n")
}

// Source loads a certificate document.
type Source interface {
	Load(ctx context.Context) (Document, error)
}

// NormalizePage canonicalizes extracted page text: NFC composition, so
// decomposed umlauts match the patterns, and LF line endings.
func NormalizePage(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return norm.NFC.String(s)
}

// ReadText parses pre-extracted certificate text with pages separated by form
// feeds, the layout pdftotext produces.
func ReadText(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("read certificate text: %w", err)
	}
	pages := strings.Split(NormalizePage(string(data)), "\f")
	if n := len(pages); n > 0 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	if len(pages) == 0 {
		return Document{}, ErrInvalidDocument
	}
	return Document{Pages: pages}, nil
}

// TextFile is a Source backed by a pre-extracted text file.
type TextFile struct {
	Path string
}

// Load reads and splits the file into pages.
func (f TextFile) Load(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return Document{}, fmt.Errorf("open certificate text: %w", err)
	}
	defer fh.Close()
	return ReadText(fh)
}
