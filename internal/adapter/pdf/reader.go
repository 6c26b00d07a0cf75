// Package pdf reads certificate PDFs into page text for the certificate
// extractor. Text is rebuilt line by line from positioned glyphs.
package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/couchcryptid/efb-avv-checker/internal/certificate"
	pdflib "github.com/ledongthuc/pdf"
)

// spaceGapRatio is the horizontal gap between two runs, relative to the font
// size, above which a word break is inserted.
const spaceGapRatio = 0.2

// File is a certificate.Source backed by a PDF file.
type File struct {
	Path   string
	logger *slog.Logger
}

// NewFile creates a PDF source for path.
func NewFile(path string, logger *slog.Logger) *File {
	return &File{Path: path, logger: logger}
}

// Load decodes every page of the PDF. Pages that cannot be decoded are kept
// as empty pages so page numbers stay aligned with the document.
func (f *File) Load(ctx context.Context) (certificate.Document, error) {
	fh, r, err := pdflib.Open(f.Path)
	if err != nil {
		return certificate.Document{}, fmt.Errorf("open pdf: %w", err)
	}
	defer fh.Close()

	n := r.NumPage()
	if n == 0 {
		return certificate.Document{}, certificate.ErrInvalidDocument
	}

	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return certificate.Document{}, err
		}
		text, err := pageText(r.Page(i))
		if err != nil {
			f.logger.Warn("pdf page decode failed, keeping empty page", "page", i, "error", err)
		}
		pages = append(pages, certificate.NormalizePage(text))
	}

	f.logger.Debug("pdf loaded", "path", f.Path, "pages", n)
	return certificate.Document{Pages: pages}, nil
}

// pageText extracts the lines of one page. The PDF library panics on some
// malformed content streams, which is reported as an error instead.
func pageText(p pdflib.Page) (text string, err error) {
	if p.V.IsNull() {
		return "", nil
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("decode page: %v", r)
		}
	}()

	return renderLines(groupLines(p.Content().Text)), nil
}

// groupLines collects glyphs that share a baseline, rounded to whole points,
// into lines. Content runs the full text state (Tm, Td, TD, T*, TJ offsets),
// so X, Y, W and FontSize are set on every glyph.
func groupLines(glyphs []pdflib.Text) []line {
	var lines []line
	index := make(map[float64]int)
	for _, g := range glyphs {
		if g.S == "\n" || g.S == "" {
			continue
		}
		y := math.Round(g.Y)
		i, ok := index[y]
		if !ok {
			i = len(lines)
			index[y] = i
			lines = append(lines, line{Y: y})
		}
		lines[i].Runs = append(lines[i].Runs, run{X: g.X, W: g.W, FontSize: g.FontSize, S: g.S})
	}
	return lines
}

// run is a positioned piece of text on a line.
type run struct {
	X, W     float64
	FontSize float64
	S        string
}

// line is a row of runs sharing a baseline.
type line struct {
	Y    float64
	Runs []run
}

// renderLines orders lines top to bottom (PDF y grows upwards) and runs left
// to right, joining runs with a space where the gap suggests a word break.
func renderLines(lines []line) string {
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Y > lines[j].Y })

	var b strings.Builder
	for _, ln := range lines {
		runs := ln.Runs
		sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

		var sb strings.Builder
		for i, r := range runs {
			if i > 0 && needsSpace(runs[i-1], r, sb.String()) {
				sb.WriteByte(' ')
			}
			sb.WriteString(r.S)
		}
		if s := strings.TrimRight(sb.String(), " "); s != "" {
			b.WriteString(s)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func needsSpace(prev, next run, sofar string) bool {
	if strings.HasSuffix(sofar, " ") || strings.HasPrefix(next.S, " ") {
		return false
	}
	size := next.FontSize
	if size <= 0 {
		size = prev.FontSize
	}
	if size <= 0 {
		return false
	}
	gap := next.X - (prev.X + prev.W)
	return gap > size*spaceGapRatio
}
