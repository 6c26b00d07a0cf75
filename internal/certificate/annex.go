package certificate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/couchcryptid/efb-avv-checker/internal/domain"
)

var (
	// annexHeaderRe marks the first page of a site annex, e.g. "Anlage 3 zum Zertifikat".
	annexHeaderRe = regexp.MustCompile(`Anlage\s+(\d+)\s+zum Zertifikat`)

	nameRe       = regexp.MustCompile(`1\.1\s+Bezeichnung des Standorts:\s*(.+)`)
	streetRe     = regexp.MustCompile(`1\.2\s+Straße:\s*(.+)`)
	postalCodeRe = regexp.MustCompile(`Postleitzahl:\s*(\d{4,5})`)
	// cityRe stays on the "Ort:" line; the following field label must not leak in.
	cityRe  = regexp.MustCompile(`Ort:[ \t]*([A-Za-zÄÖÜäöüß\-/\. \t]+)`)
	stateRe = regexp.MustCompile(`Bundesland:\s*([A-Z]{2})`)

	// activityRe captures section 3 up to the page footer or section 4.
	activityRe = regexp.MustCompile(`(?s)3\.\s+Beschreibung.*?:\s*\n(.+?)(?:\nSeite|\n4\.)`)
)

// AnnexStart is the page on which an annex begins.
type AnnexStart struct {
	Number int
	Page   int
}

// AnnexRange is the inclusive page span of one annex.
type AnnexRange struct {
	Number    int
	PageStart int
	PageEnd   int
}

// Annex is the structured content of one site annex.
type Annex struct {
	Number     int
	PageStart  int
	PageEnd    int
	Name       string
	Street     string
	PostalCode string
	City       string
	State      string
	Activity   string
	Codes      []domain.WasteCode
}

// Site converts the annex header fields into a domain site.
func (a Annex) Site() domain.Site {
	return domain.Site{
		Annex:      a.Number,
		PageStart:  a.PageStart,
		PageEnd:    a.PageEnd,
		Name:       a.Name,
		Street:     a.Street,
		PostalCode: a.PostalCode,
		City:       a.City,
		State:      a.State,
		Activity:   a.Activity,
	}
}

// FindAnnexStarts returns the first page of every annex, in page order.
// Continuation pages that repeat the running header of the annex they belong
// to are not treated as new annexes.
func FindAnnexStarts(doc Document) []AnnexStart {
	var starts []AnnexStart
	for i, text := range doc.Pages {
		m := annexHeaderRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if len(starts) > 0 && starts[len(starts)-1].Number == n {
			continue
		}
		starts = append(starts, AnnexStart{Number: n, Page: i + 1})
	}
	return starts
}

// AnnexRanges splits the document into annex page spans. Each annex runs up to
// the page before the next one starts; the last runs to the end.
func AnnexRanges(doc Document) []AnnexRange {
	starts := FindAnnexStarts(doc)
	ranges := make([]AnnexRange, 0, len(starts))
	for i, s := range starts {
		end := doc.NumPages()
		if i+1 < len(starts) {
			end = starts[i+1].Page - 1
		}
		ranges = append(ranges, AnnexRange{Number: s.Number, PageStart: s.Page, PageEnd: end})
	}
	return ranges
}

// ParseAnnex extracts site fields, the waste code table and the remarks sheet
// from pages start..end and merges remarks into the matching code entries.
func ParseAnnex(doc Document, annexNo, start, end int) Annex {
	text := doc.Text(start, end)

	a := Annex{
		Number:     annexNo,
		PageStart:  start,
		PageEnd:    end,
		Name:       firstGroup(nameRe, text),
		Street:     firstGroup(streetRe, text),
		PostalCode: firstGroup(postalCodeRe, text),
		City:       firstGroup(cityRe, text),
		State:      firstGroup(stateRe, text),
		Activity:   parseActivity(text),
	}

	codes := ParseCodes(text)
	supplement := ParseSupplement(text, annexNo)
	for i := range codes {
		remark, ok := supplement[codes[i].Code]
		if !ok {
			continue
		}
		if codes[i].Text != "" {
			codes[i].Text += " | "
		}
		codes[i].Text += "Beiblatt: " + remark
	}
	a.Codes = codes
	return a
}

// Extract parses every annex of the document, in page order.
func Extract(doc Document) []Annex {
	ranges := AnnexRanges(doc)
	annexes := make([]Annex, 0, len(ranges))
	for _, r := range ranges {
		annexes = append(annexes, ParseAnnex(doc, r.Number, r.PageStart, r.PageEnd))
	}
	return annexes
}

func parseActivity(text string) string {
	m := activityRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return joinLines(m[1])
}

// firstGroup returns the trimmed first capture group of the first match, or "".
func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// joinLines collapses the non-blank lines of s into one space-separated line.
func joinLines(s string) string {
	var parts []string
	for _, ln := range strings.Split(s, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			parts = append(parts, ln)
		}
	}
	return strings.Join(parts, " ")
}
