package certificate

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/couchcryptid/efb-avv-checker/internal/domain"
)

var (
	// codeOnlyRe matches a table row holding just a code, e.g. "20 01 08" or "190204*".
	codeOnlyRe = regexp.MustCompile(`^(\d{2}\s?\d{2}\s?\d{2}|\d{6})(\*?)$`)
	// codeTextRe matches a code followed by its designation on the same line.
	codeTextRe = regexp.MustCompile(`^(\d{2}\s?\d{2}\s?\d{2}|\d{6})(\*?)\s+(.+)$`)
	// supplementLineRe matches a remarks-sheet row, with or without text.
	supplementLineRe = regexp.MustCompile(`^(\d{2}\s?\d{2}\s?\d{2}|\d{6})(\*?)\s*(.*)$`)
	// supplementEndRe ends a remarks block at the page footer, the next
	// section or the next annex.
	supplementEndRe = regexp.MustCompile(`\nSeite|\n2\. |\nAnlage \d+ zum Zertifikat`)
)

const supplementHeading = "Beiblatt Einschränkungen/Bemerkungen"

// supplementSplitRes caches the per-annex heading pattern, keyed by annex number.
var supplementSplitRes sync.Map

// supplementSplitRe matches the remarks-sheet heading of annex annexNo up to
// the end of its line.
func supplementSplitRe(annexNo int) *regexp.Regexp {
	if re, ok := supplementSplitRes.Load(annexNo); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(regexp.QuoteMeta(supplementHeading) + `\s+` + strconv.Itoa(annexNo) + `\b.*?\n`)
	actual, _ := supplementSplitRes.LoadOrStore(annexNo, re)
	return actual.(*regexp.Regexp)
}

// tableNoise are headings and column titles of the section 4 table that get
// interleaved with code rows during text extraction.
var tableNoise = toSet(
	"Abfallschlüssel",
	"(ggf. mit „*“-Eintrag)",
	"Abfallbezeichnung",
	"Einschränkungen/Bemerkungen",
	"4. Abfallarten nach dem Anhang zur AVV:",
	"4.1",
	"4.2",
	"4.3",
	"4.4",
	"alle Abfallarten",
	"alle nicht gefährlichen Abfälle",
	"alle gefährlichen Abfälle",
	"bestimmte Abfallarten",
)

// ParseCodes walks the annex text line by line and collects waste code rows.
// A code line opens an entry; following lines are appended to its text until
// the next code or the remarks sheet. Page footers and repeated annex headers
// are skipped, codes outside chapters 01–20 are ignored, and only the first
// entry per code is kept.
func ParseCodes(text string) []domain.WasteCode {
	var (
		entries []domain.WasteCode
		current *domain.WasteCode
	)
	open := func(raw, star, rest string) {
		code, ok := domain.NormalizeAVV(raw)
		if !ok || !domain.ValidChapter(code) {
			return
		}
		if current != nil {
			entries = append(entries, *current)
		}
		current = &domain.WasteCode{Code: code, Hazardous: star == "*", Text: strings.TrimSpace(rest)}
	}

	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, "Seite ") || annexHeaderRe.MatchString(ln) {
			continue
		}
		if strings.HasPrefix(ln, supplementHeading) {
			// The remarks sheet follows the table; its rows are read by ParseSupplement.
			if current != nil {
				entries = append(entries, *current)
				current = nil
			}
			continue
		}

		if m := codeOnlyRe.FindStringSubmatch(ln); m != nil {
			open(m[1], m[2], "")
			continue
		}
		if m := codeTextRe.FindStringSubmatch(ln); m != nil {
			open(m[1], m[2], m[3])
			continue
		}

		if current == nil || tableNoise[ln] {
			continue
		}
		current.Text = strings.TrimSpace(current.Text + " " + ln)
	}
	if current != nil {
		entries = append(entries, *current)
	}

	seen := make(map[string]bool, len(entries))
	out := make([]domain.WasteCode, 0, len(entries))
	for _, e := range entries {
		if seen[e.Code] {
			continue
		}
		seen[e.Code] = true
		out = append(out, e)
	}
	return out
}

// ParseSupplement extracts the remarks sheet ("Beiblatt Einschränkungen/
// Bemerkungen") of annex annexNo, keyed by code. The sheet may be split across
// several blocks; remarks for the same code are concatenated.
func ParseSupplement(text string, annexNo int) map[string]string {
	parts := supplementSplitRe(annexNo).Split(text, -1)
	if len(parts) <= 1 {
		return map[string]string{}
	}

	remarks := make(map[string]string)
	flush := func(code string, buf []string) {
		if code == "" {
			return
		}
		joined := strings.Join(nonEmpty(buf), " ")
		remarks[code] = strings.TrimSpace(remarks[code] + " " + joined)
	}

	for _, part := range parts[1:] {
		block := part
		if loc := supplementEndRe.FindStringIndex(part); loc != nil {
			block = part[:loc[0]]
		}

		var (
			current string
			buf     []string
		)
		for _, ln := range strings.Split(block, "\n") {
			ln = strings.TrimSpace(ln)
			if ln == "" {
				continue
			}
			var code string
			m := supplementLineRe.FindStringSubmatch(ln)
			if m != nil {
				code, _ = domain.NormalizeAVV(m[1])
			}
			if code != "" {
				flush(current, buf)
				current = code
				buf = buf[:0]
				if tail := strings.TrimSpace(m[3]); tail != "" {
					buf = append(buf, tail)
				}
				continue
			}
			if current != "" {
				buf = append(buf, ln)
			}
		}
		flush(current, buf)
	}

	for code, remark := range remarks {
		if remark == "" {
			delete(remarks, code)
		}
	}
	return remarks
}

func nonEmpty(ss []string) []string {
	out := ss[:0:0]
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toSet(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
