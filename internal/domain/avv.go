package domain

import (
	"strings"

	"golang.org/x/text/cases"
)

// DefaultSuggestionLimit caps the similar codes returned for a negative check.
const DefaultSuggestionLimit = 10

// CheckNotice qualifies every check verdict.
const CheckNotice = "The check only covers whether the AVV code is listed in the EfB certificate for the selected site. " +
	"Further requirements (acceptance criteria, permits, block lists, customer approvals) must be checked separately."

var folder = cases.Fold()

// NormalizeAVV strips every non-digit from s and returns the six-digit code.
// Five digits are left-padded with a zero; any other length is invalid.
func NormalizeAVV(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		if r < 0x80 && isDigit(byte(r)) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch len(digits) {
	case 6:
		return digits, true
	case 5:
		return "0" + digits, true
	default:
		return "", false
	}
}

// ValidChapter reports whether the code's leading pair is an AVV chapter (01–20).
func ValidChapter(code string) bool {
	if len(code) < 2 || !isDigit(code[0]) || !isDigit(code[1]) {
		return false
	}
	ch := int(code[0]-'0')*10 + int(code[1]-'0')
	return ch >= 1 && ch <= 20
}

// SuggestSimilar returns codes sharing the group (first four digits) of code,
// followed by codes sharing only the chapter (first two), in input order.
func SuggestSimilar(codes []WasteCode, code string, limit int) []WasteCode {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	if len(code) < 4 {
		return nil
	}
	group, chapter := code[:4], code[:2]

	out := make([]WasteCode, 0, limit)
	seen := make(map[string]bool)
	for _, c := range codes {
		if strings.HasPrefix(c.Code, group) {
			out = append(out, c)
			seen[c.Code] = true
		}
	}
	for _, c := range codes {
		if strings.HasPrefix(c.Code, chapter) && !seen[c.Code] {
			out = append(out, c)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// FilterCodes keeps codes whose code or text contains filter, ignoring case.
func FilterCodes(codes []WasteCode, filter string) []WasteCode {
	f := folder.String(strings.TrimSpace(filter))
	if f == "" {
		return codes
	}
	out := make([]WasteCode, 0, len(codes))
	for _, c := range codes {
		if strings.Contains(folder.String(c.Code), f) || strings.Contains(folder.String(c.Text), f) {
			out = append(out, c)
		}
	}
	return out
}

// HintCount counts codes that carry a non-blank description or restriction.
func HintCount(codes []WasteCode) int {
	n := 0
	for _, c := range codes {
		if strings.TrimSpace(c.Text) != "" {
			n++
		}
	}
	return n
}

// CheckResult is the verdict for one AVV input at one site.
type CheckResult struct {
	Input       string      `json:"input"`
	Code        string      `json:"code,omitempty"`
	Valid       bool        `json:"valid"`
	Positive    bool        `json:"positive"`
	Entry       *WasteCode  `json:"entry,omitempty"`
	Suggestions []WasteCode `json:"suggestions,omitempty"`
	Message     string      `json:"message"`
}

// Check looks up input among a site's codes. Invalid input yields Valid=false;
// a miss carries suggestions from the same group and chapter.
func Check(codes []WasteCode, input string) CheckResult {
	res := CheckResult{Input: input}
	code, ok := NormalizeAVV(input)
	if !ok {
		res.Message = "invalid input: enter an AVV code with 6 digits (e.g. 200108)"
		return res
	}
	res.Code = code
	res.Valid = true

	for i := range codes {
		if codes[i].Code == code {
			entry := codes[i]
			res.Positive = true
			res.Entry = &entry
			res.Message = "positive: " + code + " is listed for this site"
			return res
		}
	}
	res.Suggestions = SuggestSimilar(codes, code, DefaultSuggestionLimit)
	res.Message = "negative: " + code + " is not listed for this site"
	return res
}

// FormatCode renders a six-digit code in its printed form, e.g. "20 01 08".
func FormatCode(code string) string {
	if len(code) != 6 {
		return code
	}
	return code[:2] + " " + code[2:4] + " " + code[4:]
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
