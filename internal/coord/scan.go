package coord

import (
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Match is a coordinate pair found in free text.
type Match struct {
	Point
	Text   string // matched substring, as it appears in the normalized text
	Offset int    // byte offset of the match in the normalized text
}

// Scan patterns are unanchored variants of the Parse notations. The plain
// decimal pattern demands at least three decimal places on both numbers:
// literature is full of "12, 34"-shaped number pairs that are not
// coordinates, while real decimal coordinates are quoted to meter-ish
// precision.
var (
	scanSexPair = regexp.MustCompile(
		sexagesimal(reLatH) + reSep + sexagesimal(reLngH))
	scanHemiDecPair = regexp.MustCompile(
		`(?:(` + reLatH + `)\s*|\b)(` + reNum + `)\s*(?:` + reDeg + `)?\s*(` + reLatH + `)?` +
			`(?:\s*[,;/]\s*|\s+)` +
			`(?:(` + reLngH + `)\s*)?([+-]?` + reNum + `)\s*(?:` + reDeg + `)?\s*(` + reLngH + `)?`)
	scanPlainDecPair = regexp.MustCompile(
		`([+-]?\d{1,3}\.\d{3,})\s*[,;]?\s+?([+-]?\d{1,3}\.\d{3,})|` +
			`([+-]?\d{1,3}\.\d{3,})\s*[,;]\s*([+-]?\d{1,3}\.\d{3,})`)
)

// NormalizeText applies NFKC normalization so that ligatures, full-width
// digits, and typographic degree/minute marks from PDF extraction parse.
func NormalizeText(text string) string {
	return norm.NFKC.String(text)
}

// ScanText finds all coordinate pairs in free text. The text is NFKC
// normalized before scanning; offsets refer to the normalized text.
// Pairs are deduplicated by rounding to four decimal places, first
// occurrence wins. Sexagesimal matches take precedence over decimal ones
// covering the same text.
func ScanText(text string) []Match {
	text = NormalizeText(text)

	var matches []Match
	claimed := make([][2]int, 0, 8)

	overlaps := func(start, end int) bool {
		for _, c := range claimed {
			if start < c[1] && end > c[0] {
				return true
			}
		}
		return false
	}

	for _, loc := range scanSexPair.FindAllStringSubmatchIndex(text, -1) {
		m := submatches(text, loc)
		lat, ok1 := sexValue(m[1], m[2], m[3], m[4], m[5], false)
		lng, ok2 := sexValue(m[6], m[7], m[8], m[9], m[10], true)
		p := Point{Lat: lat, Lng: lng}
		if !ok1 || !ok2 || !p.Valid() {
			continue
		}
		// Bare "12° 34' 56" pairs with no hemisphere are too ambiguous in
		// running text; demand a hemisphere letter on at least one side.
		if m[1] == "" && m[5] == "" && m[6] == "" && m[10] == "" {
			continue
		}
		matches = append(matches, Match{Point: p, Text: text[loc[0]:loc[1]], Offset: loc[0]})
		claimed = append(claimed, [2]int{loc[0], loc[1]})
	}

	for _, loc := range scanHemiDecPair.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(loc[0], loc[1]) {
			continue
		}
		m := submatches(text, loc)
		// Demand hemisphere letters on both sides for decimal scan hits.
		if (m[1] == "" && m[3] == "") || (m[4] == "" && m[6] == "") {
			continue
		}
		lat, ok1 := decValue(m[1], m[2], m[3], false)
		lng, ok2 := decValue(m[4], m[5], m[6], true)
		p := Point{Lat: lat, Lng: lng}
		if !ok1 || !ok2 || !p.Valid() {
			continue
		}
		matches = append(matches, Match{Point: p, Text: text[loc[0]:loc[1]], Offset: loc[0]})
		claimed = append(claimed, [2]int{loc[0], loc[1]})
	}

	for _, loc := range scanPlainDecPair.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(loc[0], loc[1]) {
			continue
		}
		m := submatches(text, loc)
		latS, lngS := m[1], m[2]
		if latS == "" {
			latS, lngS = m[3], m[4]
		}
		if latS == "" || lngS == "" {
			continue
		}
		p, ok := Parse(latS + ", " + lngS)
		if !ok {
			continue
		}
		matches = append(matches, Match{Point: p, Text: text[loc[0]:loc[1]], Offset: loc[0]})
		claimed = append(claimed, [2]int{loc[0], loc[1]})
	}

	return dedupe(matches)
}

// submatches extracts submatch strings from a FindAllStringSubmatchIndex
// result, empty string for non-participating groups.
func submatches(text string, loc []int) []string {
	out := make([]string, len(loc)/2)
	for i := 0; i < len(loc); i += 2 {
		if loc[i] >= 0 {
			out[i/2] = text[loc[i]:loc[i+1]]
		}
	}
	return out
}

// dedupe drops pairs that round to the same 4-decimal coordinate, keeping
// the earliest occurrence, and returns matches ordered by offset.
func dedupe(matches []Match) []Match {
	seen := make(map[[2]float64]bool, len(matches))
	var out []Match

	// Earliest occurrence wins regardless of which pattern found it.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Offset < matches[j-1].Offset; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}

	for _, m := range matches {
		key := [2]float64{round4(m.Lat), round4(m.Lng)}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// Context returns a whitespace-normalized snippet of up to contextChars
// characters on each side of the match, with ellipses marking truncation.
func (m Match) Context(text string, contextChars int) string {
	text = NormalizeText(text)
	start := m.Offset - contextChars
	if start < 0 {
		start = 0
	}
	end := m.Offset + len(m.Text) + contextChars
	if end > len(text) {
		end = len(text)
	}
	snippet := strings.Join(strings.Fields(text[start:end]), " ")
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet += "..."
	}
	return snippet
}
