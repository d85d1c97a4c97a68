// Package coord recognizes human-entered geographic coordinate notations and
// scans free text for coordinate pairs.
//
// Supported notations:
//
//	37.5665, 126.978                  decimal degrees
//	N37.5665 E126.978                 hemisphere-prefixed decimal
//	37.5665N, 126.978E                hemisphere-suffixed decimal
//	37°33'59.4"N 126°58'40.8"E        degrees-minutes-seconds
//	37°33.99'N 126°58.68'E            degrees + decimal minutes
//
// ASCII stand-ins (d for °, ' for ′, " for ″) are accepted everywhere.
package coord

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Point is a parsed latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether the point lies within WGS84 bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Sub-expressions shared by the notation patterns. Degree, minute, and second
// marks each accept their unicode and ASCII forms.
const (
	reNum  = `\d{1,3}(?:\.\d+)?`
	reDeg  = `[°ºdD]`
	reMin  = `['′m]`
	// NFKC decomposes U+2033 DOUBLE PRIME into two primes, so the doubled
	// prime forms must be accepted alongside the single-rune marks.
	reSec  = `["″s]|''|′′`
	reSep  = `[,;/]?\s*`
	reLatH = `[NSns]`
	reLngH = `[EWew]`
)

// One sexagesimal coordinate: degrees, then either decimal minutes or
// minutes+seconds, hemisphere letter either side.
func sexagesimal(hemi string) string {
	return `(?:(` + hemi + `)\s*)?` +
		`(\d{1,3})\s*` + reDeg + `\s*` +
		`(\d{1,2}(?:\.\d+)?)\s*(?:` + reMin + `)?\s*` +
		`(?:(\d{1,2}(?:\.\d+)?)\s*(?:` + reSec + `))?\s*` +
		`(?:(` + hemi + `))?`
}

// One decimal coordinate with an optional hemisphere letter either side.
func decimal(hemi string) string {
	return `(?:(` + hemi + `)\s*)?` +
		`([+-]?` + reNum + `)\s*(?:` + reDeg + `)?\s*` +
		`(?:(` + hemi + `))?`
}

var (
	reSexPair = regexp.MustCompile(
		`^\s*` + sexagesimal(reLatH) + reSep + sexagesimal(reLngH) + `\s*$`)
	reDecPair = regexp.MustCompile(
		`^\s*` + decimal(reLatH) + `(?:\s*[,;/]\s*|\s+)` + decimal(reLngH) + `\s*$`)
)

// Parse recognizes a single coordinate pair in any supported notation.
// Returns false when the input does not match a notation or the result is
// out of bounds.
func Parse(s string) (Point, bool) {
	s = norm.NFKC.String(strings.TrimSpace(s))
	if s == "" {
		return Point{}, false
	}

	if m := reSexPair.FindStringSubmatch(s); m != nil {
		lat, ok1 := sexValue(m[1], m[2], m[3], m[4], m[5], false)
		lng, ok2 := sexValue(m[6], m[7], m[8], m[9], m[10], true)
		p := Point{Lat: lat, Lng: lng}
		if ok1 && ok2 && p.Valid() {
			return p, true
		}
		return Point{}, false
	}

	if m := reDecPair.FindStringSubmatch(s); m != nil {
		lat, ok1 := decValue(m[1], m[2], m[3], false)
		lng, ok2 := decValue(m[4], m[5], m[6], true)
		p := Point{Lat: lat, Lng: lng}
		if ok1 && ok2 && p.Valid() {
			return p, true
		}
	}

	return Point{}, false
}

// sexValue converts one sexagesimal match (hemisphere prefix, degrees,
// minutes, optional seconds, hemisphere suffix) to signed decimal degrees.
func sexValue(preH, degS, minS, secS, postH string, isLng bool) (float64, bool) {
	deg, err := strconv.ParseFloat(degS, 64)
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.ParseFloat(minS, 64)
	if err != nil || minutes >= 60 {
		return 0, false
	}
	var seconds float64
	if secS != "" {
		seconds, err = strconv.ParseFloat(secS, 64)
		if err != nil || seconds >= 60 {
			return 0, false
		}
	}

	val := deg + minutes/60 + seconds/3600
	return applyHemisphere(val, preH, postH, isLng)
}

// decValue converts one decimal match to signed decimal degrees.
func decValue(preH, numS, postH string, isLng bool) (float64, bool) {
	val, err := strconv.ParseFloat(numS, 64)
	if err != nil {
		return 0, false
	}
	if preH == "" && postH == "" {
		return val, true
	}
	if val < 0 {
		// A signed value with a hemisphere letter is ambiguous.
		return 0, false
	}
	return applyHemisphere(val, preH, postH, isLng)
}

func applyHemisphere(val float64, preH, postH string, isLng bool) (float64, bool) {
	h := preH
	if h == "" {
		h = postH
	} else if postH != "" {
		return 0, false // hemisphere on both sides
	}
	if h == "" {
		// Sexagesimal values without a hemisphere default to N/E.
		return val, true
	}
	switch strings.ToUpper(h) {
	case "N":
		return val, !isLng
	case "S":
		return -val, !isLng
	case "E":
		return val, isLng
	case "W":
		return -val, isLng
	}
	return 0, false
}
