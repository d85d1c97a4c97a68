package coord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanText_FindsDMSPairs(t *testing.T) {
	text := `The outcrop is located at 37°33'59.4"N 126°58'40.8"E on the
northern slope. A secondary exposure lies at 35°10'12"N, 129°04'33"E.`

	matches := ScanText(text)
	require.Len(t, matches, 2)

	assert.InDelta(t, 37.5665, matches[0].Lat, 1e-4)
	assert.InDelta(t, 126.978, matches[0].Lng, 1e-4)
	assert.InDelta(t, 35.17, matches[1].Lat, 1e-4)
	assert.InDelta(t, 129.0758, matches[1].Lng, 1e-4)
	assert.Less(t, matches[0].Offset, matches[1].Offset)
}

func TestScanText_FindsHemisphereDecimal(t *testing.T) {
	text := "Samples were collected near 37.5665N, 126.978E during the 2019 survey."

	matches := ScanText(text)
	require.Len(t, matches, 1)
	assert.InDelta(t, 37.5665, matches[0].Lat, 1e-9)
	assert.InDelta(t, 126.978, matches[0].Lng, 1e-9)
}

func TestScanText_PlainDecimalNeedsPrecision(t *testing.T) {
	// Low-precision number pairs are everywhere in prose; only pairs with
	// three or more decimal places on both sides are treated as coordinates.
	matches := ScanText("Between 12.5, 14.2 cm depth the site at 37.5665, 126.9780 was sampled.")
	require.Len(t, matches, 1)
	assert.InDelta(t, 37.5665, matches[0].Lat, 1e-9)
	assert.InDelta(t, 126.978, matches[0].Lng, 1e-9)
}

func TestScanText_DedupesByRoundedPair(t *testing.T) {
	text := `Coordinates: 37.5665, 126.9780. The same locality (37°33'59.4"N
126°58'40.8"E) is cited again later as 37.56650, 126.97800.`

	matches := ScanText(text)
	require.Len(t, matches, 1)
	assert.Equal(t, 13, matches[0].Offset, "earliest occurrence kept")
	assert.InDelta(t, 37.5665, matches[0].Lat, 1e-4)
}

func TestScanText_RejectsOutOfBounds(t *testing.T) {
	matches := ScanText("Figure 3 spans 120.123, 456.789 pixels.")
	assert.Empty(t, matches)
}

func TestScanText_NoMatches(t *testing.T) {
	assert.Empty(t, ScanText("No coordinates appear anywhere in this text."))
	assert.Empty(t, ScanText(""))
}

func TestMatch_Context(t *testing.T) {
	text := "The outcrop is located at 37.5665N, 126.978E on the northern slope of the ridge."
	matches := ScanText(text)
	require.Len(t, matches, 1)

	ctx := matches[0].Context(text, 20)
	assert.Contains(t, ctx, "37.5665N, 126.978E")
	assert.Contains(t, ctx, "located at")
	assert.True(t, len(ctx) < len(text)+6)
}

func TestMatch_ContextEllipses(t *testing.T) {
	text := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa 37.5665N 126.978E bbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	matches := ScanText(text)
	require.Len(t, matches, 1)

	ctx := matches[0].Context(text, 10)
	assert.True(t, len(ctx) > 0)
	assert.Equal(t, "...", ctx[:3])
	assert.Equal(t, "...", ctx[len(ctx)-3:])
}

func TestScanText_DoublePrimeSeconds(t *testing.T) {
	// U+2033 DOUBLE PRIME decomposes to two primes under NFKC.
	text := "Columnar joints crop out at 37°33′59.4″N 126°58′40.8″E near the quarry."
	matches := ScanText(text)
	require.Len(t, matches, 1)
	assert.InDelta(t, 37.5665, matches[0].Lat, 1e-4)
	assert.InDelta(t, 126.978, matches[0].Lng, 1e-4)
}
