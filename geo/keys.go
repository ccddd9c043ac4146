package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/fieldline/routecache/cache"
)

// Precision is the number of decimals route coordinates are rounded to
// before they form a cache key; 4 decimals is about 11 m at the equator.
const Precision = 4

// EmptyKey is the slot shared by every malformed key.
const EmptyKey = cache.EmptyKey

// AddressKey normalizes a free-text address: surrounding whitespace is
// dropped and letters are lowercased. A blank address maps to EmptyKey.
func AddressKey(address string) string {
	k := strings.ToLower(strings.TrimSpace(address))
	if k == "" {
		return EmptyKey
	}
	return k
}

// RouteKey serializes q as "lat,lng|lat,lng" with every coordinate rounded
// to Precision decimals, so nearby pairs share a slot. A query missing
// either end maps to EmptyKey.
func RouteKey(q RouteQuery) string {
	if q.From == nil || q.To == nil {
		return EmptyKey
	}
	var b strings.Builder
	b.Grow(48)
	writePoint(&b, *q.From)
	b.WriteByte('|')
	writePoint(&b, *q.To)
	return b.String()
}

func writePoint(b *strings.Builder, p Point) {
	b.WriteString(roundCoord(p.Lat))
	b.WriteByte(',')
	b.WriteString(roundCoord(p.Lng))
}

func roundCoord(v float64) string {
	scale := math.Pow10(Precision)
	r := math.Round(v*scale) / scale
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(r, 'f', Precision, 64)
}
