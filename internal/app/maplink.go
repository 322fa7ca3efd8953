package app

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"estate_distribution/internal/domain"
)

const num = `(-?\d{1,3}(?:\.\d+)?)`

var (
	// !3d<lat>!4d<lng> marks the dropped pin; it wins over the viewport.
	pinRe = regexp.MustCompile(`!3d` + num + `!4d` + num)
	// @<lat>,<lng>[,zoom] is the viewport center.
	atRe   = regexp.MustCompile(`@` + num + `,` + num)
	pairRe = regexp.MustCompile(`^\s*` + num + `\s*,\s*` + num + `\s*$`)
)

var coordParams = []string{"q", "query", "ll", "center", "destination", "daddr"}

var shortLinkHosts = map[string]bool{
	"goo.gl":          true,
	"maps.app.goo.gl": true,
	"g.co":            true,
}

// CoordinateFromLink extracts a coordinate embedded in a map link without
// any network call.
func CoordinateFromLink(link string) (domain.Coordinate, bool) {
	link = strings.TrimSpace(link)
	if link == "" {
		return domain.Coordinate{}, false
	}
	raw := link
	if u, err := url.QueryUnescape(link); err == nil {
		raw = u
	}
	if m := pinRe.FindStringSubmatch(raw); m != nil {
		if c, ok := pair(m[1], m[2]); ok {
			return c, true
		}
	}
	if u, err := url.Parse(link); err == nil {
		q := u.Query()
		for _, p := range coordParams {
			if m := pairRe.FindStringSubmatch(q.Get(p)); m != nil {
				if c, ok := pair(m[1], m[2]); ok {
					return c, true
				}
			}
		}
	}
	if m := atRe.FindStringSubmatch(raw); m != nil {
		if c, ok := pair(m[1], m[2]); ok {
			return c, true
		}
	}
	return domain.Coordinate{}, false
}

// IsShortLink reports whether link points at a redirecting short-link host.
func IsShortLink(link string) bool {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return false
	}
	return shortLinkHosts[strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))]
}

func pair(lat, lng string) (domain.Coordinate, bool) {
	la, err1 := strconv.ParseFloat(lat, 64)
	ln, err2 := strconv.ParseFloat(lng, 64)
	if err1 != nil || err2 != nil {
		return domain.Coordinate{}, false
	}
	c := domain.Coordinate{Lat: la, Lng: ln}
	return c, c.Valid()
}

// NormalizeKey folds case and whitespace so trivially different spellings of
// one address or link share a cache entry.
func NormalizeKey(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '　' {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// GeoKey identifies the inputs a coordinate is derived from. A stored
// coordinate is reused only while the key is unchanged.
func GeoKey(loc domain.PropertyLocation) string {
	l, a := NormalizeKey(loc.MapLink), NormalizeKey(loc.Address)
	if l == "" && a == "" {
		return ""
	}
	return l + "|" + a
}
