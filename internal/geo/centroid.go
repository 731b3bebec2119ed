// Package geo assigns approximate coordinates to companies from a table of
// city centroids. It does not call a geocoding service.
package geo

import (
	"strings"
	"unicode"

	"github.com/prospecta/leads-api/internal/domain"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Point is a latitude/longitude pair
type Point struct {
	Lat float64
	Lng float64
}

// Default is the geographic center of Brazil, used for unknown cities
var Default = Point{Lat: -15.7942, Lng: -47.8822}

var centroids = map[string]Point{
	"SAO PAULO-SP":      {Lat: -23.5505, Lng: -46.6333},
	"RIO DE JANEIRO-RJ": {Lat: -22.9068, Lng: -43.1729},
	"BELO HORIZONTE-MG": {Lat: -19.9191, Lng: -43.9378},
	"BRASILIA-DF":       {Lat: -15.8267, Lng: -47.9218},
	"SALVADOR-BA":       {Lat: -12.9714, Lng: -38.5014},
	"FORTALEZA-CE":      {Lat: -3.7319, Lng: -38.5267},
	"CURITIBA-PR":       {Lat: -25.4284, Lng: -49.2733},
	"RECIFE-PE":         {Lat: -8.0476, Lng: -34.877},
	"PORTO ALEGRE-RS":   {Lat: -30.0346, Lng: -51.2177},
	"MANAUS-AM":         {Lat: -3.119, Lng: -60.0217},
}

// Lookup returns the centroid of the city. Matching ignores case and
// accents, so "SAO PAULO" and "São Paulo" are the same city.
func Lookup(city, state string) (Point, bool) {
	p, ok := centroids[key(city, state)]
	return p, ok
}

// Locate returns the city centroid or Default
func Locate(city, state string) Point {
	if p, ok := Lookup(city, state); ok {
		return p
	}
	return Default
}

// Assign sets coordinates on a company that has none. Existing coordinates
// are kept.
func Assign(c *domain.Company) {
	if c.Latitude != nil && c.Longitude != nil {
		return
	}
	p := Locate(c.City, c.State)
	lat, lng := p.Lat, p.Lng
	c.Latitude = &lat
	c.Longitude = &lng
}

func key(city, state string) string {
	return fold(city) + "-" + strings.ToUpper(strings.TrimSpace(state))
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		out = s
	}
	return strings.ToUpper(strings.Join(strings.Fields(out), " "))
}
