// Package geo provides the geographic value types shared across the engine:
// points, rings, polygons with holes, and the containment and distance math
// that operates on them.
//
// Coordinates are WGS84 (EPSG:4326) latitude/longitude degrees throughout.
// The database loaders store geometry in EPSG:3857 WKB, so conversion helpers
// between the two reference systems live here as well.
package geo

import (
	"errors"
	"math"

	"github.com/wroge/wgs84"
)

const earthRadiusKm = 6371.0

// ErrInvalidCoordinates is returned when coordinates fall outside the
// representable latitude/longitude domain.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Valid reports whether the point lies in the lat/lon domain.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// BBox is an axis-aligned bounding box in degrees.
type BBox struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
}

// Contains reports whether the point lies inside or on the box.
func (b BBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Extend grows the box to include the other box.
func (b BBox) Extend(o BBox) BBox {
	return BBox{
		MinLat: math.Min(b.MinLat, o.MinLat),
		MinLon: math.Min(b.MinLon, o.MinLon),
		MaxLat: math.Max(b.MaxLat, o.MaxLat),
		MaxLon: math.Max(b.MaxLon, o.MaxLon),
	}
}

// Ring is an ordered sequence of points forming a closed loop. A ring whose
// first and last points differ is treated as implicitly closed.
type Ring []Point

// Closed returns the ring with an explicit closing point appended when the
// input is open. Rings with fewer than 3 points are returned unchanged.
func (r Ring) Closed() Ring {
	if len(r) < 3 {
		return r
	}
	if r[0] == r[len(r)-1] {
		return r
	}
	out := make(Ring, len(r)+1)
	copy(out, r)
	out[len(r)] = r[0]
	return out
}

// DistinctPoints counts the distinct vertices of the ring, ignoring the
// closing point when present.
func (r Ring) DistinctPoints() int {
	seen := make(map[Point]struct{}, len(r))
	for _, p := range r {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// BBox computes the bounding box of the ring.
func (r Ring) BBox() BBox {
	b := BBox{MinLat: math.Inf(1), MinLon: math.Inf(1), MaxLat: math.Inf(-1), MaxLon: math.Inf(-1)}
	for _, p := range r {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	return b
}

// Polygon is one exterior ring plus zero or more hole rings.
type Polygon struct {
	Exterior Ring
	Holes    []Ring
}

// BBox computes the bounding box of the polygon's exterior.
func (p Polygon) BBox() BBox {
	return p.Exterior.BBox()
}

// MultiPolygon is a set of polygons whose union defines the shape's area.
type MultiPolygon []Polygon

// BBox computes the bounding box of the whole shape.
func (m MultiPolygon) BBox() BBox {
	if len(m) == 0 {
		return BBox{}
	}
	b := m[0].BBox()
	for _, p := range m[1:] {
		b = b.Extend(p.BBox())
	}
	return b
}

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Coords3857From4326 converts a lon/lat pair to Web Mercator meters.
func Coords3857From4326(longitude, latitude float64) (x, y float64, err error) {
	if !(Point{Lat: latitude, Lon: longitude}).Valid() {
		return 0, 0, ErrInvalidCoordinates
	}
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ = f(longitude, latitude, 0)
	return x, y, nil
}

// Coords4326From3857 converts Web Mercator meters back to a lon/lat pair.
func Coords4326From3857(x, y float64) (longitude, latitude float64) {
	f := wgs84.EPSG().Transform(3857, 4326)
	longitude, latitude, _ = f(x, y, 0)
	return longitude, latitude
}
