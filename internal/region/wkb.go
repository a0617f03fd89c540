package region

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/quakesim/engine/internal/geo"
)

// FromWKB3857 decodes a WKB geometry stored in Web Mercator (EPSG:3857)
// into a region with WGS84 rings.
func FromWKB3857(names map[string]string, wkb []byte) (Region, error) {
	g, err := geom.UnmarshalWKB(wkb)
	if err != nil {
		return Region{}, fmt.Errorf("decoding region geometry: %w", err)
	}
	// FromGeometry reads raw X/Y, so the rings come out in meters and
	// need reprojecting point by point.
	mercator, err := geo.FromGeometry(g)
	if err != nil {
		return Region{}, err
	}

	shape := make(geo.MultiPolygon, 0, len(mercator))
	for _, poly := range mercator {
		out := geo.Polygon{Exterior: reproject(poly.Exterior)}
		for _, hole := range poly.Holes {
			out.Holes = append(out.Holes, reproject(hole))
		}
		shape = append(shape, out)
	}
	return Region{Names: names, Geometry: shape}, nil
}

func reproject(r geo.Ring) geo.Ring {
	out := make(geo.Ring, len(r))
	for i, p := range r {
		// in the mercator ring Lon carries X and Lat carries Y
		lon, lat := geo.Coords4326From3857(p.Lon, p.Lat)
		out[i] = geo.Point{Lat: lat, Lon: lon}
	}
	return out
}

// ToWKB3857 encodes a region's WGS84 geometry as Web Mercator WKB, the
// storage format of the database loader.
func ToWKB3857(r Region) ([]byte, error) {
	polys := make([]geom.Polygon, 0, len(r.Geometry))
	for _, poly := range r.Geometry {
		rings := make([]geom.LineString, 0, 1+len(poly.Holes))
		ext, err := mercatorRing(poly.Exterior)
		if err != nil {
			return nil, err
		}
		rings = append(rings, ext)
		for _, hole := range poly.Holes {
			h, err := mercatorRing(hole)
			if err != nil {
				return nil, err
			}
			rings = append(rings, h)
		}
		p, err := geom.NewPolygon(rings)
		if err != nil {
			return nil, fmt.Errorf("building region polygon: %w", err)
		}
		polys = append(polys, p)
	}
	mp, err := geom.NewMultiPolygon(polys)
	if err != nil {
		return nil, fmt.Errorf("building region multipolygon: %w", err)
	}
	return mp.AsBinary(), nil
}

func mercatorRing(r geo.Ring) (geom.LineString, error) {
	closed := r.Closed()
	flat := make([]float64, 0, len(closed)*2)
	for _, p := range closed {
		x, y, err := geo.Coords3857From4326(p.Lon, p.Lat)
		if err != nil {
			return geom.LineString{}, fmt.Errorf("projecting region ring: %w", err)
		}
		flat = append(flat, x, y)
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("building region ring: %w", err)
	}
	return ls, nil
}
