package geo

import (
	"errors"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrUnsupportedGeometry is returned when a dataset feature carries a
// geometry type other than Polygon or MultiPolygon.
var ErrUnsupportedGeometry = errors.New("unsupported geometry type")

// FromGeometry converts a simplefeatures geometry into a MultiPolygon.
// Coordinates are taken as (X=longitude, Y=latitude).
func FromGeometry(g geom.Geometry) (MultiPolygon, error) {
	switch g.Type() {
	case geom.TypePolygon:
		return MultiPolygon{fromPolygon(g.MustAsPolygon())}, nil
	case geom.TypeMultiPolygon:
		mp := g.MustAsMultiPolygon()
		out := make(MultiPolygon, 0, mp.NumPolygons())
		for i := 0; i < mp.NumPolygons(); i++ {
			out = append(out, fromPolygon(mp.PolygonN(i)))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.Type())
	}
}

func fromPolygon(p geom.Polygon) Polygon {
	out := Polygon{Exterior: fromLineString(p.ExteriorRing())}
	for i := 0; i < p.NumInteriorRings(); i++ {
		out.Holes = append(out.Holes, fromLineString(p.InteriorRingN(i)))
	}
	return out
}

func fromLineString(ls geom.LineString) Ring {
	seq := ls.Coordinates()
	ring := make(Ring, 0, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		xy := seq.GetXY(i)
		ring = append(ring, Point{Lat: xy.Y, Lon: xy.X})
	}
	return ring
}
