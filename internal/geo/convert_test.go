package geo

import (
	"errors"
	"testing"

	geom "github.com/peterstace/simplefeatures/geom"
)

func TestFromGeometry_Polygon(t *testing.T) {
	g, err := geom.UnmarshalWKT("POLYGON((0 0, 4 0, 4 4, 0 4, 0 0), (1 1, 2 1, 2 2, 1 2, 1 1))")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mp, err := FromGeometry(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mp) != 1 {
		t.Fatalf("expected 1 polygon, got %d", len(mp))
	}
	if len(mp[0].Holes) != 1 {
		t.Fatalf("expected 1 hole, got %d", len(mp[0].Holes))
	}
	if !mp[0].Contains(Point{Lat: 3, Lon: 3}) {
		t.Error("expected point inside shell")
	}
	if mp[0].Contains(Point{Lat: 1.5, Lon: 1.5}) {
		t.Error("expected point in hole outside")
	}
}

func TestFromGeometry_MultiPolygon(t *testing.T) {
	g, err := geom.UnmarshalWKT("MULTIPOLYGON(((0 0, 1 0, 1 1, 0 1, 0 0)), ((5 5, 6 5, 6 6, 5 6, 5 5)))")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mp, err := FromGeometry(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mp) != 2 {
		t.Fatalf("expected 2 polygons, got %d", len(mp))
	}
}

func TestFromGeometry_Unsupported(t *testing.T) {
	g, err := geom.UnmarshalWKT("POINT(1 1)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = FromGeometry(g)
	if !errors.Is(err, ErrUnsupportedGeometry) {
		t.Errorf("expected ErrUnsupportedGeometry, got %v", err)
	}
}
