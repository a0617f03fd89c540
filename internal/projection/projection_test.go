package projection

import (
	"math"
	"testing"

	"github.com/quakesim/engine/internal/geo"
)

func japanBounds() geo.BBox {
	return geo.BBox{MinLat: 24, MinLon: 122, MaxLat: 46, MaxLon: 154}
}

func TestProject_Corners(t *testing.T) {
	p := New(japanBounds(), 1200, 800)

	// north-west corner maps to the pixel origin
	x, y := p.Project(geo.Point{Lat: 46, Lon: 122})
	if x != 0 || y != 0 {
		t.Errorf("NW corner = (%f, %f), want (0, 0)", x, y)
	}

	// south-east corner maps to the far pixel corner
	x, y = p.Project(geo.Point{Lat: 24, Lon: 154})
	if x != 1200 || y != 800 {
		t.Errorf("SE corner = (%f, %f), want (1200, 800)", x, y)
	}
}

func TestProject_YAxisInverted(t *testing.T) {
	p := New(japanBounds(), 1200, 800)

	_, yNorth := p.Project(geo.Point{Lat: 43, Lon: 140})
	_, ySouth := p.Project(geo.Point{Lat: 26, Lon: 140})
	if yNorth >= ySouth {
		t.Errorf("north should be above south on screen: %f >= %f", yNorth, ySouth)
	}
}

func TestRoundTrip_WithinTolerance(t *testing.T) {
	p := New(japanBounds(), 1200, 800)

	points := []geo.Point{
		{Lat: 35.6812, Lon: 139.7671},
		{Lat: 24, Lon: 122},
		{Lat: 46, Lon: 154},
		{Lat: 33.3333, Lon: 130.1},
		{Lat: 45.9999, Lon: 153.9999},
	}
	for _, pt := range points {
		x, y := p.Project(pt)
		back := p.Unproject(x, y)
		if math.Abs(back.Lat-pt.Lat) > 1e-9 || math.Abs(back.Lon-pt.Lon) > 1e-9 {
			t.Errorf("round trip of %+v drifted to %+v", pt, back)
		}
	}
}

func TestRoundTrip_WithZoomAndPan(t *testing.T) {
	p := New(japanBounds(), 1200, 800)
	p.SetZoom(3.5)
	p.SetPan(-120, 45)

	pt := geo.Point{Lat: 38.25, Lon: 141.0}
	x, y := p.Project(pt)
	back := p.Unproject(x, y)
	if math.Abs(back.Lat-pt.Lat) > 1e-9 || math.Abs(back.Lon-pt.Lon) > 1e-9 {
		t.Errorf("round trip with view transform drifted: %+v -> %+v", pt, back)
	}
}

func TestZoom_ScalesAboutCenter(t *testing.T) {
	p := New(japanBounds(), 1200, 800)

	// the viewport center point is a fixed point of zoom
	center := p.Unproject(600, 400)
	p.SetZoom(4)
	x, y := p.Project(center)
	if math.Abs(x-600) > 1e-9 || math.Abs(y-400) > 1e-9 {
		t.Errorf("center moved under zoom: (%f, %f)", x, y)
	}

	// other points move away from the center
	x2, _ := p.Project(geo.Point{Lat: 35, Lon: 140})
	p.SetZoom(1)
	x1, _ := p.Project(geo.Point{Lat: 35, Lon: 140})
	if math.Abs(x2-600) <= math.Abs(x1-600) {
		t.Error("zoom should push off-center points outward")
	}
}

func TestSetZoom_RejectsNonPositive(t *testing.T) {
	p := New(japanBounds(), 1200, 800)
	p.SetZoom(2.5)

	p.SetZoom(0)
	if p.Zoom() != 2.5 {
		t.Errorf("zoom changed by SetZoom(0): %f", p.Zoom())
	}
	p.SetZoom(-1)
	if p.Zoom() != 2.5 {
		t.Errorf("zoom changed by SetZoom(-1): %f", p.Zoom())
	}
}

func TestSetPan_ShiftsPixels(t *testing.T) {
	p := New(japanBounds(), 1200, 800)
	pt := geo.Point{Lat: 35, Lon: 140}

	x0, y0 := p.Project(pt)
	p.SetPan(100, -50)
	x1, y1 := p.Project(pt)

	if x1-x0 != 100 || y1-y0 != -50 {
		t.Errorf("pan shifted by (%f, %f), want (100, -50)", x1-x0, y1-y0)
	}
}

func TestProject_OutsideBoundsAllowed(t *testing.T) {
	p := New(japanBounds(), 1200, 800)

	x, _ := p.Project(geo.Point{Lat: 30, Lon: 160})
	if x <= 1200 {
		t.Errorf("point east of bounds should project past the viewport, got x=%f", x)
	}
}
