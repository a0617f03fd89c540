package geo

const onEdgeEpsilon = 1e-12

// Contains reports whether the point lies inside the ring, using the
// crossing-number (even-odd) test with a horizontal ray toward +longitude.
// A point lying exactly on an edge or vertex counts as inside; that case is
// resolved by an explicit on-segment test before the crossing loop so the
// rule holds exactly rather than depending on rounding.
func (r Ring) Contains(p Point) bool {
	ring := r.Closed()
	n := len(ring)
	if n < 4 {
		return false
	}

	x, y := p.Lon, p.Lat

	for i := 1; i < n; i++ {
		if onSegment(x, y, ring[i-1].Lon, ring[i-1].Lat, ring[i].Lon, ring[i].Lat) {
			return true
		}
	}

	inside := false
	for i, j := 0, n-2; i < n-1; j, i = i, i+1 {
		xi, yi := ring[i].Lon, ring[i].Lat
		xj, yj := ring[j].Lon, ring[j].Lat
		if ((yi > y) != (yj > y)) && (x < (xj-xi)*(y-yi)/(yj-yi+onEdgeEpsilon)+xi) {
			inside = !inside
		}
	}
	return inside
}

// onSegment reports whether (x,y) lies on the segment (x1,y1)-(x2,y2).
func onSegment(x, y, x1, y1, x2, y2 float64) bool {
	cross := (x2-x1)*(y-y1) - (y2-y1)*(x-x1)
	if cross > onEdgeEpsilon || cross < -onEdgeEpsilon {
		return false
	}
	if x < min(x1, x2)-onEdgeEpsilon || x > max(x1, x2)+onEdgeEpsilon {
		return false
	}
	if y < min(y1, y2)-onEdgeEpsilon || y > max(y1, y2)+onEdgeEpsilon {
		return false
	}
	return true
}

// Contains reports whether the point lies inside the polygon: inside the
// exterior ring and outside every hole. A point on a hole's boundary is
// inside the hole and therefore outside the polygon.
func (p Polygon) Contains(pt Point) bool {
	if !p.Exterior.Contains(pt) {
		return false
	}
	for _, hole := range p.Holes {
		if hole.Contains(pt) {
			return false
		}
	}
	return true
}

// Contains reports whether any member polygon contains the point.
func (m MultiPolygon) Contains(pt Point) bool {
	for _, poly := range m {
		if poly.Contains(pt) {
			return true
		}
	}
	return false
}
