// Package projection maps geographic coordinates to viewport pixels and
// back, under a configurable view made of a bounds rectangle, a viewport
// size, a zoom factor, and a pan offset.
package projection

import "github.com/quakesim/engine/internal/geo"

// Projector converts between lat/lon degrees and pixel coordinates using
// an equirectangular (linear) mapping, zoomed about the viewport center
// and shifted by the pan offset. The Y axis is inverted so north is up.
//
// Projector is not safe for concurrent mutation; the frame loop is its
// single owner. Read-only use from a render thread is fine once the view
// is configured.
type Projector struct {
	bounds geo.BBox
	width  float64
	height float64
	zoom   float64
	panX   float64
	panY   float64
}

// New creates a projector over the given bounds and viewport size, with
// zoom 1 and no pan.
func New(bounds geo.BBox, width, height float64) *Projector {
	return &Projector{
		bounds: bounds,
		width:  width,
		height: height,
		zoom:   1,
	}
}

// Project maps a geographic point to pixel coordinates. Points outside the
// bounds project outside the viewport; that is allowed, not an error.
func (p *Projector) Project(pt geo.Point) (x, y float64) {
	lonSpan := p.bounds.MaxLon - p.bounds.MinLon
	latSpan := p.bounds.MaxLat - p.bounds.MinLat

	bx := (pt.Lon - p.bounds.MinLon) / lonSpan * p.width
	by := (p.bounds.MaxLat - pt.Lat) / latSpan * p.height

	x = (bx-p.width/2)*p.zoom + p.width/2 + p.panX
	y = (by-p.height/2)*p.zoom + p.height/2 + p.panY
	return x, y
}

// Unproject is the exact algebraic inverse of Project.
func (p *Projector) Unproject(x, y float64) geo.Point {
	lonSpan := p.bounds.MaxLon - p.bounds.MinLon
	latSpan := p.bounds.MaxLat - p.bounds.MinLat

	bx := (x-p.panX-p.width/2)/p.zoom + p.width/2
	by := (y-p.panY-p.height/2)/p.zoom + p.height/2

	return geo.Point{
		Lon: p.bounds.MinLon + bx/p.width*lonSpan,
		Lat: p.bounds.MaxLat - by/p.height*latSpan,
	}
}

// SetZoom changes the zoom factor. Non-positive values are ignored and the
// previous zoom is retained.
func (p *Projector) SetZoom(zoom float64) {
	if zoom <= 0 {
		return
	}
	p.zoom = zoom
}

// SetPan changes the pixel pan offset.
func (p *Projector) SetPan(x, y float64) {
	p.panX = x
	p.panY = y
}

// Zoom returns the current zoom factor.
func (p *Projector) Zoom() float64 { return p.zoom }

// Pan returns the current pan offset.
func (p *Projector) Pan() (x, y float64) { return p.panX, p.panY }

// Bounds returns the configured geographic bounds.
func (p *Projector) Bounds() geo.BBox { return p.bounds }
