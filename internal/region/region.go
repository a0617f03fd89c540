// Package region maintains the administrative-region dataset and answers
// point-in-region lookups. Regions keep their input order; when shapes
// overlap, the earliest match wins.
package region

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/quakesim/engine/internal/geo"
)

var (
	// ErrEmptyDataset is returned when a load produced no usable regions.
	ErrEmptyDataset = errors.New("region dataset contains no usable regions")
	// ErrMalformedGeometry marks a shape that cannot form an area.
	ErrMalformedGeometry = errors.New("malformed region geometry")
)

// Region is one named administrative area. Names maps locale codes
// ("ja", "en") to display names.
type Region struct {
	Names    map[string]string
	Geometry geo.MultiPolygon

	bbox geo.BBox
}

// Name returns the display name for the locale, falling back to "ja",
// then "en", then the lexically-first name present. An unnamed region
// returns the empty string.
func (r *Region) Name(locale string) string {
	if n, ok := r.Names[locale]; ok && n != "" {
		return n
	}
	for _, fallback := range []string{"ja", "en"} {
		if n, ok := r.Names[fallback]; ok && n != "" {
			return n
		}
	}
	keys := make([]string, 0, len(r.Names))
	for k := range r.Names {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if r.Names[k] != "" {
			return r.Names[k]
		}
	}
	return ""
}

// Contains reports whether the point lies inside the region, using the
// cached bounding box as a cheap prefilter.
func (r *Region) Contains(p geo.Point) bool {
	if !r.bbox.Contains(p) {
		return false
	}
	return r.Geometry.Contains(p)
}

// validate drops rings and polygons that cannot form an area, reporting
// how many of each were dropped. It returns ErrMalformedGeometry when
// nothing survives.
func (r *Region) validate() (droppedPolys, droppedHoles int, err error) {
	var kept geo.MultiPolygon
	for _, poly := range r.Geometry {
		ext := poly.Exterior.Closed()
		if ext.DistinctPoints() < 3 {
			droppedPolys++
			continue
		}
		clean := geo.Polygon{Exterior: ext}
		for _, hole := range poly.Holes {
			h := hole.Closed()
			if h.DistinctPoints() < 3 {
				droppedHoles++
				continue
			}
			clean.Holes = append(clean.Holes, h)
		}
		kept = append(kept, clean)
	}
	if len(kept) == 0 {
		return droppedPolys, droppedHoles, ErrMalformedGeometry
	}
	r.Geometry = kept
	r.bbox = kept.BBox()
	return droppedPolys, droppedHoles, nil
}

// Index is the loaded region dataset.
type Index struct {
	log     *slog.Logger
	regions []*Region
}

// NewIndex creates an empty index logging through the given logger.
func NewIndex(log *slog.Logger) *Index {
	if log == nil {
		log = slog.Default()
	}
	return &Index{log: log}
}

// Load replaces the index contents. Malformed regions are skipped with a
// warning rather than failing the whole load; ErrEmptyDataset is returned
// only when no region survives.
func (ix *Index) Load(regions []Region) error {
	kept := make([]*Region, 0, len(regions))
	for i := range regions {
		r := regions[i]
		droppedPolys, droppedHoles, err := r.validate()
		if err != nil {
			ix.log.Warn("skipping malformed region",
				"index", i,
				"name", r.Name(""),
				"error", err,
			)
			continue
		}
		if droppedPolys > 0 || droppedHoles > 0 {
			ix.log.Warn("dropped degenerate rings from region",
				"index", i,
				"name", r.Name(""),
				"polygons", droppedPolys,
				"holes", droppedHoles,
			)
		}
		kept = append(kept, &r)
	}
	if len(kept) == 0 {
		return ErrEmptyDataset
	}
	ix.regions = kept
	ix.log.Info("region dataset loaded", "regions", len(kept), "skipped", len(regions)-len(kept))
	return nil
}

// Find returns the first region, in input order, containing the point.
func (ix *Index) Find(p geo.Point) (*Region, bool) {
	for _, r := range ix.regions {
		if r.Contains(p) {
			return r, true
		}
	}
	return nil, false
}

// Len returns the number of loaded regions.
func (ix *Index) Len() int {
	return len(ix.regions)
}

// Regions returns the loaded regions in input order.
func (ix *Index) Regions() []*Region {
	return ix.regions
}

// Bounds returns the bounding box of the whole dataset.
func (ix *Index) Bounds() geo.BBox {
	if len(ix.regions) == 0 {
		return geo.BBox{}
	}
	b := ix.regions[0].bbox
	for _, r := range ix.regions[1:] {
		b = b.Extend(r.bbox)
	}
	return b
}
