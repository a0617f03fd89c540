package region

import (
	"encoding/json"
	"fmt"
	"os"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/quakesim/engine/internal/geo"
)

// Property keys recognized for region names, mapped to the locale each
// carries. JMA-style datasets use Japanese in "name" and the epicenter
// district key; OSM-style exports use "name:en".
var namePropertyLocales = []struct {
	key    string
	locale string
}{
	{"name", "ja"},
	{"name:ja", "ja"},
	{"震央地名", "ja"},
	{"name:en", "en"},
	{"enName", "en"},
}

// LoadGeoJSON parses a GeoJSON FeatureCollection file into regions.
// Features with non-areal geometry are returned as-is and filtered by
// Index.Load.
func LoadGeoJSON(path string) ([]Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading region dataset: %w", err)
	}

	var fc geom.GeoJSONFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing region dataset %s: %w", path, err)
	}

	regions := make([]Region, 0, len(fc))
	for _, feature := range fc {
		shape, err := geo.FromGeometry(feature.Geometry)
		if err != nil {
			// carried through as an empty shape so the index can log
			// and skip it with its position intact
			shape = nil
		}
		regions = append(regions, Region{
			Names:    namesFromProperties(feature.Properties),
			Geometry: shape,
		})
	}
	return regions, nil
}

func namesFromProperties(props map[string]interface{}) map[string]string {
	names := make(map[string]string)
	for _, np := range namePropertyLocales {
		v, ok := props[np.key]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		if _, exists := names[np.locale]; !exists {
			names[np.locale] = s
		}
	}
	return names
}
