// Package intensity converts physical earthquake parameters into JMA
// seismic intensity values, discrete classes, and display colors. All
// functions are pure; an Estimator is an immutable bundle of constants.
package intensity

import (
	"math"

	"github.com/quakesim/engine/internal/util"
	"github.com/quakesim/engine/pkg/jma"
)

// Intensity value domain. RawMin doubles as the "not felt" sentinel.
const (
	RawMin = -3.0
	RawMax = 7.5
)

// Input clamp limits. Out-of-range parameters are clamped, never rejected.
const (
	MagnitudeMin = 0.0
	MagnitudeMax = 9.5
	DepthMinKm   = 0.1
	DepthMaxKm   = 800.0
)

// DefaultThresholds are the class cut points for ToScale, ascending. A raw
// value equal to a cut point belongs to the lower class; only a strictly
// greater value promotes. So 4.49 is class 4, 5.0 is 5-, and 6.5 is 6+.
var DefaultThresholds = []float64{0.5, 1.5, 2.5, 3.5, 4.5, 5.0, 5.5, 6.0, 6.5}

// Estimator computes intensity via the distance-attenuation formula
// raw = A*magnitude - B*log10(R) - C*R + D with R the hypocentral
// distance in km. D is also the additive constant of the PGA conversion.
type Estimator struct {
	A, B, C, D float64
	Thresholds []float64
	Colors     map[jma.Scale]jma.Color
}

// NewEstimator builds an estimator with the given attenuation constants,
// the documented default thresholds, and the standard JMA palette.
func NewEstimator(a, b, c, d float64) *Estimator {
	return &Estimator{
		A:          a,
		B:          b,
		C:          c,
		D:          d,
		Thresholds: DefaultThresholds,
		Colors:     jma.DefaultColors,
	}
}

// Estimate returns the raw intensity at a surface distance from the
// epicenter, clamped to [RawMin, RawMax].
func (e *Estimator) Estimate(magnitude, depthKm, surfaceDistKm float64) float64 {
	magnitude = util.Clamp(magnitude, MagnitudeMin, MagnitudeMax)
	depthKm = util.Clamp(depthKm, DepthMinKm, DepthMaxKm)
	if surfaceDistKm < 0 {
		surfaceDistKm = 0
	}

	r := math.Sqrt(surfaceDistKm*surfaceDistKm + depthKm*depthKm)
	raw := e.A*magnitude - e.B*math.Log10(r) - e.C*r + e.D
	return util.Clamp(raw, RawMin, RawMax)
}

// EstimateSite is Estimate plus a site-amplification correction. The
// station amplification factor amp scales ground acceleration, which in the
// logarithmic intensity domain adds 2*log10(bai) with bai = (4*amp+amp^2)/5.
func (e *Estimator) EstimateSite(magnitude, depthKm, surfaceDistKm, amp float64) float64 {
	if amp <= 0 {
		amp = 1
	}
	bai := (amp*4 + amp*amp) / 5
	raw := e.Estimate(magnitude, depthKm, surfaceDistKm) + 2*math.Log10(bai)
	return util.Clamp(raw, RawMin, RawMax)
}

// FromPGA converts a peak ground acceleration reading into raw intensity
// using raw = 2*log10(pga) + D. Non-positive accelerations map to RawMin.
func (e *Estimator) FromPGA(pga float64) float64 {
	if pga <= 0 {
		return RawMin
	}
	return util.Clamp(2*math.Log10(pga)+e.D, RawMin, RawMax)
}

// PFromS derives the reduced intensity observed when only the P wave has
// arrived from the full S-wave intensity.
func PFromS(sIntensity float64) float64 {
	return math.Max(RawMin, sIntensity/1.5-0.5)
}

// ToScale maps a raw value onto the discrete JMA class set. Cut points
// beyond the number of classes have no class to promote into and are
// ignored.
func (e *Estimator) ToScale(raw float64) jma.Scale {
	cuts := e.Thresholds
	if len(cuts) > len(jma.Scales)-1 {
		cuts = cuts[:len(jma.Scales)-1]
	}
	for i, cut := range cuts {
		if raw <= cut {
			return jma.Scales[i]
		}
	}
	return jma.Scale7
}

// ColorFor returns the display color for a class.
func (e *Estimator) ColorFor(s jma.Scale) jma.Color {
	if c, ok := e.Colors[s]; ok {
		return c
	}
	return jma.ColorFor(s)
}

// Result bundles the raw value with its class and color.
type Result struct {
	Raw   float64
	Scale jma.Scale
	Color jma.Color
}

// At computes the full result for a point at the given surface distance.
func (e *Estimator) At(magnitude, depthKm, surfaceDistKm float64) Result {
	raw := e.Estimate(magnitude, depthKm, surfaceDistKm)
	return e.Resolve(raw)
}

// Resolve classifies an already-computed raw value.
func (e *Estimator) Resolve(raw float64) Result {
	s := e.ToScale(raw)
	return Result{Raw: raw, Scale: s, Color: e.ColorFor(s)}
}
