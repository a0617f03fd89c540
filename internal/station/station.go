// Package station manages the observation-station network: per-station
// shaking state driven by wave arrivals, and the aggregate queries the
// estimation layer builds on.
package station

import (
	"math"

	"github.com/quakesim/engine/internal/geo"
	"github.com/quakesim/engine/internal/intensity"
	"github.com/quakesim/engine/internal/util"
)

// NotTriggered is the resting intensity of a station no wave has reached.
const NotTriggered = intensity.RawMin

// Station is one seismometer. Intensity rises progressively toward the
// target once a wave front passes, rather than jumping to it.
type Station struct {
	ID   int
	Lat  float64
	Lon  float64
	Name string

	Intensity       float64
	TargetIntensity float64
	MaxIntensity    float64

	PArrived bool
	SArrived bool

	// TimeSincePeak counts seconds since the intensity reached its
	// target.
	TimeSincePeak float64

	// PArrivalTime is the simulated time the P front was first seen,
	// used by the hypocenter tracker. Zero amplitude means no pick yet.
	PArrivalTime float64
	PAmplitude   float64
	pPicked      bool
}

// Point returns the station location.
func (s *Station) Point() geo.Point {
	return geo.Point{Lat: s.Lat, Lon: s.Lon}
}

// reset returns the station to its untriggered resting state.
func (s *Station) reset() {
	s.Intensity = NotTriggered
	s.TargetIntensity = NotTriggered
	s.MaxIntensity = NotTriggered
	s.PArrived = false
	s.SArrived = false
	s.TimeSincePeak = 0
	s.PArrivalTime = 0
	s.PAmplitude = 0
	s.pPicked = false
}

// Quake is the subset of the wave model the station update needs.
type Quake interface {
	EpicentralDistanceKm(p geo.Point) float64
	PArrivalTimeS(surfaceDistKm float64) float64
	SArrivalTimeS(surfaceDistKm float64) float64
	Magnitude() float64
	DepthKm() float64
}

// update advances the station by dt seconds of simulated time. rand01
// supplies uniform [0,1) samples so callers control reproducibility.
func (s *Station) update(q Quake, est *intensity.Estimator, now, dt float64, rand01 func() float64) {
	dist := q.EpicentralDistanceKm(s.Point())

	wasP := s.PArrived
	s.PArrived = now >= q.PArrivalTimeS(dist)
	s.SArrived = now >= q.SArrivalTimeS(dist)

	if s.PArrived && !wasP {
		s.PArrivalTime = now
		if dist > 0 {
			s.PAmplitude = math.Pow(10, q.Magnitude()-1.5) / math.Max(1, dist)
		}
		s.pPicked = true
	}

	switch {
	case s.SArrived:
		s.TargetIntensity = est.Estimate(q.Magnitude(), q.DepthKm(), dist)
	case s.PArrived:
		full := est.Estimate(q.Magnitude(), q.DepthKm(), dist)
		s.TargetIntensity = intensity.PFromS(full)
	default:
		s.TargetIntensity = NotTriggered
		s.Intensity = NotTriggered
		return
	}

	// Growth slows as the reading approaches its target: the factor
	// shrinks as intensity rises.
	currentI := math.Max(0.01, s.Intensity-NotTriggered)
	incrementFactor := math.Log(1/currentI)/math.Log(7) + 1

	baseRandom := 0.005 + 0.04/math.Log(q.Magnitude()+0.2)
	randomFactor := baseRandom*0.3 + rand01()*baseRandom*0.7
	if s.PArrived && !s.SArrived {
		randomFactor *= 0.5
	}

	increment := incrementFactor * randomFactor * dt * 60
	increment = math.Max(increment, 0.5*dt)

	if s.Intensity+increment < s.TargetIntensity {
		s.Intensity += increment
		s.TimeSincePeak = 0
	} else {
		s.Intensity = s.TargetIntensity
		s.TimeSincePeak += dt
	}

	if s.Intensity > s.MaxIntensity {
		s.MaxIntensity = s.Intensity
	}
}

// Gradient stops used to color station markers: raw intensity mapped to
// [0,1], dark blue through red to purple.
var colorStops = []struct {
	t float64
	c [3]uint8
}{
	{0.0, [3]uint8{0, 0, 80}},
	{0.3, [3]uint8{0, 63, 255}},
	{0.4, [3]uint8{0, 191, 255}},
	{0.5, [3]uint8{0, 255, 191}},
	{0.6, [3]uint8{0, 255, 0}},
	{0.7, [3]uint8{255, 255, 0}},
	{0.8, [3]uint8{255, 127, 0}},
	{0.9, [3]uint8{255, 0, 0}},
	{1.0, [3]uint8{200, 0, 200}},
}

// Color returns the continuous marker color for the current intensity.
func (s *Station) Color() (r, g, b uint8) {
	t := util.Clamp((s.Intensity+3)/10.0, 0, 1)
	for i := 0; i < len(colorStops)-1; i++ {
		lo, hi := colorStops[i], colorStops[i+1]
		if t < lo.t || t > hi.t {
			continue
		}
		ratio := 0.0
		if hi.t > lo.t {
			ratio = (t - lo.t) / (hi.t - lo.t)
		}
		return util.LerpColorChannel(lo.c[0], hi.c[0], ratio),
			util.LerpColorChannel(lo.c[1], hi.c[1], ratio),
			util.LerpColorChannel(lo.c[2], hi.c[2], ratio)
	}
	last := colorStops[len(colorStops)-1].c
	return last[0], last[1], last[2]
}
