// Package seismic owns the time-driven wave-propagation model: one frozen
// epicenter, a simulation clock, and the P/S wave-front geometry derived
// from them.
package seismic

import (
	"math"
	"sync"

	"github.com/quakesim/engine/internal/geo"
	"github.com/quakesim/engine/internal/util"
)

// State is the lifecycle state of an Event.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Epicenter holds the physical parameters of one earthquake. Depth is in
// km below the surface.
type Epicenter struct {
	Lat       float64
	Lon       float64
	DepthKm   float64
	Magnitude float64
}

// Point returns the surface location of the epicenter.
func (e Epicenter) Point() geo.Point {
	return geo.Point{Lat: e.Lat, Lon: e.Lon}
}

// Parameter clamp limits applied by Start. Out-of-range values are
// clamped, never rejected.
const (
	MagnitudeMin = 0.0
	MagnitudeMax = 9.5
	DepthMinKm   = 0.1
	DepthMaxKm   = 800.0
)

// Event is the time-driven model of one earthquake. The frame loop is the
// single mutating owner; the mutex only guards against incidental reads
// from a render goroutine.
type Event struct {
	mu sync.Mutex

	pSpeedKmS float64
	sSpeedKmS float64

	// extentKm > 0 enables internal Finished detection once both wave
	// fronts exceed it.
	extentKm float64

	state     State
	epicenter Epicenter
	elapsed   float64
	speed     float64
}

// New creates an idle event with the given wave speeds in km/s and a
// playback speed of 1.
func New(pSpeedKmS, sSpeedKmS float64) *Event {
	return &Event{
		pSpeedKmS: pSpeedKmS,
		sSpeedKmS: sSpeedKmS,
		speed:     1,
	}
}

// SetExtentKm injects the map extent radius used to detect completion.
// Zero disables internal detection, leaving it to the caller.
func (e *Event) SetExtentKm(km float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.extentKm = km
}

// Start freezes a copy of the epicenter, zeroes the clock, and moves to
// Running. Magnitude and depth are clamped to their sane ranges.
func (e *Event) Start(ep Epicenter) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ep.Magnitude = util.Clamp(ep.Magnitude, MagnitudeMin, MagnitudeMax)
	ep.DepthKm = util.Clamp(ep.DepthKm, DepthMinKm, DepthMaxKm)

	e.epicenter = ep
	e.elapsed = 0
	e.state = StateRunning
}

// Advance moves the clock forward by dt seconds scaled by the playback
// speed. It is a no-op unless the event is Running.
func (e *Event) Advance(dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRunning {
		return
	}
	e.elapsed += dt * e.speed

	if e.extentKm > 0 && e.surfaceRadiusLocked(e.sSpeedKmS) > e.extentKm {
		// S is the slower front, so once it clears the extent the P
		// front has as well
		e.state = StateFinished
	}
}

// Pause moves Running to Paused. In any other state it is a no-op,
// including Finished.
func (e *Event) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateRunning {
		e.state = StatePaused
	}
}

// Resume moves Paused back to Running.
func (e *Event) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StatePaused {
		e.state = StateRunning
	}
}

// Reset unconditionally returns to Idle with a zeroed clock, from any
// state. The playback speed is retained.
func (e *Event) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateIdle
	e.elapsed = 0
	e.epicenter = Epicenter{}
}

// SetSpeed changes the playback speed multiplier. Non-positive values are
// ignored and the previous speed is retained.
func (e *Event) SetSpeed(multiplier float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if multiplier <= 0 {
		return
	}
	e.speed = multiplier
}

// State returns the current lifecycle state.
func (e *Event) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Elapsed returns the simulated seconds since Start.
func (e *Event) Elapsed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed
}

// Speed returns the playback speed multiplier.
func (e *Event) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// Epicenter returns the frozen epicenter of the current run.
func (e *Event) Epicenter() Epicenter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epicenter
}

// SurfaceRadiusKm returns the surface-projected wave-front radius for a
// wave of the given speed. The hypocentral sphere only breaks the surface
// once its radius exceeds the depth, producing the characteristic delayed
// appearance of the ring.
func (e *Event) SurfaceRadiusKm(waveSpeedKmS float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surfaceRadiusLocked(waveSpeedKmS)
}

func (e *Event) surfaceRadiusLocked(waveSpeedKmS float64) float64 {
	hypocentral := waveSpeedKmS * e.elapsed
	return math.Sqrt(math.Max(hypocentral*hypocentral-e.epicenter.DepthKm*e.epicenter.DepthKm, 0))
}

// PRadiusKm returns the surface radius of the primary wave front.
func (e *Event) PRadiusKm() float64 { return e.SurfaceRadiusKm(e.pSpeedKmS) }

// SRadiusKm returns the surface radius of the secondary wave front.
func (e *Event) SRadiusKm() float64 { return e.SurfaceRadiusKm(e.sSpeedKmS) }

// ArrivalTimeS returns the simulated seconds after rupture at which a wave
// of the given speed reaches a point at the given surface distance.
func (e *Event) ArrivalTimeS(surfaceDistKm, waveSpeedKmS float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	depth := e.epicenter.DepthKm
	return math.Sqrt(surfaceDistKm*surfaceDistKm+depth*depth) / waveSpeedKmS
}

// PArrivalTimeS returns the P-wave arrival time at a surface distance.
func (e *Event) PArrivalTimeS(surfaceDistKm float64) float64 {
	return e.ArrivalTimeS(surfaceDistKm, e.pSpeedKmS)
}

// SArrivalTimeS returns the S-wave arrival time at a surface distance.
func (e *Event) SArrivalTimeS(surfaceDistKm float64) float64 {
	return e.ArrivalTimeS(surfaceDistKm, e.sSpeedKmS)
}

// Magnitude returns the clamped magnitude of the current run.
func (e *Event) Magnitude() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epicenter.Magnitude
}

// DepthKm returns the clamped focal depth of the current run.
func (e *Event) DepthKm() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epicenter.DepthKm
}

// EpicentralDistanceKm returns the great-circle distance from the
// epicenter to a point.
func (e *Event) EpicentralDistanceKm(p geo.Point) float64 {
	return geo.HaversineKm(e.Epicenter().Point(), p)
}
