// Package engine ties the simulation subsystems together behind a single
// call surface. The frontend (or the headless runner) talks only to the
// Service; it never reaches into the individual packages.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quakesim/engine/internal/cache"
	"github.com/quakesim/engine/internal/config"
	"github.com/quakesim/engine/internal/geo"
	"github.com/quakesim/engine/internal/intensity"
	"github.com/quakesim/engine/internal/logging"
	"github.com/quakesim/engine/internal/monitor"
	"github.com/quakesim/engine/internal/projection"
	"github.com/quakesim/engine/internal/region"
	"github.com/quakesim/engine/internal/seismic"
	"github.com/quakesim/engine/internal/station"
	"github.com/quakesim/engine/internal/tracker"
)

var (
	// ErrRunActive is returned when the epicenter is changed while a
	// simulation run is in progress.
	ErrRunActive = errors.New("simulation run is active")
	// ErrNoEpicenter is returned by StartSimulation before SetEpicenter.
	ErrNoEpicenter = errors.New("no epicenter set")
)

// UnknownRegion is returned for points outside every loaded region,
// typically offshore epicenters.
const UnknownRegion = "unknown"

// Dependencies holds everything the engine needs injected.
type Dependencies struct {
	Sim         config.SimConfig
	Regions     *region.Index
	Stations    *station.Manager
	Estimator   *intensity.Estimator
	Projector   *projection.Projector
	RegionCache *cache.RegionCache
	LogManager  *logging.SlogManager
	Monitor     *monitor.Service
	Logger      *slog.Logger
	TrackerOpts []tracker.Option
}

// Service drives one seismic event at a time and answers spatial queries
// against the current wave fronts.
type Service struct {
	deps   Dependencies
	log    *slog.Logger
	event  *seismic.Event
	frames cache.SafeCounter

	mu           sync.RWMutex
	pending      seismic.Epicenter
	epicenterSet bool
	track        *tracker.Tracker
	cacheLocale  string

	writeLogFunc func(subsystem, data, level string)
}

// NewService creates the engine service. The seismic clock starts in Idle.
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Service{
		deps:  deps,
		log:   deps.Logger,
		event: seismic.New(deps.Sim.PWaveSpeedKmS, deps.Sim.SWaveSpeedKmS),
	}
	if deps.RegionCache == nil {
		s.deps.RegionCache = cache.NewRegionCache(0)
	}
	// Default writeLog function uses the logging manager
	s.writeLogFunc = func(subsystem, data, level string) {
		if deps.LogManager != nil {
			deps.LogManager.WriteLog(subsystem, data, level)
		}
	}
	return s
}

func (s *Service) writeLog(subsystem, data, level string) {
	s.writeLogFunc(subsystem, data, level)
}

// SetEpicenter stages the hypocenter for the next run. Values outside the
// physical domain are clamped at Start, never rejected; the only error is
// changing the epicenter mid-run.
func (s *Service) SetEpicenter(lat, lon, depthKm, magnitude float64) error {
	switch s.event.State() {
	case seismic.StateRunning, seismic.StatePaused:
		return ErrRunActive
	}
	s.mu.Lock()
	s.pending = seismic.Epicenter{Lat: lat, Lon: lon, DepthKm: depthKm, Magnitude: magnitude}
	s.epicenterSet = true
	s.mu.Unlock()
	s.log.Info("epicenter set", "lat", lat, "lon", lon, "depth_km", depthKm, "magnitude", magnitude)
	return nil
}

// StartSimulation binds the staged epicenter, computes the run extent from
// the map bounds, and starts the clock. A perturbed published estimate is
// issued alongside the truth.
func (s *Service) StartSimulation() error {
	s.mu.Lock()
	if !s.epicenterSet {
		s.mu.Unlock()
		return ErrNoEpicenter
	}
	ep := s.pending
	s.mu.Unlock()

	s.event.SetExtentKm(s.runExtentKm(ep.Point()))
	s.frames.Set(0)
	s.event.Start(ep)
	// Start clamps; read back the values actually in effect.
	ep = s.event.Epicenter()

	s.mu.Lock()
	s.track = tracker.New(tracker.Estimate{
		Lat:       ep.Lat,
		Lon:       ep.Lon,
		DepthKm:   ep.DepthKm,
		Magnitude: ep.Magnitude,
	}, s.log, s.deps.TrackerOpts...)
	s.mu.Unlock()

	s.writeLog(":SIM:START:",
		fmt.Sprintf("M%.1f depth %.1fkm at (%.3f, %.3f)", ep.Magnitude, ep.DepthKm, ep.Lat, ep.Lon),
		"INFO")
	return nil
}

// runExtentKm is the distance from the epicenter to the farthest map
// corner. Once the S front passes it nothing on screen is still shaking.
func (s *Service) runExtentKm(ep geo.Point) float64 {
	b := s.deps.Sim.MapBounds
	corners := []geo.Point{
		{Lat: b.MinLat, Lon: b.MinLon},
		{Lat: b.MinLat, Lon: b.MaxLon},
		{Lat: b.MaxLat, Lon: b.MinLon},
		{Lat: b.MaxLat, Lon: b.MaxLon},
	}
	var max float64
	for _, c := range corners {
		if d := geo.HaversineKm(ep, c); d > max {
			max = d
		}
	}
	return max
}

// PauseSimulation freezes the clock. No-op unless Running.
func (s *Service) PauseSimulation() {
	s.event.Pause()
}

// ResumeSimulation restarts a paused clock.
func (s *Service) ResumeSimulation() {
	s.event.Resume()
}

// ResetSimulation returns to Idle, clearing the epicenter, the station
// states and the published estimate. Playback speed survives.
func (s *Service) ResetSimulation() {
	s.event.Reset()
	s.frames.Set(0)
	if s.deps.Stations != nil {
		s.deps.Stations.Reset()
	}
	s.mu.Lock()
	s.track = nil
	s.epicenterSet = false
	s.mu.Unlock()
	s.writeLog(":SIM:RESET:", "", "INFO")
}

// SetPlaybackSpeed sets the clock multiplier. Non-positive values are ignored.
func (s *Service) SetPlaybackSpeed(multiplier float64) {
	s.event.SetSpeed(multiplier)
}

// Advance steps the simulation by dt wall seconds: advance the wave fronts,
// ramp station intensities, revise the published estimate and push a frame
// sample to the monitor. No-op unless Running.
func (s *Service) Advance(dt float64) {
	if s.event.State() != seismic.StateRunning {
		return
	}
	s.frames.Inc()
	s.event.Advance(dt)

	now := s.event.Elapsed()
	simDt := dt * s.event.Speed()
	if s.deps.Stations != nil {
		s.deps.Stations.Update(s.event, now, simDt)
	}

	s.mu.RLock()
	track := s.track
	s.mu.RUnlock()
	if track != nil {
		if track.Update(s.detectedCount(), now) {
			est := track.Current()
			s.log.Info("published estimate revised",
				"revision", track.Revisions(),
				"magnitude", est.Magnitude,
				"depth_km", est.DepthKm,
				"converged", track.Converged())
		}
	}

	s.recordFrame(dt)
}

func (s *Service) detectedCount() int {
	if s.deps.Stations == nil {
		return 0
	}
	return s.deps.Stations.DetectedCount()
}

func (s *Service) recordFrame(dt float64) {
	if s.deps.Monitor == nil {
		return
	}
	maxI := intensity.RawMin
	if s.deps.Stations != nil {
		maxI = s.deps.Stations.MaxIntensityWithin(s.boundsBBox())
	}
	s.deps.Monitor.RecordFrame(monitor.FrameSample{
		Time:          time.Now(),
		State:         s.event.State().String(),
		Elapsed:       s.event.Elapsed(),
		FrameDuration: time.Duration(dt * float64(time.Second)),
		FPS:           float64(s.deps.Sim.FPS),
		PRadiusKm:     s.event.PRadiusKm(),
		SRadiusKm:     s.event.SRadiusKm(),
		Triggered:     s.detectedCount(),
		MaxIntensity:  maxI,
	})
}

func (s *Service) boundsBBox() geo.BBox {
	b := s.deps.Sim.MapBounds
	return geo.BBox{MinLat: b.MinLat, MinLon: b.MinLon, MaxLat: b.MaxLat, MaxLon: b.MaxLon}
}

// CurrentWaveRadii returns the surface radii of the P and S fronts in km.
func (s *Service) CurrentWaveRadii() (pKm, sKm float64) {
	return s.event.PRadiusKm(), s.event.SRadiusKm()
}

// State returns the run state of the current event.
func (s *Service) State() seismic.State {
	return s.event.State()
}

// Event exposes the underlying seismic clock for read access.
func (s *Service) Event() *seismic.Event {
	return s.event
}

// IntensityAt evaluates the shaking at a map point against the current wave
// fronts: the full estimate once the S front has passed, the reduced P-phase
// intensity between the fronts, and "not felt" ahead of both.
func (s *Service) IntensityAt(p geo.Point) intensity.Result {
	if s.event.State() == seismic.StateIdle {
		return s.deps.Estimator.Resolve(intensity.RawMin)
	}
	ep := s.event.Epicenter()
	dist := s.event.EpicentralDistanceKm(p)
	full := s.deps.Estimator.Estimate(ep.Magnitude, ep.DepthKm, dist)
	switch {
	case dist <= s.event.SRadiusKm():
		return s.deps.Estimator.Resolve(full)
	case dist <= s.event.PRadiusKm():
		return s.deps.Estimator.Resolve(intensity.PFromS(full))
	default:
		return s.deps.Estimator.Resolve(intensity.RawMin)
	}
}

// RegionNameAt resolves the named region containing the point, or
// UnknownRegion when the point is outside every region. Lookups are
// memoized on a quantized grid since the renderer asks for the same
// cursor and station points every frame.
func (s *Service) RegionNameAt(p geo.Point, locale string) string {
	s.mu.Lock()
	if locale != s.cacheLocale {
		s.deps.RegionCache.Reset()
		s.cacheLocale = locale
	}
	s.mu.Unlock()

	if name, ok := s.deps.RegionCache.Get(p); ok {
		if name == "" {
			return UnknownRegion
		}
		return name
	}

	name := ""
	if s.deps.Regions != nil {
		if r, ok := s.deps.Regions.Find(p); ok {
			name = r.Name(locale)
		}
	}
	s.deps.RegionCache.Put(p, name)
	if name == "" {
		return UnknownRegion
	}
	return name
}

// Project maps a geographic point to viewport pixels.
func (s *Service) Project(p geo.Point) (x, y float64) {
	return s.deps.Projector.Project(p)
}

// Unproject maps viewport pixels back to a geographic point.
func (s *Service) Unproject(x, y float64) geo.Point {
	return s.deps.Projector.Unproject(x, y)
}

// Snapshot is a point-in-time view of the run, for status queries.
type Snapshot struct {
	State        string
	Elapsed      float64
	Speed        float64
	Epicenter    seismic.Epicenter
	PRadiusKm    float64
	SRadiusKm    float64
	Detected     int
	Frames       int
	Published    tracker.Estimate
	Revisions    int
	Converged    bool
	HasPublished bool
}

// Status returns a snapshot of the current run.
func (s *Service) Status() Snapshot {
	snap := Snapshot{
		State:     s.event.State().String(),
		Elapsed:   s.event.Elapsed(),
		Speed:     s.event.Speed(),
		Epicenter: s.event.Epicenter(),
		PRadiusKm: s.event.PRadiusKm(),
		SRadiusKm: s.event.SRadiusKm(),
		Detected:  s.detectedCount(),
		Frames:    s.frames.Value(),
	}
	s.mu.RLock()
	if s.track != nil {
		snap.Published = s.track.Current()
		snap.Revisions = s.track.Revisions()
		snap.Converged = s.track.Converged()
		snap.HasPublished = true
	}
	s.mu.RUnlock()
	return snap
}

// ConsumeRevisionFlag reports whether the published estimate changed since
// the last call, for one-shot UI notifications.
func (s *Service) ConsumeRevisionFlag() bool {
	s.mu.RLock()
	track := s.track
	s.mu.RUnlock()
	if track == nil {
		return false
	}
	return track.ConsumeCorrection()
}
