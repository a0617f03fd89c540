package station

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sync"

	"github.com/quakesim/engine/internal/geo"
	"github.com/quakesim/engine/internal/intensity"
)

// Arrival is one station's P-wave pick, consumed by the hypocenter
// tracker.
type Arrival struct {
	Lat       float64
	Lon       float64
	TimeS     float64
	Amplitude float64
}

// Manager owns the station set and drives it frame by frame. The frame
// loop mutates station state while command handlers reset and query it
// from another goroutine, so all access goes through the manager's lock.
type Manager struct {
	log *slog.Logger
	est *intensity.Estimator
	rng *rand.Rand

	mu       sync.RWMutex
	stations []*Station
}

// NewManager creates a manager with no stations loaded.
func NewManager(est *intensity.Estimator, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log: log,
		est: est,
		rng: rand.New(rand.NewSource(1)),
	}
}

// Seed reseeds the random source used for progressive intensity growth.
func (m *Manager) Seed(seed int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rng = rand.New(rand.NewSource(seed))
}

type stationRecord struct {
	ID   int     `json:"id"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Name string  `json:"name"`
}

// LoadFile reads the station network from a JSON array. Entries with
// out-of-domain coordinates are skipped with a warning.
func (m *Manager) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading station file: %w", err)
	}

	var records []stationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parsing station file %s: %w", path, err)
	}

	stations := make([]*Station, 0, len(records))
	for _, rec := range records {
		if !(geo.Point{Lat: rec.Lat, Lon: rec.Lon}).Valid() {
			m.log.Warn("skipping station with invalid coordinates",
				"id", rec.ID, "lat", rec.Lat, "lon", rec.Lon)
			continue
		}
		name := rec.Name
		if name == "" {
			name = fmt.Sprintf("Station_%d", rec.ID)
		}
		s := &Station{ID: rec.ID, Lat: rec.Lat, Lon: rec.Lon, Name: name}
		s.reset()
		stations = append(stations, s)
	}

	m.mu.Lock()
	m.stations = stations
	m.mu.Unlock()
	m.log.Info("station network loaded", "stations", len(stations), "skipped", len(records)-len(stations))
	return nil
}

// Add appends a station directly, mainly for synthetic networks.
func (m *Manager) Add(id int, lat, lon float64, name string) {
	s := &Station{ID: id, Lat: lat, Lon: lon, Name: name}
	s.reset()
	m.mu.Lock()
	m.stations = append(m.stations, s)
	m.mu.Unlock()
}

// Stations returns the managed stations. The returned pointers are only
// safe to read while no Update or Reset runs concurrently; cross-thread
// readers should use the aggregate queries or Strongest instead.
func (m *Manager) Stations() []*Station {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stations
}

// Count returns the number of managed stations.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stations)
}

// Update advances every station to the given simulated time.
func (m *Manager) Update(q Quake, now, dt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.stations {
		s.update(q, m.est, now, dt, m.rng.Float64)
	}
}

// Reset returns every station to its untriggered state.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.stations {
		s.reset()
	}
}

// MaxIntensityWithin returns the highest current intensity among stations
// inside the box, or NotTriggered when none are.
func (m *Manager) MaxIntensityWithin(b geo.BBox) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	max := NotTriggered
	for _, s := range m.stations {
		if b.Contains(s.Point()) && s.Intensity > max {
			max = s.Intensity
		}
	}
	return max
}

// Strongest returns a copy of the triggered station with the highest
// current intensity, and false when no wave has reached any station.
func (m *Manager) Strongest() (Station, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *Station
	for _, s := range m.stations {
		if !s.PArrived && !s.SArrived {
			continue
		}
		if best == nil || s.Intensity > best.Intensity {
			best = s
		}
	}
	if best == nil {
		return Station{}, false
	}
	return *best, true
}

// PArrivals returns the P-wave picks recorded so far, in station order.
func (m *Manager) PArrivals() []Arrival {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Arrival
	for _, s := range m.stations {
		if !s.pPicked {
			continue
		}
		out = append(out, Arrival{
			Lat:       s.Lat,
			Lon:       s.Lon,
			TimeS:     s.PArrivalTime,
			Amplitude: s.PAmplitude,
		})
	}
	return out
}

// DetectedCount returns the number of stations with a P-wave pick.
func (m *Manager) DetectedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.stations {
		if s.pPicked {
			n++
		}
	}
	return n
}
