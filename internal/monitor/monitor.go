// Package monitor collects per-frame performance samples and station
// readings from the simulation loop and batches them out to InfluxDB.
package monitor

import (
	"context"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/quakesim/engine/internal/influx"
	"github.com/quakesim/engine/internal/logging"
	"github.com/quakesim/engine/internal/queue"
)

// Bucket names the monitor writes to.
const (
	BucketSimPerformance   = "sim_performance"
	BucketStationIntensity = "station_intensity"
)

// FrameSample is one simulation frame's worth of performance data.
type FrameSample struct {
	Time          time.Time
	State         string
	Elapsed       float64
	FrameDuration time.Duration
	FPS           float64
	PRadiusKm     float64
	SRadiusKm     float64
	Triggered     int
	MaxIntensity  float64
}

// StationSample is one station's reading at a point in simulated time.
type StationSample struct {
	Time      time.Time
	StationID int
	Name      string
	Intensity float64
	Scale     string
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager *logging.SlogManager
	Influx     *influx.Manager
	Frames     *queue.Queue[FrameSample]
	Stations   *queue.Queue[StationSample]
	// Interval between flushes; defaults to one second.
	Interval time.Duration
}

// Service drains the sample queues on a timer and writes them out.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// RecordFrame queues a frame sample for the next flush.
func (s *Service) RecordFrame(sample FrameSample) {
	s.deps.Frames.Push(sample)
}

// RecordStation queues a station reading for the next flush.
func (s *Service) RecordStation(sample StationSample) {
	s.deps.Stations.Push(sample)
}

// Flush drains both queues and writes every sample. Failed station
// points do not block frame points.
func (s *Service) Flush(ctx context.Context) error {
	logger := s.deps.LogManager.Logger()
	var firstErr error

	for _, sample := range s.deps.Frames.GetAndEmpty() {
		point := influxdb2_write.NewPointWithMeasurement("frame").
			AddTag("run_state", sample.State).
			AddField("elapsed", sample.Elapsed).
			AddField("frame_ms", float64(sample.FrameDuration.Microseconds())/1000.0).
			AddField("fps", sample.FPS).
			AddField("p_radius_km", sample.PRadiusKm).
			AddField("s_radius_km", sample.SRadiusKm).
			AddField("stations_triggered", sample.Triggered).
			AddField("max_intensity", sample.MaxIntensity).
			SetTime(sample.Time)
		if err := s.deps.Influx.WritePoint(ctx, BucketSimPerformance, point); err != nil {
			logger.Error("Error writing frame sample", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	for _, sample := range s.deps.Stations.GetAndEmpty() {
		point := influxdb2_write.NewPointWithMeasurement("station").
			AddTag("name", sample.Name).
			AddTag("scale", sample.Scale).
			AddField("station_id", sample.StationID).
			AddField("intensity", sample.Intensity).
			SetTime(sample.Time)
		if err := s.deps.Influx.WritePoint(ctx, BucketStationIntensity, point); err != nil {
			logger.Error("Error writing station sample", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// Start starts the flush goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting monitor goroutine")

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				// final drain so shutdown does not lose samples
				if err := s.Flush(context.Background()); err != nil {
					logger.Error("Error on final monitor flush", "error", err)
				}
				return
			case <-ticker.C:
				if err := s.Flush(context.Background()); err != nil {
					logger.Error("Error flushing monitor samples", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
