// Package tracker simulates the progressive-revision behavior of an
// early-warning pipeline: the first published estimate carries deliberate
// error, and each revision converges toward the true source as more
// stations report.
package tracker

import (
	"log/slog"
	"math"
	"math/rand"
	"sync"

	"github.com/quakesim/engine/internal/util"
)

// Estimate is one published source estimate.
type Estimate struct {
	Lat       float64
	Lon       float64
	DepthKm   float64
	Magnitude float64
}

// Convergence thresholds: the tracker stops revising once every error
// component is below its threshold.
const (
	convergenceDeg     = 0.05
	convergenceDepthKm = 5.0
	convergenceMag     = 0.1

	// A magnitude or depth error past these bounds triggers a full
	// re-estimate instead of a decay step.
	overthrowMag     = 1.0
	overthrowDepthKm = 30.0

	firstRevisionStations = 3
	revisionStationStep   = 5
)

// Tracker revises a source estimate as station picks accumulate. Disabled
// trackers report the true values immediately. Update runs on the frame
// loop while status queries come from the command goroutine, so the
// estimate state sits behind a mutex.
type Tracker struct {
	log     *slog.Logger
	rng     *rand.Rand
	enabled bool

	mu sync.Mutex

	truth   Estimate
	current Estimate

	latErr   float64
	lonErr   float64
	depthErr float64
	magErr   float64

	revisions    int
	lastStations int

	pendingCorrection bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRand injects the random source, mainly for reproducible tests.
func WithRand(rng *rand.Rand) Option {
	return func(t *Tracker) { t.rng = rng }
}

// Disabled makes the tracker a pass-through reporting the truth.
func Disabled() Option {
	return func(t *Tracker) { t.enabled = false }
}

// New creates a tracker for the given true source. The initial published
// estimate is perturbed by up to 0.8 degrees in position, 30 km in depth,
// and 0.8 in magnitude.
func New(truth Estimate, log *slog.Logger, opts ...Option) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	t := &Tracker{
		log:     log,
		rng:     rand.New(rand.NewSource(rand.Int63())),
		enabled: true,
		truth:   truth,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.enabled {
		t.latErr = t.uniform(-0.8, 0.8)
		t.lonErr = t.uniform(-0.8, 0.8)
		t.depthErr = t.uniform(-30, 30)
		t.magErr = t.uniform(-0.8, 0.8)
	}
	t.apply()

	t.log.Info("source tracker initialized",
		"enabled", t.enabled,
		"published", t.current,
	)
	return t
}

func (t *Tracker) uniform(lo, hi float64) float64 {
	return lo + t.rng.Float64()*(hi-lo)
}

// apply recomputes the published estimate from the truth and errors.
func (t *Tracker) apply() {
	t.current = Estimate{
		Lat:       t.truth.Lat + t.latErr,
		Lon:       t.truth.Lon + t.lonErr,
		DepthKm:   math.Max(0, t.truth.DepthKm+t.depthErr),
		Magnitude: util.Clamp(t.truth.Magnitude+t.magErr, 1.0, 9.5),
	}
}

// Update considers a revision given the current detected-station count.
// It returns true when a revision was published. Revisions start at three
// stations and repeat for every five further stations until converged.
func (t *Tracker) Update(detectedStations int, elapsed float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || t.converged() {
		return false
	}
	if detectedStations < firstRevisionStations {
		return false
	}

	increase := detectedStations - t.lastStations
	if t.revisions > 0 && increase < revisionStationStep {
		return false
	}

	t.lastStations = detectedStations
	t.revisions++

	if math.Abs(t.magErr) > overthrowMag || math.Abs(t.depthErr) > overthrowDepthKm {
		// The published source is badly wrong; discard it and
		// redraw the errors from a tighter range.
		t.latErr = t.uniform(-0.5, 0.5)
		t.lonErr = t.uniform(-0.5, 0.5)
		t.depthErr = t.uniform(-20, 20)
		t.magErr = t.uniform(-0.5, 0.5)
		t.log.Info("source estimate overthrown",
			"revision", t.revisions,
			"stations", detectedStations,
			"elapsed", elapsed,
		)
	} else {
		// More reporting stations justify a bigger correction step.
		var rate float64
		switch {
		case detectedStations >= 20:
			rate = t.uniform(0.4, 0.6)
		case detectedStations >= 10:
			rate = t.uniform(0.3, 0.5)
		default:
			rate = t.uniform(0.2, 0.4)
		}
		t.latErr *= 1 - rate
		t.lonErr *= 1 - rate
		t.depthErr *= 1 - rate
		t.magErr *= 1 - rate
	}

	t.apply()
	t.pendingCorrection = true

	t.log.Info("source estimate revised",
		"revision", t.revisions,
		"stations", detectedStations,
		"elapsed", elapsed,
		"estimate", t.current,
	)
	return true
}

// Converged reports whether every error component is within its
// convergence threshold. A disabled tracker is always converged.
func (t *Tracker) Converged() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.converged()
}

func (t *Tracker) converged() bool {
	if !t.enabled {
		return true
	}
	return math.Abs(t.latErr) < convergenceDeg &&
		math.Abs(t.lonErr) < convergenceDeg &&
		math.Abs(t.depthErr) < convergenceDepthKm &&
		math.Abs(t.magErr) < convergenceMag
}

// Current returns the latest published estimate.
func (t *Tracker) Current() Estimate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Revisions returns how many revisions have been published.
func (t *Tracker) Revisions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.revisions
}

// ConsumeCorrection returns true exactly once per published revision,
// for the caller to announce the correction.
func (t *Tracker) ConsumeCorrection() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pendingCorrection {
		t.pendingCorrection = false
		return true
	}
	return false
}
