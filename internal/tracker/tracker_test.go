package tracker

import (
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seeded(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

var truth = Estimate{Lat: 35.7, Lon: 139.7, DepthKm: 30, Magnitude: 7.0}

func TestDisabledReportsTruth(t *testing.T) {
	tr := New(truth, testLogger(), Disabled(), seeded(1))
	if tr.Current() != truth {
		t.Fatalf("disabled tracker published %+v, want truth", tr.Current())
	}
	if !tr.Converged() {
		t.Error("disabled tracker not converged")
	}
	if tr.Update(50, 10) {
		t.Error("disabled tracker published a revision")
	}
}

func TestInitialErrorBounds(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		tr := New(truth, testLogger(), seeded(seed))
		cur := tr.Current()
		if d := math.Abs(cur.Lat - truth.Lat); d > 0.8 {
			t.Errorf("seed %d: lat error %v exceeds 0.8", seed, d)
		}
		if d := math.Abs(cur.Lon - truth.Lon); d > 0.8 {
			t.Errorf("seed %d: lon error %v exceeds 0.8", seed, d)
		}
		if d := math.Abs(cur.DepthKm - truth.DepthKm); d > 30 {
			t.Errorf("seed %d: depth error %v exceeds 30", seed, d)
		}
		if cur.Magnitude < 1.0 || cur.Magnitude > 9.5 {
			t.Errorf("seed %d: magnitude %v outside [1, 9.5]", seed, cur.Magnitude)
		}
	}
}

func TestNoRevisionBelowThreeStations(t *testing.T) {
	tr := New(truth, testLogger(), seeded(3))
	if tr.Update(0, 0) || tr.Update(1, 1) || tr.Update(2, 2) {
		t.Error("revision published below three stations")
	}
	if tr.Revisions() != 0 {
		t.Errorf("revisions = %d, want 0", tr.Revisions())
	}
}

func TestFirstRevisionAtThreeStations(t *testing.T) {
	tr := New(truth, testLogger(), seeded(3))
	if !tr.Update(3, 4) {
		t.Fatal("no revision at three stations")
	}
	if tr.Revisions() != 1 {
		t.Errorf("revisions = %d, want 1", tr.Revisions())
	}

	// The next revision needs five more stations.
	if tr.Update(6, 5) {
		t.Error("revision at +3 stations, want threshold of +5")
	}
	if !tr.Converged() && !tr.Update(8, 6) {
		t.Error("no revision at +5 stations")
	}
}

func TestConvergesWithGrowingNetwork(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		tr := New(truth, testLogger(), seeded(seed))

		counts := []int{3, 8, 13, 20, 30, 50, 80, 120, 180, 260, 350, 460, 600, 800}
		for i, n := range counts {
			tr.Update(n, float64(i)*2)
			if tr.Converged() {
				break
			}
		}
		if !tr.Converged() {
			cur := tr.Current()
			t.Errorf("seed %d: not converged after %d revisions, at %+v", seed, tr.Revisions(), cur)
			continue
		}

		cur := tr.Current()
		if d := math.Abs(cur.Lat - truth.Lat); d >= 0.05 {
			t.Errorf("seed %d: converged lat error %v", seed, d)
		}
		if d := math.Abs(cur.Magnitude - truth.Magnitude); d >= 0.1 {
			t.Errorf("seed %d: converged magnitude error %v", seed, d)
		}
		if d := math.Abs(cur.DepthKm - truth.DepthKm); d >= 5 {
			t.Errorf("seed %d: converged depth error %v", seed, d)
		}
	}
}

func TestConvergedStopsRevising(t *testing.T) {
	tr := New(truth, testLogger(), seeded(7))
	for i, n := range []int{3, 10, 20, 40, 80, 160, 320, 640, 1280} {
		tr.Update(n, float64(i))
		if tr.Converged() {
			break
		}
	}
	if !tr.Converged() {
		t.Skip("seed did not converge within the schedule")
	}
	before := tr.Revisions()
	if tr.Update(10000, 100) {
		t.Error("converged tracker published a revision")
	}
	if tr.Revisions() != before {
		t.Errorf("revision count moved after convergence: %d -> %d", before, tr.Revisions())
	}
}

func TestConsumeCorrectionOnce(t *testing.T) {
	tr := New(truth, testLogger(), seeded(3))
	if tr.ConsumeCorrection() {
		t.Error("correction pending before any revision")
	}
	if !tr.Update(3, 1) {
		t.Fatal("no revision at three stations")
	}
	if !tr.ConsumeCorrection() {
		t.Error("no correction pending after revision")
	}
	if tr.ConsumeCorrection() {
		t.Error("correction flag returned true twice")
	}
}

func TestMagnitudeClamped(t *testing.T) {
	extreme := Estimate{Lat: 35, Lon: 139, DepthKm: 10, Magnitude: 9.4}
	for seed := int64(0); seed < 20; seed++ {
		tr := New(extreme, testLogger(), seeded(seed))
		if m := tr.Current().Magnitude; m > 9.5 || m < 1.0 {
			t.Errorf("seed %d: published magnitude %v outside [1, 9.5]", seed, m)
		}
		if d := tr.Current().DepthKm; d < 0 {
			t.Errorf("seed %d: negative depth %v", seed, d)
		}
	}
}
