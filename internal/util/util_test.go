package util

import "testing"

func TestTrimQuotes(t *testing.T) {
	if got := TrimQuotes(`"Tokyo"`); got != "Tokyo" {
		t.Errorf("TrimQuotes = %q, want %q", got, "Tokyo")
	}
	if got := TrimQuotes("bare"); got != "bare" {
		t.Errorf("TrimQuotes = %q, want %q", got, "bare")
	}
}

func TestFixEscapeQuotes(t *testing.T) {
	if got := FixEscapeQuotes(`say ""hello""`); got != `say "hello"` {
		t.Errorf("FixEscapeQuotes = %q", got)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want float64
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
		{0, 0, 10, 0},
		{10, 0, 10, 10},
		{-3.5, -3, 7.5, -3},
	}
	for _, tt := range tests {
		if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestLerp(t *testing.T) {
	if got := Lerp(0, 10, 0.5); got != 5 {
		t.Errorf("Lerp(0, 10, 0.5) = %v, want 5", got)
	}
	if got := Lerp(2, 2, 0.9); got != 2 {
		t.Errorf("Lerp(2, 2, 0.9) = %v, want 2", got)
	}
	if got := Lerp(-4, 4, 1); got != 4 {
		t.Errorf("Lerp(-4, 4, 1) = %v, want 4", got)
	}
}

func TestLerpColorChannel(t *testing.T) {
	if got := LerpColorChannel(0, 200, 0.5); got != 100 {
		t.Errorf("LerpColorChannel(0, 200, 0.5) = %d, want 100", got)
	}
	if got := LerpColorChannel(255, 255, 0.3); got != 255 {
		t.Errorf("LerpColorChannel(255, 255, 0.3) = %d, want 255", got)
	}
}
