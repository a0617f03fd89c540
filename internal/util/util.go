// Package util provides common numeric and string helpers used across the
// simulation.
package util

import "strings"

// TrimQuotes removes surrounding double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// Clamp limits v to the closed interval [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp linearly interpolates between a and b by t in [0,1].
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// LerpColorChannel interpolates a single 8-bit color channel.
func LerpColorChannel(a, b uint8, t float64) uint8 {
	return uint8(Lerp(float64(a), float64(b), t))
}
