// Package jma defines the Japan Meteorological Agency seismic intensity
// scale and its standard display palette.
package jma

// Scale is a discrete JMA seismic intensity class. The zero value is
// Scale0. Classes are ordered from calm to severe, so ordinary < and >
// comparisons are meaningful.
type Scale int

const (
	Scale0 Scale = iota
	Scale1
	Scale2
	Scale3
	Scale4
	Scale5Lower
	Scale5Upper
	Scale6Lower
	Scale6Upper
	Scale7
)

// Scales lists all classes in ascending order.
var Scales = []Scale{
	Scale0, Scale1, Scale2, Scale3, Scale4,
	Scale5Lower, Scale5Upper, Scale6Lower, Scale6Upper, Scale7,
}

func (s Scale) String() string {
	switch s {
	case Scale0:
		return "0"
	case Scale1:
		return "1"
	case Scale2:
		return "2"
	case Scale3:
		return "3"
	case Scale4:
		return "4"
	case Scale5Lower:
		return "5-"
	case Scale5Upper:
		return "5+"
	case Scale6Lower:
		return "6-"
	case Scale6Upper:
		return "6+"
	case Scale7:
		return "7"
	default:
		return "unknown"
	}
}

// Color is an 8-bit RGB triple.
type Color struct {
	R, G, B uint8
}

// DefaultColors is the standard JMA display palette, ordered calm to severe.
var DefaultColors = map[Scale]Color{
	Scale0:      {200, 200, 200},
	Scale1:      {100, 150, 200},
	Scale2:      {50, 180, 50},
	Scale3:      {200, 200, 0},
	Scale4:      {255, 150, 0},
	Scale5Lower: {255, 80, 0},
	Scale5Upper: {255, 0, 0},
	Scale6Lower: {180, 0, 50},
	Scale6Upper: {150, 0, 100},
	Scale7:      {100, 0, 100},
}

// ColorFor returns the palette color for a class. Unknown classes map to
// the Scale0 color.
func ColorFor(s Scale) Color {
	if c, ok := DefaultColors[s]; ok {
		return c
	}
	return DefaultColors[Scale0]
}
