package domain

import (
	"math"
	"strconv"
	"strings"
)

var compassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// ClassifyWind maps a speed in knots to a display tier. Each threshold is
// inclusive at its lower bound:
//   - <25kt none
//   - <40kt breezy
//   - <55kt strong
//   - otherwise severe
func ClassifyWind(speedKt int) WindSeverity {
	switch {
	case speedKt >= 55:
		return SeveritySevere
	case speedKt >= 40:
		return SeverityStrong
	case speedKt >= 25:
		return SeverityBreezy
	default:
		return SeverityNone
	}
}

// CompassPoint returns the eight-point compass direction nearest to deg.
// 360 wraps to N. Callers pass directions from the wind group, 0 to 360.
func CompassPoint(deg int) string {
	i := int(math.Round(float64(deg)/45)) % 8
	if i < 0 {
		i += 8
	}
	return compassPoints[i]
}

// ParseTemperature parses a METAR temperature, two digits with an optional
// M prefix for negative values: "M05" -> -5, "07" -> 7.
func ParseTemperature(s string) (int, bool) {
	negative := strings.HasPrefix(s, "M")
	digits := strings.TrimPrefix(s, "M")
	if len(digits) != 2 || !isDigits(digits) {
		return 0, false
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	if negative {
		return -v, true
	}
	return v, true
}
