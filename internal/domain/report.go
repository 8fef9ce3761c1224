package domain

import "math"

// WindSeverity is the display tier of a wind speed.
type WindSeverity string

const (
	SeverityNone   WindSeverity = "none"
	SeverityBreezy WindSeverity = "breezy"
	SeverityStrong WindSeverity = "strong"
	SeveritySevere WindSeverity = "severe"
)

// Phenomenon is a present or recent precipitation phenomenon.
type Phenomenon string

const (
	PhenomenonLightRain  Phenomenon = "light_rain"
	PhenomenonHeavyRain  Phenomenon = "heavy_rain"
	PhenomenonRain       Phenomenon = "rain"
	PhenomenonRecentRain Phenomenon = "recent_rain"
)

// CloudCoverage is the amount of sky covered by a cloud layer.
type CloudCoverage string

const (
	CoverageFew       CloudCoverage = "few"
	CoverageScattered CloudCoverage = "scattered"
	CoverageBroken    CloudCoverage = "broken"
	CoverageOvercast  CloudCoverage = "overcast"
)

// Wind is the surface wind group.
type Wind struct {
	DirectionDeg int          `json:"direction_deg"`
	SpeedKt      int          `json:"speed_kt"`
	GustKt       *int         `json:"gust_kt,omitempty"`
	Severity     WindSeverity `json:"severity"`
}

// Compass returns the eight-point compass direction the wind blows from.
func (w Wind) Compass() string {
	return CompassPoint(w.DirectionDeg)
}

// Visibility is the prevailing horizontal visibility.
type Visibility struct {
	Meters int `json:"meters"`
}

// Kilometers returns the visibility in km truncated to one decimal place,
// so 9999 m reads 9.9 km rather than rounding up to 10.
func (v Visibility) Kilometers() float64 {
	return math.Floor(float64(v.Meters)/100) / 10
}

// CloudLayer is one reported cloud layer.
type CloudLayer struct {
	Coverage CloudCoverage `json:"coverage"`
	HeightFt int           `json:"height_ft"`
}

// Clouds holds the cloud layers in the order they appear in the report, or
// NoCloudsDetected when the report carries NCD and no layers.
type Clouds struct {
	Layers           []CloudLayer `json:"layers,omitempty"`
	NoCloudsDetected bool         `json:"no_clouds_detected,omitempty"`
}

// StationWind is a wind reading from a named local sensor embedded in the report.
type StationWind struct {
	Station      string       `json:"station"`
	DirectionDeg int          `json:"direction_deg"`
	SpeedKt      int          `json:"speed_kt"`
	Severity     WindSeverity `json:"severity"`
}

// Compass returns the eight-point compass direction of the reading.
func (w StationWind) Compass() string {
	return CompassPoint(w.DirectionDeg)
}

// DecodedReport is the structured form of one METAR. Every field is nil (or
// empty) when its group was not found in the text.
type DecodedReport struct {
	Wind         *Wind        `json:"wind,omitempty"`
	Visibility   *Visibility  `json:"visibility,omitempty"`
	Weather      []Phenomenon `json:"weather,omitempty"`
	Clouds       *Clouds      `json:"clouds,omitempty"`
	TemperatureC *int         `json:"temperature_c,omitempty"`
	DewPointC    *int         `json:"dew_point_c,omitempty"`
	QNHHpa       *int         `json:"qnh_hpa,omitempty"`
	StationWind  *StationWind `json:"station_wind,omitempty"`
}

// IsEmpty reports whether no group was decoded.
func (d DecodedReport) IsEmpty() bool {
	return d.Wind == nil && d.Visibility == nil && len(d.Weather) == 0 && d.Clouds == nil &&
		d.TemperatureC == nil && d.DewPointC == nil && d.QNHHpa == nil && d.StationWind == nil
}
