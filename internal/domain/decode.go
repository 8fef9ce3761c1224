package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultLocalWindStation is the local sensor reported in Wellington (NZWN) METARs.
const DefaultLocalWindStation = "KAUKAU"

var (
	// windRe matches the surface wind group, e.g. "28015KT" or "28015G25KT".
	windRe = regexp.MustCompile(`(\d{3})(\d{2})(G(\d{2}))?KT`)

	// visibilityRe matches the first standalone four-digit token, e.g. "9999".
	visibilityRe = regexp.MustCompile(`\b(\d{4})\b`)

	// plainRainRe matches RA as a whole token (not part of RERA or SHRA).
	plainRainRe = regexp.MustCompile(`\bRA\b`)

	// cloudRe matches a coverage code followed by the base in hundreds of feet.
	cloudRe = regexp.MustCompile(`(FEW|SCT|BKN|OVC)(\d{3})`)

	// tempRe matches the space-delimited temperature/dew point pair, e.g. " M02/M05 ".
	tempRe = regexp.MustCompile(` (M?\d{2})/(M?\d{2}) `)

	// qnhRe matches the altimeter setting in hectopascals, e.g. "Q1015".
	qnhRe = regexp.MustCompile(`Q(\d{4})`)
)

var coverageCodes = map[string]CloudCoverage{
	"FEW": CoverageFew,
	"SCT": CoverageScattered,
	"BKN": CoverageBroken,
	"OVC": CoverageOvercast,
}

// Rule is a named extraction rule. Apply reads the raw text and fills in the
// one field of the report it owns; rules never read each other's output.
type Rule struct {
	Name  string
	Apply func(raw string, out *DecodedReport)
}

// Decoder turns raw METAR text into a DecodedReport.
type Decoder struct {
	rules []Rule
}

// NewDecoder builds a decoder whose local wind rule looks for the given sensor
// name. An empty name falls back to DefaultLocalWindStation.
func NewDecoder(localWindStation string) *Decoder {
	localWindStation = strings.TrimSpace(localWindStation)
	if localWindStation == "" {
		localWindStation = DefaultLocalWindStation
	}
	stationRe := regexp.MustCompile(regexp.QuoteMeta(localWindStation) + `\s+(\d{3})(\d{2})(G(\d{2}))?KT`)

	return &Decoder{rules: []Rule{
		{Name: "wind", Apply: func(raw string, out *DecodedReport) { out.Wind = extractWind(raw) }},
		{Name: "visibility", Apply: func(raw string, out *DecodedReport) { out.Visibility = extractVisibility(raw) }},
		{Name: "weather", Apply: func(raw string, out *DecodedReport) { out.Weather = extractWeather(raw) }},
		{Name: "clouds", Apply: func(raw string, out *DecodedReport) { out.Clouds = extractClouds(raw) }},
		{Name: "temperature", Apply: func(raw string, out *DecodedReport) {
			out.TemperatureC, out.DewPointC = extractTemperature(raw)
		}},
		{Name: "pressure", Apply: func(raw string, out *DecodedReport) { out.QNHHpa = extractQNH(raw) }},
		{Name: "station_wind", Apply: func(raw string, out *DecodedReport) {
			out.StationWind = extractStationWind(stationRe, localWindStation, raw)
		}},
	}}
}

var defaultDecoder = NewDecoder(DefaultLocalWindStation)

// Decode decodes raw with the default local wind station. It never fails:
// empty or unrecognisable input yields a report with every field absent.
func Decode(raw string) DecodedReport {
	return defaultDecoder.Decode(raw)
}

// Decode runs every rule against raw and returns the assembled report.
func (d *Decoder) Decode(raw string) DecodedReport {
	var out DecodedReport
	if raw == "" {
		return out
	}
	for _, r := range d.rules {
		r.Apply(raw, &out)
	}
	return out
}

// Rules returns the rule names in evaluation order.
func (d *Decoder) Rules() []string {
	names := make([]string, len(d.rules))
	for i, r := range d.rules {
		names[i] = r.Name
	}
	return names
}

func extractWind(raw string) *Wind {
	m := windRe.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	w := &Wind{
		DirectionDeg: atoi(m[1]),
		SpeedKt:      atoi(m[2]),
	}
	if m[4] != "" {
		gust := atoi(m[4])
		w.GustKt = &gust
		w.Severity = ClassifyWind(gust)
	} else {
		w.Severity = ClassifyWind(w.SpeedKt)
	}
	return w
}

func extractVisibility(raw string) *Visibility {
	m := visibilityRe.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	return &Visibility{Meters: atoi(m[1])}
}

// extractWeather records at most one of light, heavy or plain rain (in that
// priority) and, independently, recent rain.
func extractWeather(raw string) []Phenomenon {
	var out []Phenomenon
	switch {
	case strings.Contains(raw, "-RA"):
		out = append(out, PhenomenonLightRain)
	case strings.Contains(raw, "+RA"):
		out = append(out, PhenomenonHeavyRain)
	case plainRainRe.MatchString(raw):
		out = append(out, PhenomenonRain)
	}
	if strings.Contains(raw, "RERA") {
		out = append(out, PhenomenonRecentRain)
	}
	return out
}

func extractClouds(raw string) *Clouds {
	matches := cloudRe.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		if strings.Contains(raw, "NCD") {
			return &Clouds{NoCloudsDetected: true}
		}
		return nil
	}
	layers := make([]CloudLayer, 0, len(matches))
	for _, m := range matches {
		layers = append(layers, CloudLayer{
			Coverage: coverageCodes[m[1]],
			HeightFt: atoi(m[2]) * 100,
		})
	}
	return &Clouds{Layers: layers}
}

func extractTemperature(raw string) (*int, *int) {
	m := tempRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, nil
	}
	temp, okT := ParseTemperature(m[1])
	dew, okD := ParseTemperature(m[2])
	if !okT || !okD {
		return nil, nil
	}
	return &temp, &dew
}

func extractQNH(raw string) *int {
	m := qnhRe.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	v := atoi(m[1])
	return &v
}

// extractStationWind reads the named sensor's group. The gust, if any, is
// matched but neither stored nor used for severity.
func extractStationWind(re *regexp.Regexp, station, raw string) *StationWind {
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	speed := atoi(m[2])
	return &StationWind{
		Station:      station,
		DirectionDeg: atoi(m[1]),
		SpeedKt:      speed,
		Severity:     ClassifyWind(speed),
	}
}

// atoi parses a digits-only regexp capture.
func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
