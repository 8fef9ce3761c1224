package domain

import (
	"fmt"
	"strings"
	"time"
)

const noDataText = "No detailed data decoded."

var phenomenonText = map[Phenomenon]string{
	PhenomenonLightRain:  "Light rain",
	PhenomenonHeavyRain:  "Heavy rain",
	PhenomenonRain:       "Rain",
	PhenomenonRecentRain: "Recent rain",
}

var coverageText = map[CloudCoverage]string{
	CoverageFew:       "Few",
	CoverageScattered: "Scattered",
	CoverageBroken:    "Broken",
	CoverageOvercast:  "Overcast",
}

// RenderOptions controls how reports are rendered as text.
type RenderOptions struct {
	// LocalWindLabel names the local sensor, e.g. "Mt Kaukau". Defaults to the
	// sensor name as it appears in the report.
	LocalWindLabel string
	// Location is the zone issue times are shown in. Defaults to UTC.
	Location *time.Location
}

// RenderDecoded renders the decoded groups as labelled lines, one group per
// line and list groups (rain, clouds) as indented bullets.
func RenderDecoded(d DecodedReport, opts RenderOptions) string {
	var b strings.Builder

	if d.Wind != nil {
		fmt.Fprintf(&b, "Wind: %s\n", formatWind(d.Wind.DirectionDeg, d.Wind.SpeedKt, d.Wind.GustKt, d.Wind.Severity))
	}
	if d.Visibility != nil {
		fmt.Fprintf(&b, "Visibility: %d metres (%.1f km)\n", d.Visibility.Meters, d.Visibility.Kilometers())
	}
	if len(d.Weather) > 0 {
		b.WriteString("Rain:\n")
		for _, p := range d.Weather {
			fmt.Fprintf(&b, "  • %s\n", phenomenonText[p])
		}
	}
	if d.Clouds != nil {
		b.WriteString("Clouds:\n")
		if d.Clouds.NoCloudsDetected {
			b.WriteString("  • No clouds detected\n")
		}
		for _, l := range d.Clouds.Layers {
			fmt.Fprintf(&b, "  • %s at %d ft\n", coverageText[l.Coverage], l.HeightFt)
		}
	}
	if d.TemperatureC != nil && d.DewPointC != nil {
		fmt.Fprintf(&b, "Temperature: %d°C, Dew Point: %d°C\n", *d.TemperatureC, *d.DewPointC)
	}
	if d.QNHHpa != nil {
		fmt.Fprintf(&b, "QNH: %d hPa\n", *d.QNHHpa)
	}
	if sw := d.StationWind; sw != nil {
		label := opts.LocalWindLabel
		if label == "" {
			label = sw.Station
		}
		fmt.Fprintf(&b, "%s Wind: %s\n", label, formatWind(sw.DirectionDeg, sw.SpeedKt, nil, sw.Severity))
	}

	if b.Len() == 0 {
		return noDataText + "\n"
	}
	return b.String()
}

// RenderReport renders a full report: raw text, source, issue time and the
// decoded groups.
func RenderReport(r Report, opts RenderOptions) string {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s METAR\n", r.Station)
	if r.Raw == "" {
		b.WriteString("No METAR received.\n")
	} else {
		fmt.Fprintf(&b, "%s\n", r.Raw)
	}
	fmt.Fprintf(&b, "Source: %s\n", r.SourceLabel())
	if !r.IssuedAt.IsZero() {
		fmt.Fprintf(&b, "Issued: %s\n", formatLocalTime(r.IssuedAt, loc))
	}
	b.WriteString("\n")
	b.WriteString(RenderDecoded(r.Decoded, opts))
	return b.String()
}

func formatWind(dir, speed int, gust *int, sev WindSeverity) string {
	s := fmt.Sprintf("%d° (%s) at %d knots", dir, CompassPoint(dir), speed)
	if gust != nil {
		s += fmt.Sprintf(" gusting %d", *gust)
	}
	if sev != "" && sev != SeverityNone {
		s += fmt.Sprintf(" [%s]", sev)
	}
	return s
}

func formatLocalTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02/01/2006, 15:04:05 MST")
}
