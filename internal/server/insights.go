package server

import (
	"fmt"
	"math"

	"github.com/joshdurbin/strava-summary/internal/report"
)

// Insight represents a single AI-friendly insight about the data
type Insight struct {
	Type    string `json:"type"`    // e.g., "trend", "achievement", "warning"
	Message string `json:"message"` // Human-readable insight
}

// GenerateProgressInsights compares a current distance against the previous
// period. A previous value of zero yields an insight only when there is new
// distance to report.
func GenerateProgressInsights(currentMeters, previousMeters float64, label, period string, units report.Units) []Insight {
	var insights []Insight

	if previousMeters == 0 {
		if currentMeters > 0 {
			insights = append(insights, Insight{
				Type: "achievement",
				Message: fmt.Sprintf("%s: %s this %s after none the %s before",
					label, report.FormatDistance(currentMeters, units), period, period),
			})
		}
		return insights
	}

	changePercent := ((currentMeters - previousMeters) / previousMeters) * 100
	absChange := math.Abs(changePercent)

	if absChange < 5 {
		insights = append(insights, Insight{
			Type:    "trend",
			Message: fmt.Sprintf("%s distance this %s is steady with last %s (%.1f%% change)", label, period, period, changePercent),
		})
	} else if changePercent > 0 {
		intensity := "up"
		if absChange > 20 {
			intensity = "well up"
		}
		insights = append(insights, Insight{
			Type: "achievement",
			Message: fmt.Sprintf("%s distance this %s is %s on last %s (%s vs %s, +%.0f%%)",
				label, period, intensity, period,
				report.FormatDistance(currentMeters, units), report.FormatDistance(previousMeters, units), absChange),
		})
	} else {
		insights = append(insights, Insight{
			Type: "trend",
			Message: fmt.Sprintf("%s distance this %s is behind last %s so far (%s vs %s, -%.0f%%)",
				label, period, period,
				report.FormatDistance(currentMeters, units), report.FormatDistance(previousMeters, units), absChange),
		})
	}

	return insights
}

// GenerateDistanceInsights produces week-over-week and month-over-month
// insights for every row of a report
func GenerateDistanceInsights(r report.Report) []Insight {
	var insights []Insight
	for _, row := range r.Rows {
		insights = append(insights, GenerateProgressInsights(row.Meters.CurrentWeek, row.Meters.PreviousWeek, row.Label, "week", r.Units)...)
		insights = append(insights, GenerateProgressInsights(row.Meters.CurrentMonth, row.Meters.PreviousMonth, row.Label, "month", r.Units)...)
	}
	return insights
}
