// Package report renders distance summaries as a text table or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/joshdurbin/strava-summary/internal/strava"
	"github.com/joshdurbin/strava-summary/internal/summary"
)

// Format selects the output encoding
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// Units selects the distance unit used for display
type Units string

const (
	UnitsMiles      Units = "mi"
	UnitsKilometers Units = "km"
)

const (
	// MetersPerMile is the divisor used for mile conversion
	MetersPerMile = 1609.3
	// MetersPerKilometer is the divisor used for kilometre conversion
	MetersPerKilometer = 1000.0
)

// ParseFormat accepts "table" or "json"
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatTable, "":
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid output format %q: acceptable values are table and json", s)
	}
}

// ParseUnits accepts "mi" or "km" along with their long names
func ParseUnits(s string) (Units, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mi", "mile", "miles", "":
		return UnitsMiles, nil
	case "km", "kilometer", "kilometers", "kilometre", "kilometres":
		return UnitsKilometers, nil
	default:
		return "", fmt.Errorf("invalid units %q: acceptable values are mi and km", s)
	}
}

// Options controls rendering
type Options struct {
	Format Format
	Units  Units
}

// DistanceToMiles formats meters as miles with one decimal
func DistanceToMiles(meters float64) string {
	return fmt.Sprintf("%.1f mi", meters/MetersPerMile)
}

// DistanceToKilometers formats meters as kilometres with one decimal
func DistanceToKilometers(meters float64) string {
	return fmt.Sprintf("%.1f km", meters/MetersPerKilometer)
}

// FormatDistance formats meters in the given units, defaulting to miles
func FormatDistance(meters float64, units Units) string {
	if units == UnitsKilometers {
		return DistanceToKilometers(meters)
	}
	return DistanceToMiles(meters)
}

// rows lists the table rows in display order
var rows = []struct {
	Label string
	Type  strava.ActivityType
}{
	{Label: "Run", Type: strava.Run},
	{Label: "Bike", Type: strava.Ride},
}

// DisplayBuckets holds formatted distances for one row
type DisplayBuckets struct {
	CurrentWeek   string `json:"current_week"`
	PreviousWeek  string `json:"previous_week"`
	CurrentMonth  string `json:"current_month"`
	PreviousMonth string `json:"previous_month"`
}

// Row is one activity type in the report
type Row struct {
	Label   string              `json:"label"`
	Type    strava.ActivityType `json:"type"`
	Meters  summary.Buckets     `json:"meters"`
	Display DisplayBuckets      `json:"display"`
}

// Report is the structured form of a rendered summary
type Report struct {
	GeneratedAt time.Time       `json:"generated_at"`
	WeekStart   string          `json:"week_start"`
	Units       Units           `json:"units"`
	Windows     summary.Windows `json:"windows"`
	Rows        []Row           `json:"rows"`
}

// Build converts a summary into report rows. Types with no activities are
// reported as zero.
func Build(s *summary.Summary, units Units) Report {
	if units == "" {
		units = UnitsMiles
	}

	r := Report{Units: units, Rows: make([]Row, 0, len(rows))}
	if s != nil {
		r.GeneratedAt = s.GeneratedAt
		r.WeekStart = strings.ToLower(s.WeekStart.String())
		r.Windows = s.Windows
	}

	for _, row := range rows {
		b := s.Get(row.Type)
		r.Rows = append(r.Rows, Row{
			Label:  row.Label,
			Type:   row.Type,
			Meters: b,
			Display: DisplayBuckets{
				CurrentWeek:   FormatDistance(b.CurrentWeek, units),
				PreviousWeek:  FormatDistance(b.PreviousWeek, units),
				CurrentMonth:  FormatDistance(b.CurrentMonth, units),
				PreviousMonth: FormatDistance(b.PreviousMonth, units),
			},
		})
	}

	return r
}

// Table renders the summary as a text table
func Table(s *summary.Summary, units Units) string {
	r := Build(s, units)

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Type", "This week", "Last week", "This month", "Last month"})
	for _, row := range r.Rows {
		tw.AppendRow(table.Row{
			row.Label,
			row.Display.CurrentWeek,
			row.Display.PreviousWeek,
			row.Display.CurrentMonth,
			row.Display.PreviousMonth,
		})
	}

	configs := make([]table.ColumnConfig, 0, 4)
	for col := 2; col <= 5; col++ {
		configs = append(configs, table.ColumnConfig{
			Number:      col,
			Align:       text.AlignRight,
			AlignHeader: text.AlignRight,
		})
	}
	tw.SetColumnConfigs(configs)

	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)

	return tw.Render()
}

// Render writes the summary to w in the requested format
func Render(w io.Writer, s *summary.Summary, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		data, err := json.MarshalIndent(Build(s, opts.Units), "", "  ")
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatTable, "":
		_, err := fmt.Fprintln(w, Table(s, opts.Units))
		return err
	default:
		return fmt.Errorf("unsupported output format %q", opts.Format)
	}
}
