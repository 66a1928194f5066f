package report

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/joshdurbin/strava-summary/internal/strava"
	"github.com/joshdurbin/strava-summary/internal/summary"
)

func TestDistanceToMiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		meters float64
		want   string
	}{
		{meters: 0, want: "0.0 mi"},
		{meters: 1609.3, want: "1.0 mi"},
		{meters: 5000, want: "3.1 mi"},
		{meters: 42195, want: "26.2 mi"},
		{meters: 160930, want: "100.0 mi"},
	}

	for _, tt := range tests {
		if got := DistanceToMiles(tt.meters); got != tt.want {
			t.Errorf("DistanceToMiles(%v) = %q, want %q", tt.meters, got, tt.want)
		}
	}
}

func TestDistanceToMilesMonotonic(t *testing.T) {
	t.Parallel()

	prev := -1.0
	for meters := 0.0; meters <= 50000; meters += 37.5 {
		got := DistanceToMiles(meters)
		miles, err := strconv.ParseFloat(strings.TrimSuffix(got, " mi"), 64)
		if err != nil {
			t.Fatalf("could not parse %q: %v", got, err)
		}
		if miles < prev {
			t.Fatalf("DistanceToMiles(%v) = %q decreased from %.1f", meters, got, prev)
		}
		prev = miles
	}
}

func TestFormatDistance(t *testing.T) {
	t.Parallel()

	if got := FormatDistance(5000, UnitsKilometers); got != "5.0 km" {
		t.Errorf("expected '5.0 km', got %q", got)
	}
	if got := FormatDistance(1609.3, UnitsMiles); got != "1.0 mi" {
		t.Errorf("expected '1.0 mi', got %q", got)
	}
	if got := FormatDistance(1609.3, ""); got != "1.0 mi" {
		t.Errorf("expected miles by default, got %q", got)
	}
}

func TestParseFormatAndUnits(t *testing.T) {
	t.Parallel()

	formats := map[string]Format{"table": FormatTable, "JSON": FormatJSON, "": FormatTable}
	for input, want := range formats {
		got, err := ParseFormat(input)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}

	units := map[string]Units{"mi": UnitsMiles, "miles": UnitsMiles, "KM": UnitsKilometers, "kilometres": UnitsKilometers}
	for input, want := range units {
		got, err := ParseUnits(input)
		if err != nil || got != want {
			t.Errorf("ParseUnits(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := ParseUnits("furlongs"); err == nil {
		t.Error("expected error for unknown units")
	}
}

func testSummary() *summary.Summary {
	return &summary.Summary{
		GeneratedAt: time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC),
		WeekStart:   time.Monday,
		Totals: map[strava.ActivityType]summary.Buckets{
			strava.Run: {CurrentWeek: 5000, PreviousWeek: 0, CurrentMonth: 5000, PreviousMonth: 0},
		},
	}
}

func TestRenderTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Render(&buf, testSummary(), Options{Format: FormatTable, Units: UnitsMiles}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"Type", "This week", "Last week", "This month", "Last month", "Run", "Bike", "3.1 mi"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}

	runLine, bikeLine := "", ""
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(line, "Run"):
			runLine = line
		case strings.Contains(line, "Bike"):
			bikeLine = line
		}
	}
	if strings.Count(runLine, "3.1 mi") != 2 || strings.Count(runLine, "0.0 mi") != 2 {
		t.Errorf("unexpected Run row: %q", runLine)
	}
	// Ride is absent from the totals and renders as zeros
	if strings.Count(bikeLine, "0.0 mi") != 4 {
		t.Errorf("expected four zero cells in Bike row, got %q", bikeLine)
	}
	if strings.Index(out, "Run") > strings.Index(out, "Bike") {
		t.Error("expected Run row before Bike row")
	}
}

func TestRenderTableEmptySummary(t *testing.T) {
	t.Parallel()

	for _, s := range []*summary.Summary{nil, {Totals: map[strava.ActivityType]summary.Buckets{}}} {
		var buf bytes.Buffer
		if err := Render(&buf, s, Options{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := strings.Count(buf.String(), "0.0 mi"); n != 8 {
			t.Errorf("expected 8 zero cells, got %d in:\n%s", n, buf.String())
		}
	}
}

func TestRenderTableKilometers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Render(&buf, testSummary(), Options{Format: FormatTable, Units: UnitsKilometers}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "5.0 km") {
		t.Errorf("expected kilometre output, got:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), " mi") {
		t.Errorf("expected no mile output, got:\n%s", buf.String())
	}
}

func TestRenderJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Render(&buf, testSummary(), Options{Format: FormatJSON, Units: UnitsMiles}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got Report
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}

	if got.WeekStart != "monday" {
		t.Errorf("expected week_start monday, got %q", got.WeekStart)
	}
	if got.Units != UnitsMiles {
		t.Errorf("expected units mi, got %q", got.Units)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got.Rows))
	}

	run := got.Rows[0]
	if run.Label != "Run" || run.Type != strava.Run {
		t.Errorf("unexpected first row: %+v", run)
	}
	if run.Meters.CurrentWeek != 5000 || run.Meters.CurrentMonth != 5000 {
		t.Errorf("unexpected Run meters: %+v", run.Meters)
	}
	if run.Display.CurrentWeek != "3.1 mi" || run.Display.PreviousWeek != "0.0 mi" {
		t.Errorf("unexpected Run display: %+v", run.Display)
	}

	bike := got.Rows[1]
	if bike.Label != "Bike" || bike.Type != strava.Ride || bike.Meters != (summary.Buckets{}) {
		t.Errorf("unexpected Bike row: %+v", bike)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Render(&buf, testSummary(), Options{Format: "yaml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}
