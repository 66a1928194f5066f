package server

import (
	"context"
	"fmt"
	"time"

	"github.com/joshdurbin/strava-summary/internal/logging"
	"github.com/joshdurbin/strava-summary/internal/report"
	"github.com/joshdurbin/strava-summary/internal/summary"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ptr returns a pointer to the given value - useful for optional fields in structs
func ptr[T any](v T) *T {
	return &v
}

// Number of handlers each register* method adds
const (
	toolCount     = 1
	resourceCount = 2 // the fixed resource and its week_start template
	promptCount   = 1
)

// Summarizer produces a distance summary. Implemented by sync.Service.
type Summarizer interface {
	SummarizeWith(ctx context.Context, now time.Time, settings summary.Settings) (*summary.Summary, error)
	Settings() summary.Settings
}

// Options configures the MCP server
type Options struct {
	// Units is the default display unit. Defaults to miles.
	Units report.Units
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Server wraps the MCP server and the summary source
type Server struct {
	mcp        *mcp.Server
	summarizer Summarizer
	units      report.Units
	now        func() time.Time
}

// MCPServer returns the underlying MCP server
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// New creates a new MCP server exposing the distance summary
func New(summarizer Summarizer, opts Options) *Server {
	logging.Info("MCP server initializing", "name", "strava-summary", "version", "1.0.0")

	if opts.Units == "" {
		opts.Units = report.UnitsMiles
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "strava-summary",
		Version: "1.0.0",
	}, nil)

	s := &Server{
		mcp:        mcpServer,
		summarizer: summarizer,
		units:      opts.Units,
		now:        opts.Now,
	}

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	logging.Info("MCP server initialized", "tools_registered", toolCount, "resources_registered", resourceCount, "prompts_registered", promptCount)
	return s
}

// Run starts the MCP server over stdio transport
func (s *Server) Run(ctx context.Context) error {
	logging.Info("MCP server starting")
	defer logging.Info("MCP server stopped")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	logging.Debug("Registering tool", "name", "get_distance_summary")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "get_distance_summary",
		Description: `Get running and cycling distance totals for this week, last week, this month and last month.

Use when:
- User asks "How far did I run this week?" or "How does this month compare to last month?"
- User wants a quick weekly or monthly training volume check

Parameters:
- week_start (string): "monday" or "sunday". Default: the server's configured week start.
- units (string): "mi" or "km". Default: the server's configured units.

Returns: A row per activity type (Run, Bike) with distances in meters and formatted in the requested units, the rendered table, and week-over-week and month-over-month insights.

Virtual rides count as rides. Activities of other types are not included.

Example: {} or {"week_start": "sunday", "units": "km"}`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Get Distance Summary",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			OpenWorldHint:   ptr(true),
			DestructiveHint: ptr(false),
		},
	}, s.getDistanceSummary)
}

type DistanceSummaryInput struct {
	WeekStart string `json:"week_start,omitempty" jsonschema:"First day of the week. Valid values: 'monday', 'sunday'. Leave empty for the server default."`
	Units     string `json:"units,omitempty" jsonschema:"Display units. Valid values: 'mi' (miles), 'km' (kilometres). Leave empty for the server default."`
}

type DistanceRow struct {
	Label           string  `json:"label"`
	Type            string  `json:"type"`
	ThisWeek        string  `json:"this_week"`
	LastWeek        string  `json:"last_week"`
	ThisMonth       string  `json:"this_month"`
	LastMonth       string  `json:"last_month"`
	ThisWeekMeters  float64 `json:"this_week_meters"`
	LastWeekMeters  float64 `json:"last_week_meters"`
	ThisMonthMeters float64 `json:"this_month_meters"`
	LastMonthMeters float64 `json:"last_month_meters"`
}

type DistanceSummaryOutput struct {
	GeneratedAt string        `json:"generated_at"`
	WeekStart   string        `json:"week_start"`
	Units       string        `json:"units"`
	ThisWeek    string        `json:"this_week"`
	LastWeek    string        `json:"last_week"`
	ThisMonth   string        `json:"this_month"`
	LastMonth   string        `json:"last_month"`
	Rows        []DistanceRow `json:"rows"`
	Table       string        `json:"table"`
	Insights    []Insight     `json:"insights,omitempty"`
}

// Distance summary handler
func (s *Server) getDistanceSummary(ctx context.Context, req *mcp.CallToolRequest, input DistanceSummaryInput) (*mcp.CallToolResult, DistanceSummaryOutput, error) {
	logging.Info("MCP tool call", "tool", "get_distance_summary", "week_start", input.WeekStart, "units", input.Units)
	if logging.IsVerbose() {
		logging.Debug("MCP request params", "tool", "get_distance_summary", "input", logging.ToJSON(input))
	}

	settings, units, err := s.resolve(input.WeekStart, input.Units)
	if err != nil {
		return nil, DistanceSummaryOutput{}, err
	}

	result, err := s.summarizer.SummarizeWith(ctx, s.now(), settings)
	if err != nil {
		logging.Error("get_distance_summary failed", "error", err)
		return nil, DistanceSummaryOutput{}, NewUpstreamError(err)
	}

	return nil, buildOutput(result, units), nil
}

// resolve applies tool arguments on top of the server defaults
func (s *Server) resolve(weekStart, unitsArg string) (summary.Settings, report.Units, error) {
	settings := s.summarizer.Settings()
	if weekStart != "" {
		day, err := summary.ParseWeekStart(weekStart)
		if err != nil {
			return settings, "", NewInvalidInputErrorWithDetails("invalid week_start", err.Error())
		}
		settings.WeekStart = day
	}

	units := s.units
	if unitsArg != "" {
		parsed, err := report.ParseUnits(unitsArg)
		if err != nil {
			return settings, "", NewInvalidInputErrorWithDetails("invalid units", err.Error())
		}
		units = parsed
	}

	return settings, units, nil
}

func buildOutput(result *summary.Summary, units report.Units) DistanceSummaryOutput {
	r := report.Build(result, units)

	output := DistanceSummaryOutput{
		GeneratedAt: r.GeneratedAt.Format(time.RFC3339),
		WeekStart:   r.WeekStart,
		Units:       string(r.Units),
		ThisWeek:    formatRange(r.Windows.CurrentWeek, r.Windows.CurrentWeek.AddDate(0, 0, 6)),
		LastWeek:    formatRange(r.Windows.PreviousWeek, r.Windows.PreviousWeek.AddDate(0, 0, 6)),
		ThisMonth:   formatRange(r.Windows.CurrentMonth, r.Windows.CurrentMonth.AddDate(0, 1, -1)),
		LastMonth:   formatRange(r.Windows.PreviousMonth, r.Windows.PreviousMonth.AddDate(0, 1, -1)),
		Rows:        make([]DistanceRow, 0, len(r.Rows)),
		Table:       report.Table(result, units),
		Insights:    GenerateDistanceInsights(r),
	}

	for _, row := range r.Rows {
		output.Rows = append(output.Rows, DistanceRow{
			Label:           row.Label,
			Type:            string(row.Type),
			ThisWeek:        row.Display.CurrentWeek,
			LastWeek:        row.Display.PreviousWeek,
			ThisMonth:       row.Display.CurrentMonth,
			LastMonth:       row.Display.PreviousMonth,
			ThisWeekMeters:  row.Meters.CurrentWeek,
			LastWeekMeters:  row.Meters.PreviousWeek,
			ThisMonthMeters: row.Meters.CurrentMonth,
			LastMonthMeters: row.Meters.PreviousMonth,
		})
	}

	return output
}

// formatRange formats an inclusive date range
func formatRange(start, end time.Time) string {
	return fmt.Sprintf("%s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
}
