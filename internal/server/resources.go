package server

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/joshdurbin/strava-summary/internal/logging"
	"github.com/joshdurbin/strava-summary/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	distanceSummaryURI         = "strava://summary/distance"
	distanceSummaryURITemplate = "strava://summary/distance/{week_start}"
)

// registerResources registers all MCP resources for the server
func (s *Server) registerResources() {
	logging.Debug("Registering MCP resources")

	// Static resource: distance summary with the server defaults
	s.mcp.AddResource(&mcp.Resource{
		URI:         distanceSummaryURI,
		Name:        "distance_summary",
		Description: "Run and ride distance for this week, last week, this month and last month",
		MIMEType:    "application/json",
	}, s.readDistanceSummary)

	// Resource template: distance summary for a given week start
	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: distanceSummaryURITemplate,
		Name:        "distance_summary_by_week_start",
		Description: "Distance summary with weeks starting on 'monday' or 'sunday'",
		MIMEType:    "application/json",
	}, s.readDistanceSummary)

	logging.Debug("MCP resources registered", "count", resourceCount)
}

// readDistanceSummary returns the summary report as JSON. A trailing path
// segment after the base URI selects the week start.
func (s *Server) readDistanceSummary(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI

	weekStart := ""
	if rest, ok := strings.CutPrefix(uri, distanceSummaryURI+"/"); ok {
		if rest == "" || strings.Contains(rest, "/") {
			return nil, NewInvalidInputError("invalid distance summary URI format")
		}
		weekStart = rest
	} else if uri != distanceSummaryURI {
		return nil, NewInvalidInputErrorWithDetails("unknown resource", uri)
	}

	logging.Info("MCP resource read", "resource", "distance_summary", "week_start", weekStart)

	settings, units, err := s.resolve(weekStart, "")
	if err != nil {
		return nil, err
	}

	result, err := s.summarizer.SummarizeWith(ctx, s.now(), settings)
	if err != nil {
		logging.Error("readDistanceSummary failed", "error", err)
		return nil, NewUpstreamError(err)
	}

	jsonData, err := json.MarshalIndent(report.Build(result, units), "", "  ")
	if err != nil {
		return nil, NewInternalErrorWithCause("failed to marshal distance summary", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(jsonData),
			},
		},
	}, nil
}
