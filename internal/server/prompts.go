package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/joshdurbin/strava-summary/internal/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerPrompts registers all MCP prompts for the server
func (s *Server) registerPrompts() {
	logging.Debug("Registering MCP prompts")

	s.mcp.AddPrompt(&mcp.Prompt{
		Name:        "distance_review",
		Description: "Review weekly and monthly run and ride volume with comparisons to the previous period",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "week_start",
				Description: "First day of the week: 'monday' or 'sunday'",
				Required:    false,
			},
			{
				Name:        "units",
				Description: "Distance units: 'mi' or 'km'",
				Required:    false,
			},
		},
	}, s.distanceReviewPrompt)

	logging.Debug("MCP prompts registered", "count", promptCount)
}

// distanceReviewPrompt generates a prompt for reviewing training volume
func (s *Server) distanceReviewPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	weekStart := strings.ToLower(s.summarizer.Settings().WeekStart.String())
	units := string(s.units)
	if req.Params.Arguments != nil {
		if w, ok := req.Params.Arguments["week_start"]; ok && w != "" {
			weekStart = w
		}
		if u, ok := req.Params.Arguments["units"]; ok && u != "" {
			units = u
		}
	}

	if _, _, err := s.resolve(weekStart, units); err != nil {
		return nil, err
	}

	logging.Info("MCP prompt requested", "prompt", "distance_review", "week_start", weekStart, "units", units)

	promptText := fmt.Sprintf(`Please review my recent running and cycling volume.

Use the **get_distance_summary** tool with week_start="%s" and units="%s" to get this week, last week, this month and last month totals.

Then provide:
- **Summary**: Run and ride distance for each period
- **Week over week**: How this week compares to last week, keeping in mind this week may not be over yet
- **Month over month**: How this month compares to last month so far
- **Recommendations**: Suggestions for the rest of the week based on the trend

Please be specific with numbers and use the actual data from the tool.`, weekStart, units)

	return &mcp.GetPromptResult{
		Description: "Distance review prompt",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText},
			},
		},
	}, nil
}
