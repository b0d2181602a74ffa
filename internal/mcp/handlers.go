package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/birads-report-server/internal/domain"
	"github.com/birads-report-server/internal/service"
)

// AnalyzeReportParams defines parameters for the analyze_report tool.
type AnalyzeReportParams struct {
	ReportText string `json:"report_text"`
}

// GetGuidelineParams defines parameters for the get_birads_guideline tool.
type GetGuidelineParams struct {
	Code string `json:"code"`
}

// FindSimilarCasesParams defines parameters for the find_similar_cases tool.
type FindSimilarCasesParams struct {
	ReportText string `json:"report_text"`
	TopN       int    `json:"top_n,omitempty"`
}

// FindSimilarCasesResult is the structured result for find_similar_cases.
type FindSimilarCasesResult struct {
	Entities *domain.Entities      `json:"entities"`
	Matches  []service.SimilarCase `json:"matches"`
}

func (s *Server) handleAnalyzeReport(ctx context.Context, req *mcp.CallToolRequest, params AnalyzeReportParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "analyze_report").Info("Tool invoked")

	if strings.TrimSpace(params.ReportText) == "" {
		return toolError("report_text is required"), nil, nil
	}

	result, err := s.analyzer.Process(params.ReportText)
	if err != nil {
		return toolError(fmt.Sprintf("analysis failed: %v", err)), nil, nil
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding analysis result: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(text)},
		},
	}, result, nil
}

func (s *Server) handleGetGuideline(ctx context.Context, req *mcp.CallToolRequest, params GetGuidelineParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "get_birads_guideline").Info("Tool invoked")

	code := domain.ClassificationCode(strings.ToUpper(strings.TrimSpace(params.Code)))
	if code == "" {
		return toolError("code is required"), nil, nil
	}

	guideline, ok := s.knowledge.Lookup(code)
	if !ok {
		return toolError(fmt.Sprintf("unknown BI-RADS code %q", params.Code)), nil, nil
	}

	text, err := json.MarshalIndent(guideline, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding guideline: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(text)},
		},
	}, guideline, nil
}

func (s *Server) handleFindSimilarCases(ctx context.Context, req *mcp.CallToolRequest, params FindSimilarCasesParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "find_similar_cases").Info("Tool invoked")

	if strings.TrimSpace(params.ReportText) == "" {
		return toolError("report_text is required"), nil, nil
	}
	if s.matcher == nil {
		return toolError("similarity search is not configured"), nil, nil
	}

	analysis, err := s.analyzer.Process(params.ReportText)
	if err != nil {
		return toolError(fmt.Sprintf("analysis failed: %v", err)), nil, nil
	}

	matches, err := s.matcher.FindSimilar(ctx, analysis.Entities, params.TopN)
	if err != nil {
		return toolError(fmt.Sprintf("similarity search failed: %v", err)), nil, nil
	}
	if matches == nil {
		matches = []service.SimilarCase{}
	}

	result := FindSimilarCasesResult{
		Entities: analysis.Entities,
		Matches:  matches,
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding matches: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(text)},
		},
	}, result, nil
}

// toolError wraps a message in an error-flagged tool result so the host
// sees a scoped failure instead of a protocol error.
func toolError(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + message},
		},
		IsError: true,
	}
}
