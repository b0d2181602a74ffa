// Package mcp exposes the report analysis pipeline as Model Context
// Protocol tools over stdio. Stdout carries the protocol, so all
// logging goes to stderr.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/birads-report-server/internal/knowledge"
	"github.com/birads-report-server/internal/service"
)

// Server wraps the MCP SDK server with the analysis services the
// tool handlers need. The matcher is optional; when it is nil the
// find_similar_cases tool reports an error instead of results.
type Server struct {
	name      string
	version   string
	mcpServer *mcp.Server
	analyzer  *service.Analyzer
	matcher   *service.Matcher
	knowledge *knowledge.Base
	logger    *logrus.Logger
}

// Deps holds the collaborators for NewServer.
type Deps struct {
	Name      string
	Version   string
	Analyzer  *service.Analyzer
	Matcher   *service.Matcher
	Knowledge *knowledge.Base
	Logger    *logrus.Logger
}

// NewServer creates an MCP server and registers the analysis tools.
func NewServer(deps Deps) (*Server, error) {
	if deps.Analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if deps.Knowledge == nil {
		return nil, fmt.Errorf("knowledge base is required")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.Name == "" {
		deps.Name = "birads-report-server"
	}
	if deps.Version == "" {
		deps.Version = "v0.1.0"
	}

	server := &Server{
		name:      deps.Name,
		version:   deps.Version,
		analyzer:  deps.Analyzer,
		matcher:   deps.Matcher,
		knowledge: deps.Knowledge,
		logger:    deps.Logger,
	}

	serverInfo := &mcp.Implementation{
		Name:    deps.Name,
		Version: deps.Version,
	}
	server.mcpServer = mcp.NewServer(serverInfo, nil)
	server.registerTools()

	return server, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "analyze_report",
		Description: "Analyze a French mammography report: extract sections, clinical entities and the BI-RADS classification, and derive follow-up recommendations.",
	}, s.handleAnalyzeReport)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_birads_guideline",
		Description: "Look up the guideline record for a BI-RADS classification code (0, 1, 2, 3, 4A, 4B, 4C, 5 or 6).",
	}, s.handleGetGuideline)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "find_similar_cases",
		Description: "Analyze a report and return the most similar documented cases from the case base, ranked by embedding cosine similarity.",
	}, s.handleFindSimilarCases)

	s.logger.WithField("tool_count", 3).Info("Registered MCP tools")
}

// Run serves the MCP protocol over stdio until ctx is cancelled or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.WithFields(logrus.Fields{
		"server":  s.name,
		"version": s.version,
	}).Info("Starting MCP server on stdio")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server stopped: %w", err)
	}
	return nil
}
